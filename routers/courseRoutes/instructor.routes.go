package courseRoutes

import (
	controllers "academy/controllers/course"
	"academy/middleware"
	"academy/models"
	validators "academy/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupInstructorRoutes sets up the instructor-facing course management routes
func SetupInstructorRoutes(app *fiber.App) {
	instructorGroup := app.Group("/instructor/courses",
		middleware.JWTMiddleware,
		middleware.RequireRole(models.RoleInstructor),
	)

	// Course lifecycle
	instructorGroup.Post("/", validators.CreateCourse(), controllers.CreateCourse)
	instructorGroup.Get("/", controllers.GetInstructorCourses)
	instructorGroup.Patch("/:courseId", validators.UpdateCourse(), controllers.UpdateCourse)
	instructorGroup.Delete("/:courseId", controllers.DeleteCourse)
	instructorGroup.Post("/:courseId/publish", controllers.PublishCourse)
	instructorGroup.Post("/:courseId/unpublish", controllers.UnpublishCourse)

	// Section lifecycle
	instructorGroup.Get("/:courseId/sections", controllers.GetSections)
	instructorGroup.Post("/:courseId/sections", validators.CreateSection(), controllers.CreateSection)
	instructorGroup.Put("/:courseId/sections/reorder", validators.ReorderSections(), controllers.ReorderSections)
	instructorGroup.Patch("/:courseId/sections/:sectionId", validators.UpdateSection(), controllers.UpdateSection)
	instructorGroup.Delete("/:courseId/sections/:sectionId", controllers.DeleteSection)
	instructorGroup.Post("/:courseId/sections/:sectionId/publish", controllers.PublishSection)
	instructorGroup.Post("/:courseId/sections/:sectionId/unpublish", controllers.UnpublishSection)

	// Section resources
	instructorGroup.Post("/:courseId/sections/:sectionId/resources", validators.AddResource(), controllers.AddResource)
	instructorGroup.Delete("/:courseId/sections/:sectionId/resources/:resourceId", controllers.DeleteResource)
}
