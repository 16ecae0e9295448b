package courseRoutes

import (
	controllers "academy/controllers/course"
	"academy/middleware"
	validators "academy/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupCourseRoutes sets up the learner-facing course routes
func SetupCourseRoutes(app *fiber.App) {
	courseGroup := app.Group("/courses")

	// Browsing published courses
	courseGroup.Get("/", validators.CourseList(), controllers.GetPublishedCourses)
	courseGroup.Get("/categories", controllers.GetCategories)
	courseGroup.Get("/:courseId", controllers.GetCourseDetails)

	// Progress tracking
	courseGroup.Post("/:courseId/sections/:sectionId/progress", middleware.JWTMiddleware, validators.SetProgress(), controllers.SetSectionProgress)
	courseGroup.Get("/:courseId/progress", middleware.JWTMiddleware, controllers.GetCourseProgress)
}
