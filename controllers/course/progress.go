package courseController

import (
	"academy/database"
	"academy/middleware"
	"academy/models"
	"academy/services/progress"

	"github.com/gofiber/fiber/v2"
)

// canAccessSection reports whether the learner may interact with the section:
// free preview sections are open, everything else needs a purchase of the
// course.
func canAccessSection(userId uint, section *models.Section) (bool, error) {
	if section.IsFree {
		return true, nil
	}
	var purchases int64
	err := database.Database.Db.Model(&models.Purchase{}).
		Where("user_id = ? AND course_id = ?", userId, section.CourseID).
		Count(&purchases).Error
	if err != nil {
		return false, err
	}
	return purchases > 0, nil
}

func SetSectionProgress(c *fiber.Ctx) error {
	userId, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	courseID, err := c.ParamsInt("courseId")
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid course id!", nil)
	}
	sectionID, err := c.ParamsInt("sectionId")
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid section id!", nil)
	}

	var section models.Section
	if err := database.Database.Db.
		Where("id = ? AND course_id = ? AND is_published = ?", sectionID, courseID, true).
		First(&section).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Section not found!", nil)
	}

	allowed, err := canAccessSection(userId, &section)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update progress!", nil)
	}
	if !allowed {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Purchase the course to track progress!", nil)
	}

	reqData, ok := c.Locals("validatedProgress").(*struct {
		IsCompleted *bool `json:"is_completed"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	row, err := progress.NewAggregator(database.Database.Db).SetCompletion(userId, section.ID, *reqData.IsCompleted)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update progress!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress updated successfully!", row)
}

func GetCourseProgress(c *fiber.Ctx) error {
	userId, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	courseID, err := c.ParamsInt("courseId")
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid course id!", nil)
	}

	var course models.Course
	if err := database.Database.Db.Where("id = ? AND is_published = ?", courseID, true).First(&course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	ratio, err := progress.NewAggregator(database.Database.Db).CompletionRatio(userId, course.ID)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch progress!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress fetched successfully!", fiber.Map{
		"completion_ratio": ratio,
	})
}
