package paymentController

import (
	"errors"

	"academy/config"
	"academy/database"
	"academy/middleware"
	"academy/models"
	"academy/services/progress"
	"academy/services/purchase"
	"academy/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// paymentWorkflow wires the purchase workflow to the shared store and the
// Stripe client.
func paymentWorkflow() *purchase.Workflow {
	return purchase.NewWorkflow(
		database.Database.Db,
		utils.NewStripeClient(),
		config.AppConfig.BaseURL,
		config.AppConfig.Currency,
	)
}

func Checkout(c *fiber.Ctx) error {
	userId, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userId, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Access Denied!", nil)
	}

	courseID, err := c.ParamsInt("courseId")
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid course id!", nil)
	}

	url, err := paymentWorkflow().StartCheckout(c.UserContext(), &user, uint(courseID))
	if err != nil {
		switch {
		case errors.Is(err, purchase.ErrCourseUnavailable):
			return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
		case errors.Is(err, purchase.ErrAlreadyPurchased):
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Course already purchased!", nil)
		case utils.IsRetryableProviderError(err):
			return middleware.JsonResponse(c, fiber.StatusBadGateway, false, "Payment provider is unavailable, try again!", nil)
		default:
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to start checkout!", nil)
		}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Checkout session created!", fiber.Map{
		"url": url,
	})
}

// GetLearning lists the learner's purchased courses with their completion
// ratios.
func GetLearning(c *fiber.Ctx) error {
	userId, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var purchases []models.Purchase
	if err := database.Database.Db.
		Where("user_id = ?", userId).
		Order("created_at desc").
		Find(&purchases).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch purchases!", nil)
	}

	aggregator := progress.NewAggregator(database.Database.Db)

	courses := make([]fiber.Map, 0, len(purchases))
	for _, row := range purchases {
		var course models.Course
		err := database.Database.Db.
			Preload("Sections", func(db *gorm.DB) *gorm.DB {
				return db.Where("is_published = ?", true).Order("position asc")
			}).
			First(&course, row.CourseID).Error
		if err == gorm.ErrRecordNotFound {
			continue
		}
		if err != nil {
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch purchases!", nil)
		}

		ratio, err := aggregator.CompletionRatio(userId, course.ID)
		if err != nil {
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch purchases!", nil)
		}

		courses = append(courses, fiber.Map{
			"course":           course,
			"purchased_at":     row.CreatedAt,
			"completion_ratio": ratio,
		})
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Purchased courses fetched successfully!", fiber.Map{
		"courses": courses,
	})
}
