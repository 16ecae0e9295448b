package courseController

import (
	"errors"

	"academy/database"
	"academy/middleware"
	"academy/models"
	"academy/services/publish"
	"academy/services/video"
	"academy/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// videoCoordinator wires the lifecycle service to the shared store and the
// Mux client.
func videoCoordinator() *video.Coordinator {
	return video.NewCoordinator(database.Database.Db, utils.NewMuxClient())
}

// findOwnedCourse loads a course scoped to its owning instructor. A course
// owned by someone else yields the same not-found as a missing one.
func findOwnedCourse(courseID int, instructorID uint) (*models.Course, error) {
	var course models.Course
	err := database.Database.Db.Where("id = ? AND instructor_id = ?", courseID, instructorID).First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func CreateCourse(c *fiber.Ctx) error {
	userId, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	reqData, ok := c.Locals("validatedCourse").(*struct {
		Title string `json:"title"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	// New courses start as unpublished drafts
	course := models.Course{
		InstructorID: userId,
		Title:        reqData.Title,
	}

	if err := database.Database.Db.Create(&course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create course!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Course created successfully!", course)
}

func GetInstructorCourses(c *fiber.Ctx) error {
	userId, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var courses []models.Course
	if err := database.Database.Db.
		Where("instructor_id = ?", userId).
		Order("created_at desc").
		Find(&courses).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch courses!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Courses fetched successfully!", fiber.Map{
		"courses": courses,
	})
}

func GetPublishedCourses(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedList").(*struct {
		CategoryID *uint `query:"category_id"`
		Page       *int  `query:"page"`
		Limit      *int  `query:"limit"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	// Set default pagination
	page := 1
	limit := 10
	if reqData.Page != nil {
		page = *reqData.Page
	}
	if reqData.Limit != nil {
		limit = *reqData.Limit
	}
	offset := (page - 1) * limit

	db := database.Database.Db.Model(&models.Course{}).Where("is_published = ?", true)
	if reqData.CategoryID != nil {
		db = db.Where("category_id = ?", *reqData.CategoryID)
	}

	// Get total count
	var total int64
	db.Count(&total)

	var courses []models.Course
	if err := db.Offset(offset).Limit(limit).Order("created_at desc").Find(&courses).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch courses!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Courses fetched successfully!", fiber.Map{
		"courses": courses,
		"pagination": fiber.Map{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

func GetCourseDetails(c *fiber.Ctx) error {
	courseID, err := c.ParamsInt("courseId")
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid course id!", nil)
	}

	var course models.Course
	err = database.Database.Db.
		Where("id = ? AND is_published = ?", courseID, true).
		Preload("Sections", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_published = ?", true).Order("position asc")
		}).
		Preload("Sections.VideoAsset").
		First(&course).Error
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	// Playback ids of paid sections are only for purchasers; the public
	// detail page carries them for free previews only.
	for i := range course.Sections {
		if !course.Sections[i].IsFree {
			course.Sections[i].VideoAsset = nil
		}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course fetched successfully!", course)
}

func UpdateCourse(c *fiber.Ctx) error {
	userId, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	courseID, err := c.ParamsInt("courseId")
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid course id!", nil)
	}

	course, err := findOwnedCourse(courseID, userId)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	reqData, ok := c.Locals("validatedCourseUpdate").(*struct {
		Title         *string `json:"title"`
		Description   *string `json:"description"`
		CategoryID    *uint   `json:"category_id"`
		SubCategoryID *uint   `json:"sub_category_id"`
		LevelID       *uint   `json:"level_id"`
		ImageURL      *string `json:"image_url"`
		Price         *int64  `json:"price"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	// Apply only the allow-listed fields that were actually supplied
	if reqData.Title != nil {
		course.Title = *reqData.Title
	}
	if reqData.Description != nil {
		course.Description = *reqData.Description
	}
	if reqData.CategoryID != nil {
		course.CategoryID = reqData.CategoryID
	}
	if reqData.SubCategoryID != nil {
		course.SubCategoryID = reqData.SubCategoryID
	}
	if reqData.LevelID != nil {
		course.LevelID = reqData.LevelID
	}
	if reqData.ImageURL != nil {
		course.ImageURL = *reqData.ImageURL
	}
	if reqData.Price != nil {
		course.Price = reqData.Price
	}

	if err := database.Database.Db.Save(course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update course!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course updated successfully!", course)
}

func DeleteCourse(c *fiber.Ctx) error {
	userId, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	courseID, err := c.ParamsInt("courseId")
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid course id!", nil)
	}

	course, err := findOwnedCourse(courseID, userId)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	// Provider assets go first. If any deletion fails the course stays
	// intact and the whole delete can be retried.
	if err := videoCoordinator().ReleaseCourse(c.UserContext(), course.ID); err != nil {
		var deletionErr *video.AssetDeletionError
		if errors.As(err, &deletionErr) {
			return middleware.JsonResponse(c, fiber.StatusBadGateway, false, "Failed to delete course videos, try again!", nil)
		}
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to delete course!", nil)
	}

	tx := database.Database.Db.Begin()

	var sectionIDs []uint
	if err := tx.Model(&models.Section{}).Where("course_id = ?", course.ID).Pluck("id", &sectionIDs).Error; err != nil {
		tx.Rollback()
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to delete course!", nil)
	}

	if len(sectionIDs) > 0 {
		if err := tx.Unscoped().Where("section_id IN ?", sectionIDs).Delete(&models.Resource{}).Error; err != nil {
			tx.Rollback()
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to delete course!", nil)
		}
		if err := tx.Unscoped().Where("section_id IN ?", sectionIDs).Delete(&models.Progress{}).Error; err != nil {
			tx.Rollback()
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to delete course!", nil)
		}
		if err := tx.Unscoped().Where("course_id = ?", course.ID).Delete(&models.Section{}).Error; err != nil {
			tx.Rollback()
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to delete course!", nil)
		}
	}

	if err := tx.Unscoped().Where("course_id = ?", course.ID).Delete(&models.Purchase{}).Error; err != nil {
		tx.Rollback()
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to delete course!", nil)
	}

	if err := tx.Unscoped().Delete(course).Error; err != nil {
		tx.Rollback()
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to delete course!", nil)
	}

	tx.Commit()

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course deleted successfully!", nil)
}

func PublishCourse(c *fiber.Ctx) error {
	userId, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	courseID, err := c.ParamsInt("courseId")
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid course id!", nil)
	}

	course, err := findOwnedCourse(courseID, userId)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	gate := publish.NewGate(database.Database.Db)
	if err := gate.PublishCourse(course); err != nil {
		var incomplete *publish.IncompletePublishError
		if errors.As(err, &incomplete) {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Missing required fields!", fiber.Map{
				"missing": incomplete.Missing,
			})
		}
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to publish course!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course published successfully!", course)
}

func UnpublishCourse(c *fiber.Ctx) error {
	userId, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	courseID, err := c.ParamsInt("courseId")
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid course id!", nil)
	}

	course, err := findOwnedCourse(courseID, userId)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	gate := publish.NewGate(database.Database.Db)
	if err := gate.UnpublishCourse(course); err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to unpublish course!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course unpublished successfully!", course)
}

func GetCategories(c *fiber.Ctx) error {
	var categories []models.Category
	if err := database.Database.Db.Preload("SubCategories").Order("name asc").Find(&categories).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch categories!", nil)
	}

	var levels []models.Level
	if err := database.Database.Db.Order("id asc").Find(&levels).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch levels!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Categories fetched successfully!", fiber.Map{
		"categories": categories,
		"levels":     levels,
	})
}
