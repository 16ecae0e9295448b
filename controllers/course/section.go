package courseController

import (
	"errors"
	"sort"

	"academy/database"
	"academy/middleware"
	"academy/models"
	"academy/services/ordering"
	"academy/services/publish"
	"academy/services/video"
	"academy/utils"

	"github.com/gofiber/fiber/v2"
)

// findOwnedSection loads a section scoped to a course the caller owns.
func findOwnedSection(c *fiber.Ctx, userId uint) (*models.Course, *models.Section, error) {
	courseID, err := c.ParamsInt("courseId")
	if err != nil {
		return nil, nil, err
	}
	sectionID, err := c.ParamsInt("sectionId")
	if err != nil {
		return nil, nil, err
	}

	course, err := findOwnedCourse(courseID, userId)
	if err != nil {
		return nil, nil, err
	}

	var section models.Section
	if err := database.Database.Db.Where("id = ? AND course_id = ?", sectionID, course.ID).First(&section).Error; err != nil {
		return nil, nil, err
	}
	return course, &section, nil
}

// videoErrorResponse maps asset lifecycle failures onto transport codes:
// retryable provider trouble is a 502 the client may retry, a rejected video
// source is the client's fault.
func videoErrorResponse(c *fiber.Ctx, err error) error {
	var deletionErr *video.AssetDeletionError
	if errors.As(err, &deletionErr) {
		return middleware.JsonResponse(c, fiber.StatusBadGateway, false, "Failed to delete the existing video, try again!", nil)
	}
	if errors.Is(err, video.ErrConcurrentEdit) {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Section video was changed by another request, reload and retry!", nil)
	}
	if utils.IsRetryableProviderError(err) {
		return middleware.JsonResponse(c, fiber.StatusBadGateway, false, "Video provider is unavailable, try again!", nil)
	}
	var providerErr *utils.ProviderError
	if errors.As(err, &providerErr) {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Video source was rejected by the provider!", nil)
	}
	return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to process video!", nil)
}

func GetSections(c *fiber.Ctx) error {
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

	var sections []models.Section
	if err := database.Database.Db.
		Where("course_id = ?", course.ID).
		Order("position asc").
		Preload("VideoAsset").
		Preload("Resources").
		Find(&sections).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch sections!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Sections fetched successfully!", fiber.Map{
		"sections": sections,
	})
}

func CreateSection(c *fiber.Ctx) error {
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

	reqData, ok := c.Locals("validatedSection").(*struct {
		Title string `json:"title"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	// New sections always append at the end of the course
	position, err := ordering.NewManager(database.Database.Db).NextPosition(course.ID)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create section!", nil)
	}

	section := models.Section{
		CourseID: course.ID,
		Title:    reqData.Title,
		Position: position,
	}

	if err := database.Database.Db.Create(&section).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create section!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Section created successfully!", section)
}

func UpdateSection(c *fiber.Ctx) error {
	userId, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	_, section, err := findOwnedSection(c, userId)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Section not found!", nil)
	}

	reqData, ok := c.Locals("validatedSectionUpdate").(*struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		VideoURL    *string `json:"video_url"`
		IsFree      *bool   `json:"is_free"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	// Reconcile the provider asset before the new URL is persisted; the
	// coordinator needs the section's previous source to tell a replace from
	// a repeat.
	if reqData.VideoURL != nil {
		if err := videoCoordinator().SyncSectionVideo(c.UserContext(), section, *reqData.VideoURL); err != nil {
			return videoErrorResponse(c, err)
		}
		section.VideoURL = *reqData.VideoURL
	}

	if reqData.Title != nil {
		section.Title = *reqData.Title
	}
	if reqData.Description != nil {
		section.Description = *reqData.Description
	}
	if reqData.IsFree != nil {
		section.IsFree = *reqData.IsFree
	}

	if err := database.Database.Db.Save(section).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update section!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Section updated successfully!", section)
}

func DeleteSection(c *fiber.Ctx) error {
	userId, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	course, section, err := findOwnedSection(c, userId)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Section not found!", nil)
	}

	// Provider asset first: the section must not disappear while its video
	// is still hosted.
	if err := videoCoordinator().ReleaseSection(c.UserContext(), section.ID); err != nil {
		return videoErrorResponse(c, err)
	}

	if err := ordering.NewManager(database.Database.Db).Remove(course.ID, section.ID); err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to delete section!", nil)
	}

	// Removing the last published section leaves the course unpublishable;
	// flip its flag here rather than leaving a published course with no
	// visible content.
	var publishedLeft int64
	if err := database.Database.Db.Model(&models.Section{}).
		Where("course_id = ? AND is_published = ?", course.ID, true).
		Count(&publishedLeft).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to delete section!", nil)
	}
	if publishedLeft == 0 && course.IsPublished {
		if err := publish.NewGate(database.Database.Db).UnpublishCourse(course); err != nil {
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to delete section!", nil)
		}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Section deleted successfully!", nil)
}

func ReorderSections(c *fiber.Ctx) error {
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

	reqData, ok := c.Locals("validatedReorder").(*struct {
		Sections []struct {
			ID       uint `json:"id"`
			Position int  `json:"position"`
		} `json:"sections"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	pairs := reqData.Sections
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Position < pairs[j].Position })
	orderedIDs := make([]uint, len(pairs))
	for i, pair := range pairs {
		orderedIDs[i] = pair.ID
	}

	if err := ordering.NewManager(database.Database.Db).Reorder(course.ID, orderedIDs); err != nil {
		if errors.Is(err, ordering.ErrInvalidOrdering) {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Section list does not match the course's sections!", nil)
		}
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to reorder sections!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Sections reordered successfully!", nil)
}

func PublishSection(c *fiber.Ctx) error {
	userId, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	_, section, err := findOwnedSection(c, userId)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Section not found!", nil)
	}

	gate := publish.NewGate(database.Database.Db)
	if err := gate.PublishSection(section); err != nil {
		var incomplete *publish.IncompletePublishError
		if errors.As(err, &incomplete) {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Missing required fields!", fiber.Map{
				"missing": incomplete.Missing,
			})
		}
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to publish section!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Section published successfully!", section)
}

func UnpublishSection(c *fiber.Ctx) error {
	userId, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	_, section, err := findOwnedSection(c, userId)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Section not found!", nil)
	}

	// Deliberately no course re-evaluation here: unpublishing the last
	// published section leaves the course's flag to an explicit caller
	// action.
	gate := publish.NewGate(database.Database.Db)
	if err := gate.UnpublishSection(section); err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to unpublish section!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Section unpublished successfully!", section)
}

func AddResource(c *fiber.Ctx) error {
	userId, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	_, section, err := findOwnedSection(c, userId)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Section not found!", nil)
	}

	reqData, ok := c.Locals("validatedResource").(*struct {
		Name    string `json:"name"`
		FileURL string `json:"file_url"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	resource := models.Resource{
		SectionID: section.ID,
		Name:      reqData.Name,
		FileURL:   reqData.FileURL,
	}

	if err := database.Database.Db.Create(&resource).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to add resource!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Resource added successfully!", resource)
}

func DeleteResource(c *fiber.Ctx) error {
	userId, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	_, section, err := findOwnedSection(c, userId)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Section not found!", nil)
	}

	resourceID, err := c.ParamsInt("resourceId")
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid resource id!", nil)
	}

	result := database.Database.Db.Unscoped().
		Where("id = ? AND section_id = ?", resourceID, section.ID).
		Delete(&models.Resource{})
	if result.Error != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to delete resource!", nil)
	}
	if result.RowsAffected == 0 {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Resource not found!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Resource deleted successfully!", nil)
}
