package publish

import (
	"fmt"
	"strings"
	"testing"

	"academy/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.Course{},
		&models.Section{},
		&models.VideoAsset{},
	))
	return db
}

func completeCourse() *models.Course {
	category, subCategory, level := uint(1), uint(2), uint(3)
	price := int64(4999)
	return &models.Course{
		Title:         "Go from scratch",
		Description:   "A complete introduction",
		CategoryID:    &category,
		SubCategoryID: &subCategory,
		LevelID:       &level,
		ImageURL:      "https://img.example/banner.png",
		Price:         &price,
	}
}

func TestCanPublishCourseReportsMissing(t *testing.T) {
	ok, missing := CanPublishCourse(&models.Course{}, false)
	assert.False(t, ok)
	assert.ElementsMatch(t, []string{
		"title", "description", "category", "sub_category",
		"level", "image", "price", "published_sections",
	}, missing)

	course := completeCourse()
	ok, missing = CanPublishCourse(course, false)
	assert.False(t, ok)
	assert.Equal(t, []string{"published_sections"}, missing)

	ok, missing = CanPublishCourse(course, true)
	assert.True(t, ok)
	assert.Empty(t, missing)
}

func TestCanPublishSectionReportsMissing(t *testing.T) {
	ok, missing := CanPublishSection(&models.Section{}, false)
	assert.False(t, ok)
	assert.ElementsMatch(t, []string{"title", "description", "video"}, missing)

	section := &models.Section{Title: "Intro", Description: "Welcome", VideoURL: "https://v.example/1"}
	ok, missing = CanPublishSection(section, false)
	assert.False(t, ok)
	assert.Equal(t, []string{"video"}, missing, "a video URL without a bound asset is not publishable")

	ok, missing = CanPublishSection(section, true)
	assert.True(t, ok)
	assert.Empty(t, missing)
}

func TestGatePublishCourse(t *testing.T) {
	db := setupTestDB(t)
	gate := NewGate(db)

	course := completeCourse()
	course.InstructorID = 1
	require.NoError(t, db.Create(course).Error)
	section := models.Section{CourseID: course.ID, Title: "Intro", Position: 0}
	require.NoError(t, db.Create(&section).Error)

	err := gate.PublishCourse(course)
	var incomplete *IncompletePublishError
	require.ErrorAs(t, err, &incomplete)
	assert.Contains(t, incomplete.Missing, "published_sections")
	assert.False(t, course.IsPublished)

	require.NoError(t, db.Model(&section).Update("is_published", true).Error)

	require.NoError(t, gate.PublishCourse(course))
	assert.True(t, course.IsPublished)

	var stored models.Course
	require.NoError(t, db.First(&stored, course.ID).Error)
	assert.True(t, stored.IsPublished)
}

func TestGatePublishSectionRequiresAsset(t *testing.T) {
	db := setupTestDB(t)
	gate := NewGate(db)

	section := models.Section{
		CourseID:    1,
		Title:       "Intro",
		Description: "Welcome",
		VideoURL:    "https://v.example/1",
		Position:    0,
	}
	require.NoError(t, db.Create(&section).Error)

	err := gate.PublishSection(&section)
	var incomplete *IncompletePublishError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, []string{"video"}, incomplete.Missing)

	asset := models.VideoAsset{SectionID: section.ID, AssetID: "asset-1", PlaybackID: "pb-1"}
	require.NoError(t, db.Create(&asset).Error)

	require.NoError(t, gate.PublishSection(&section))
	assert.True(t, section.IsPublished)
}

func TestUnpublishCourseDoesNotCascade(t *testing.T) {
	db := setupTestDB(t)
	gate := NewGate(db)

	course := completeCourse()
	course.IsPublished = true
	require.NoError(t, db.Create(course).Error)
	section := models.Section{CourseID: course.ID, Title: "Intro", Position: 0, IsPublished: true}
	require.NoError(t, db.Create(&section).Error)

	require.NoError(t, gate.UnpublishCourse(course))
	assert.False(t, course.IsPublished)

	// Sections keep their own publish state so republishing the course does
	// not require re-publishing every section.
	var stored models.Section
	require.NoError(t, db.First(&stored, section.ID).Error)
	assert.True(t, stored.IsPublished)
}

func TestUnpublishSectionLeavesCourseFlag(t *testing.T) {
	db := setupTestDB(t)
	gate := NewGate(db)

	course := completeCourse()
	course.IsPublished = true
	require.NoError(t, db.Create(course).Error)
	section := models.Section{CourseID: course.ID, Title: "Intro", Position: 0, IsPublished: true}
	require.NoError(t, db.Create(&section).Error)

	require.NoError(t, gate.UnpublishSection(&section))
	assert.False(t, section.IsPublished)

	// Re-evaluating the course flag is an explicit caller action.
	var stored models.Course
	require.NoError(t, db.First(&stored, course.ID).Error)
	assert.True(t, stored.IsPublished)
}
