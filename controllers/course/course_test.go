package courseController

import (
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"academy/database"
	"academy/models"

	"github.com/gofiber/fiber/v2"
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
	database.Database = database.DbInstance{Db: db}
	return db
}

func TestGetCourseDetailsHidesPaidPlaybackIDs(t *testing.T) {
	db := setupTestDB(t)

	price := int64(4999)
	course := models.Course{InstructorID: 1, Title: "Go", Price: &price, IsPublished: true}
	require.NoError(t, db.Create(&course).Error)

	free := models.Section{CourseID: course.ID, Title: "Intro", Position: 0, IsFree: true, IsPublished: true}
	require.NoError(t, db.Create(&free).Error)
	paid := models.Section{CourseID: course.ID, Title: "Deep dive", Position: 1, IsPublished: true}
	require.NoError(t, db.Create(&paid).Error)

	require.NoError(t, db.Create(&models.VideoAsset{
		SectionID: free.ID, AssetID: "asset-free", PlaybackID: "pb-free", Status: models.AssetStatusReady,
	}).Error)
	require.NoError(t, db.Create(&models.VideoAsset{
		SectionID: paid.ID, AssetID: "asset-paid", PlaybackID: "pb-paid", Status: models.AssetStatusReady,
	}).Error)

	app := fiber.New()
	app.Get("/courses/:courseId", GetCourseDetails)

	resp, err := app.Test(httptest.NewRequest("GET", fmt.Sprintf("/courses/%d", course.ID), nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	// Free previews keep their playback reference; paid sections expose none
	// to anonymous callers.
	assert.Contains(t, string(body), "pb-free")
	assert.NotContains(t, string(body), "pb-paid")
	assert.NotContains(t, string(body), "asset-paid")
}
