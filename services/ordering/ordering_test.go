package ordering

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
		&models.Resource{},
		&models.Progress{},
	))
	return db
}

func appendSection(t *testing.T, db *gorm.DB, m *Manager, courseID uint, title string) models.Section {
	t.Helper()
	pos, err := m.NextPosition(courseID)
	require.NoError(t, err)
	section := models.Section{CourseID: courseID, Title: title, Position: pos}
	require.NoError(t, db.Create(&section).Error)
	return section
}

func positionsByTitle(t *testing.T, db *gorm.DB, courseID uint) map[string]int {
	t.Helper()
	var sections []models.Section
	require.NoError(t, db.Where("course_id = ?", courseID).Find(&sections).Error)
	out := make(map[string]int, len(sections))
	for _, s := range sections {
		out[s.Title] = s.Position
	}
	return out
}

func assertDense(t *testing.T, db *gorm.DB, courseID uint) {
	t.Helper()
	var positions []int
	require.NoError(t, db.Model(&models.Section{}).
		Where("course_id = ?", courseID).
		Order("position asc").
		Pluck("position", &positions).Error)
	for i, p := range positions {
		assert.Equal(t, i, p, "positions must form 0..n-1 with no gaps")
	}
}

func TestNextPositionAppendsSequentially(t *testing.T) {
	db := setupTestDB(t)
	m := NewManager(db)

	pos, err := m.NextPosition(1)
	require.NoError(t, err)
	assert.Equal(t, 0, pos)

	appendSection(t, db, m, 1, "a")
	appendSection(t, db, m, 1, "b")

	pos, err = m.NextPosition(1)
	require.NoError(t, err)
	assert.Equal(t, 2, pos)

	// Other courses have independent position sequences.
	pos, err = m.NextPosition(2)
	require.NoError(t, err)
	assert.Equal(t, 0, pos)
}

func TestRemoveClosesGap(t *testing.T) {
	db := setupTestDB(t)
	m := NewManager(db)

	appendSection(t, db, m, 1, "a")
	middle := appendSection(t, db, m, 1, "b")
	appendSection(t, db, m, 1, "c")

	require.NoError(t, m.Remove(1, middle.ID))

	got := positionsByTitle(t, db, 1)
	assert.Equal(t, map[string]int{"a": 0, "c": 1}, got)
	assertDense(t, db, 1)
}

func TestRemoveDeletesChildRows(t *testing.T) {
	db := setupTestDB(t)
	m := NewManager(db)

	section := appendSection(t, db, m, 1, "a")
	require.NoError(t, db.Create(&models.Resource{SectionID: section.ID, Name: "slides", FileURL: "f"}).Error)
	require.NoError(t, db.Create(&models.Progress{UserID: 7, SectionID: section.ID, IsCompleted: true}).Error)

	require.NoError(t, m.Remove(1, section.ID))

	var resources, progresses int64
	require.NoError(t, db.Model(&models.Resource{}).Where("section_id = ?", section.ID).Count(&resources).Error)
	require.NoError(t, db.Model(&models.Progress{}).Where("section_id = ?", section.ID).Count(&progresses).Error)
	assert.Zero(t, resources)
	assert.Zero(t, progresses)
}

func TestRemoveUnknownSection(t *testing.T) {
	db := setupTestDB(t)
	m := NewManager(db)

	appendSection(t, db, m, 1, "a")

	err := m.Remove(1, 999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestReorderAppliesFullOrdering(t *testing.T) {
	db := setupTestDB(t)
	m := NewManager(db)

	a := appendSection(t, db, m, 1, "a")
	b := appendSection(t, db, m, 1, "b")
	c := appendSection(t, db, m, 1, "c")

	require.NoError(t, m.Reorder(1, []uint{c.ID, a.ID, b.ID}))

	got := positionsByTitle(t, db, 1)
	assert.Equal(t, map[string]int{"c": 0, "a": 1, "b": 2}, got)
	assertDense(t, db, 1)
}

func TestReorderRejectsMismatchedIDs(t *testing.T) {
	db := setupTestDB(t)
	m := NewManager(db)

	a := appendSection(t, db, m, 1, "a")
	b := appendSection(t, db, m, 1, "b")
	before := positionsByTitle(t, db, 1)

	cases := map[string][]uint{
		"foreign id": {a.ID, 999},
		"subset":     {a.ID},
		"duplicate":  {a.ID, a.ID},
		"superset":   {a.ID, b.ID, 999},
	}
	for name, ids := range cases {
		err := m.Reorder(1, ids)
		assert.ErrorIs(t, err, ErrInvalidOrdering, name)
		assert.Equal(t, before, positionsByTitle(t, db, 1), "positions must be unchanged after %s", name)
	}
}

func TestReorderFewerThanTwoIsNoOp(t *testing.T) {
	db := setupTestDB(t)
	m := NewManager(db)

	require.NoError(t, m.Reorder(1, nil))

	only := appendSection(t, db, m, 1, "a")
	require.NoError(t, m.Reorder(1, []uint{only.ID}))
	assertDense(t, db, 1)
}

func TestPositionsStayDenseAcrossOperations(t *testing.T) {
	db := setupTestDB(t)
	m := NewManager(db)

	a := appendSection(t, db, m, 1, "a")
	b := appendSection(t, db, m, 1, "b")
	c := appendSection(t, db, m, 1, "c")
	assertDense(t, db, 1)

	require.NoError(t, m.Reorder(1, []uint{b.ID, c.ID, a.ID}))
	assertDense(t, db, 1)

	require.NoError(t, m.Remove(1, c.ID))
	assertDense(t, db, 1)

	d := appendSection(t, db, m, 1, "d")
	assertDense(t, db, 1)

	require.NoError(t, m.Reorder(1, []uint{d.ID, a.ID, b.ID}))
	assertDense(t, db, 1)

	require.NoError(t, m.Remove(1, d.ID))
	require.NoError(t, m.Remove(1, a.ID))
	require.NoError(t, m.Remove(1, b.ID))

	pos, err := m.NextPosition(1)
	require.NoError(t, err)
	assert.Equal(t, 0, pos)
}
