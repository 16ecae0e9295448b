package publish

import (
	"fmt"
	"strings"

	"academy/models"

	"gorm.io/gorm"
)

// IncompletePublishError lists the checklist fields still missing when a
// publish attempt is refused. The flag is never partially applied.
type IncompletePublishError struct {
	Missing []string
}

func (e *IncompletePublishError) Error() string {
	return fmt.Sprintf("cannot publish, missing required fields: %s", strings.Join(e.Missing, ", "))
}

// CanPublishCourse reports whether the course satisfies its publish checklist.
// It is a pure function of the snapshot it is given; hasPublishedSection is
// whether at least one of the course's sections is itself published.
func CanPublishCourse(course *models.Course, hasPublishedSection bool) (bool, []string) {
	var missing []string
	if strings.TrimSpace(course.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(course.Description) == "" {
		missing = append(missing, "description")
	}
	if course.CategoryID == nil {
		missing = append(missing, "category")
	}
	if course.SubCategoryID == nil {
		missing = append(missing, "sub_category")
	}
	if course.LevelID == nil {
		missing = append(missing, "level")
	}
	if course.ImageURL == "" {
		missing = append(missing, "image")
	}
	if course.Price == nil {
		missing = append(missing, "price")
	}
	if !hasPublishedSection {
		missing = append(missing, "published_sections")
	}
	return len(missing) == 0, missing
}

// CanPublishSection reports whether the section satisfies its publish
// checklist; hasAsset is whether a provider video asset is bound to it.
func CanPublishSection(section *models.Section, hasAsset bool) (bool, []string) {
	var missing []string
	if strings.TrimSpace(section.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(section.Description) == "" {
		missing = append(missing, "description")
	}
	if section.VideoURL == "" || !hasAsset {
		missing = append(missing, "video")
	}
	return len(missing) == 0, missing
}

// Gate evaluates publish checklists against the store and flips the publish
// flags. Unpublish never cascades: sections keep their own publish state when
// a course is unpublished, and unpublishing the last published section leaves
// the course's flag to the caller.
type Gate struct {
	db *gorm.DB
}

func NewGate(db *gorm.DB) *Gate {
	return &Gate{db: db}
}

// PublishCourse flips the course published flag after the full checklist
// passes, failing with IncompletePublishError otherwise.
func (g *Gate) PublishCourse(course *models.Course) error {
	var publishedSections int64
	if err := g.db.Model(&models.Section{}).
		Where("course_id = ? AND is_published = ?", course.ID, true).
		Count(&publishedSections).Error; err != nil {
		return err
	}

	ok, missing := CanPublishCourse(course, publishedSections > 0)
	if !ok {
		return &IncompletePublishError{Missing: missing}
	}

	course.IsPublished = true
	return g.db.Model(course).Update("is_published", true).Error
}

// UnpublishCourse has no precondition and always succeeds.
func (g *Gate) UnpublishCourse(course *models.Course) error {
	course.IsPublished = false
	return g.db.Model(course).Update("is_published", false).Error
}

// PublishSection flips the section published flag after the full checklist
// passes, failing with IncompletePublishError otherwise.
func (g *Gate) PublishSection(section *models.Section) error {
	var assets int64
	if err := g.db.Model(&models.VideoAsset{}).
		Where("section_id = ?", section.ID).
		Count(&assets).Error; err != nil {
		return err
	}

	ok, missing := CanPublishSection(section, assets > 0)
	if !ok {
		return &IncompletePublishError{Missing: missing}
	}

	section.IsPublished = true
	return g.db.Model(section).Update("is_published", true).Error
}

// UnpublishSection has no precondition and always succeeds.
func (g *Gate) UnpublishSection(section *models.Section) error {
	section.IsPublished = false
	return g.db.Model(section).Update("is_published", false).Error
}
