package progress

import (
	"academy/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Aggregator tracks per-section completion and computes a learner's
// completion ratio over a course's published sections.
type Aggregator struct {
	db *gorm.DB
}

func NewAggregator(db *gorm.DB) *Aggregator {
	return &Aggregator{db: db}
}

// SetCompletion upserts the learner's single progress row for the section.
// Repeating a call with the same value is still a successful write.
func (a *Aggregator) SetCompletion(userID, sectionID uint, completed bool) (*models.Progress, error) {
	row := models.Progress{
		UserID:      userID,
		SectionID:   sectionID,
		IsCompleted: completed,
	}
	err := a.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "section_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"is_completed": completed}),
	}).Create(&row).Error
	if err != nil {
		return nil, err
	}

	var saved models.Progress
	if err := a.db.Where("user_id = ? AND section_id = ?", userID, sectionID).
		First(&saved).Error; err != nil {
		return nil, err
	}
	return &saved, nil
}

// CompletionRatio returns completed/published over the course's currently
// published sections, in [0,1]. A course with no published sections yields 0.
func (a *Aggregator) CompletionRatio(userID, courseID uint) (float64, error) {
	var sectionIDs []uint
	err := a.db.Model(&models.Section{}).
		Where("course_id = ? AND is_published = ?", courseID, true).
		Pluck("id", &sectionIDs).Error
	if err != nil {
		return 0, err
	}
	if len(sectionIDs) == 0 {
		return 0, nil
	}

	var completed int64
	err = a.db.Model(&models.Progress{}).
		Where("user_id = ? AND section_id IN ? AND is_completed = ?", userID, sectionIDs, true).
		Count(&completed).Error
	if err != nil {
		return 0, err
	}
	return float64(completed) / float64(len(sectionIDs)), nil
}
