package ordering

import (
	"errors"

	"academy/models"

	"gorm.io/gorm"
)

// ErrInvalidOrdering is returned when a reorder request does not carry exactly
// the current section ids of the course.
var ErrInvalidOrdering = errors.New("ordering does not match the course's current sections")

// Manager keeps section positions dense (0..N-1, no gaps, no duplicates)
// within a course across append, reorder and remove.
type Manager struct {
	db *gorm.DB
}

func NewManager(db *gorm.DB) *Manager {
	return &Manager{db: db}
}

// NextPosition returns the position a newly appended section should take:
// one past the current maximum, 0 for an empty course. Freed slots are never
// reused on creation.
func (m *Manager) NextPosition(courseID uint) (int, error) {
	var maxPos int
	err := m.db.Model(&models.Section{}).
		Where("course_id = ?", courseID).
		Select("COALESCE(MAX(position), -1)").
		Scan(&maxPos).Error
	if err != nil {
		return 0, err
	}
	return maxPos + 1, nil
}

// Reorder applies a full new ordering for the course's sections. The supplied
// id list must match the existing section id set exactly; partial reorders and
// foreign ids are rejected with ErrInvalidOrdering. Positions are assigned in
// a single transaction so a reader never observes a gapped or duplicated
// sequence.
func (m *Manager) Reorder(courseID uint, orderedIDs []uint) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		var currentIDs []uint
		if err := tx.Model(&models.Section{}).
			Where("course_id = ?", courseID).
			Pluck("id", &currentIDs).Error; err != nil {
			return err
		}

		if len(orderedIDs) != len(currentIDs) {
			return ErrInvalidOrdering
		}
		current := make(map[uint]bool, len(currentIDs))
		for _, id := range currentIDs {
			current[id] = true
		}
		seen := make(map[uint]bool, len(orderedIDs))
		for _, id := range orderedIDs {
			if !current[id] || seen[id] {
				return ErrInvalidOrdering
			}
			seen[id] = true
		}

		// Reordering 0 or 1 sections is a no-op.
		if len(orderedIDs) < 2 {
			return nil
		}

		// Park positions in negative space first so the (course_id, position)
		// unique index holds while rows move to their final slots.
		if err := tx.Model(&models.Section{}).
			Where("course_id = ?", courseID).
			Update("position", gorm.Expr("-(position + 1)")).Error; err != nil {
			return err
		}

		for index, id := range orderedIDs {
			if err := tx.Model(&models.Section{}).
				Where("id = ? AND course_id = ?", id, courseID).
				Update("position", index).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Remove hard-deletes a section together with its child resource and progress
// rows, then closes the gap by shifting every higher sibling down one slot.
// Provider-side video assets must already have been released by the caller.
func (m *Manager) Remove(courseID, sectionID uint) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		var section models.Section
		if err := tx.Where("id = ? AND course_id = ?", sectionID, courseID).
			First(&section).Error; err != nil {
			return err
		}

		if err := tx.Unscoped().Where("section_id = ?", sectionID).
			Delete(&models.Resource{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("section_id = ?", sectionID).
			Delete(&models.Progress{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Delete(&section).Error; err != nil {
			return err
		}

		// Same negative-space trick as Reorder: shift the tail down without
		// tripping the unique index mid-update.
		if err := tx.Model(&models.Section{}).
			Where("course_id = ? AND position > ?", courseID, section.Position).
			Update("position", gorm.Expr("-position")).Error; err != nil {
			return err
		}
		return tx.Model(&models.Section{}).
			Where("course_id = ? AND position < 0", courseID).
			Update("position", gorm.Expr("-position - 1")).Error
	})
}
