package models

import "gorm.io/gorm"

type Progress struct {
	gorm.Model
	UserID      uint `json:"user_id" gorm:"not null;uniqueIndex:idx_progress_user_section"`
	SectionID   uint `json:"section_id" gorm:"not null;uniqueIndex:idx_progress_user_section"`
	IsCompleted bool `json:"is_completed" gorm:"default:false"`
}
