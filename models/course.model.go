package models

import "gorm.io/gorm"

// Course price is stored in currency minor units (cents).
type Course struct {
	gorm.Model
	InstructorID  uint      `json:"instructor_id" gorm:"index;not null"`
	Title         string    `json:"title" gorm:"not null"`
	Description   string    `json:"description"`
	CategoryID    *uint     `json:"category_id"`
	SubCategoryID *uint     `json:"sub_category_id"`
	LevelID       *uint     `json:"level_id"`
	ImageURL      string    `json:"image_url"`
	Price         *int64    `json:"price"`
	IsPublished   bool      `json:"is_published" gorm:"default:false"`
	Sections      []Section `json:"sections,omitempty" gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE"`
}
