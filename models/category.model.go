package models

import "gorm.io/gorm"

type Category struct {
	gorm.Model
	Name          string        `json:"name" gorm:"unique;not null"`
	SubCategories []SubCategory `json:"sub_categories" gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE"`
}

type SubCategory struct {
	gorm.Model
	CategoryID uint   `json:"category_id" gorm:"index;not null"`
	Name       string `json:"name" gorm:"not null"`
}

type Level struct {
	gorm.Model
	Name string `json:"name" gorm:"unique;not null"`
}
