package models

import "gorm.io/gorm"

// Section positions are dense 0..N-1 within a course; the composite unique
// index backs that up at the store level. Sections are hard-deleted so freed
// positions can be reassigned during renumbering.
type Section struct {
	gorm.Model
	CourseID    uint        `json:"course_id" gorm:"not null;uniqueIndex:idx_sections_course_position"`
	Title       string      `json:"title" gorm:"not null"`
	Description string      `json:"description"`
	VideoURL    string      `json:"video_url"`
	Position    int         `json:"position" gorm:"not null;uniqueIndex:idx_sections_course_position"`
	IsFree      bool        `json:"is_free" gorm:"default:false"`
	IsPublished bool        `json:"is_published" gorm:"default:false"`
	VideoAsset  *VideoAsset `json:"video_asset,omitempty" gorm:"foreignKey:SectionID;constraint:OnDelete:CASCADE"`
	Resources   []Resource  `json:"resources,omitempty" gorm:"foreignKey:SectionID;constraint:OnDelete:CASCADE"`
}

const (
	AssetStatusPreparing = "preparing"
	AssetStatusReady     = "ready"
	AssetStatusErrored   = "errored"
)

// VideoAsset mirrors a provider-hosted video. Rows are created and deleted
// only through the asset lifecycle service, never by section handlers.
type VideoAsset struct {
	gorm.Model
	SectionID  uint   `json:"section_id" gorm:"uniqueIndex;not null"`
	AssetID    string `json:"asset_id" gorm:"not null"`
	PlaybackID string `json:"playback_id"`
	Status     string `json:"status" gorm:"default:'preparing'"`
}

type Resource struct {
	gorm.Model
	SectionID uint   `json:"section_id" gorm:"index;not null"`
	Name      string `json:"name" gorm:"not null"`
	FileURL   string `json:"file_url" gorm:"not null"`
}
