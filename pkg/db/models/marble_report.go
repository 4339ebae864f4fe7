package models

import (
	"time"

	"github.com/grmc/storefront-backend/pkg/enums"
)

// MarbleReport is a public sighting of dumped marble waste.
type MarbleReport struct {
	ID          int64                `gorm:"column:id;primaryKey;autoIncrement"`
	Name        string               `gorm:"column:name;not null"`
	Email       string               `gorm:"column:email"`
	Phone       string               `gorm:"column:phone"`
	Location    string               `gorm:"column:location"`
	Latitude    *float64             `gorm:"column:latitude"`
	Longitude   *float64             `gorm:"column:longitude"`
	Description string               `gorm:"column:description;not null"`
	ImageURL    *string              `gorm:"column:image_url"`
	IsUrgent    bool                 `gorm:"column:is_urgent;not null;default:false"`
	Priority    enums.ReportPriority `gorm:"column:priority;not null;default:'medium'"`
	Status      enums.ReportStatus   `gorm:"column:status;not null;default:'pending'"`
	AdminNotes  *string              `gorm:"column:admin_notes"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (MarbleReport) TableName() string { return "marble_reports" }

// HasCoordinates reports whether both halves of the GPS pair are present.
func (r MarbleReport) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}
