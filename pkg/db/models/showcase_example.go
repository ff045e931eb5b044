package models

import (
	"time"

	"github.com/google/uuid"
)

// ShowcaseExample is a seeded before/after marketing asset. Static reference
// data; rows are inserted by migration and never mutated at runtime.
type ShowcaseExample struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RoomType  string    `gorm:"column:room_type;not null"`
	Style     string    `gorm:"column:style;not null"`
	BeforeURL string    `gorm:"column:before_url;not null"`
	AfterURL  string    `gorm:"column:after_url;not null"`
	Title     string    `gorm:"column:title;not null"`
	Badge     *string   `gorm:"column:badge"`
	Priority  int       `gorm:"column:priority;not null;default:0;index"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
