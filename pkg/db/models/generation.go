package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/omarvides/restyle-backend/pkg/enums"
)

// Generation records one produced image. A row exists only after the artifact
// behind ImageURL is durably stored and publicly addressable.
type Generation struct {
	ID         uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index"`
	ImageURL   string                  `gorm:"column:image_url;not null"`
	Prompt     string                  `gorm:"column:prompt;not null"`
	Style      *string                 `gorm:"column:style"`
	RoomType   *string                 `gorm:"column:room_type"`
	Purpose    enums.GenerationPurpose `gorm:"column:purpose;not null;default:'redesign'"`
	ParentID   *uuid.UUID              `gorm:"column:parent_id;type:uuid;index"`
	Seed       *int64                  `gorm:"column:seed"`
	StorageKey *string                 `gorm:"column:storage_key"`
	CreatedAt  time.Time               `gorm:"column:created_at;autoCreateTime;index"`
}
