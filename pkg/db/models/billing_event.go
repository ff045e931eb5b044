package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/omarvides/restyle-backend/pkg/enums"
)

// BillingEvent is an audit record for every accepted billing webhook delivery.
type BillingEvent struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProviderEventID string                 `gorm:"column:provider_event_id;not null;index"`
	EventType       enums.BillingEventType `gorm:"column:event_type;not null"`
	UserID          uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	OrderTotal      decimal.Decimal        `gorm:"column:order_total;type:numeric(12,2)"`
	Currency        string                 `gorm:"column:currency"`
	Payload         json.RawMessage        `gorm:"column:payload;type:jsonb"`
	ReceivedAt      time.Time              `gorm:"column:received_at;autoCreateTime"`
}
