package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/omarvides/restyle-backend/pkg/enums"
)

// Profile tracks entitlement state for a user known to the hosted auth provider.
// The id is the auth provider's subject, never minted locally.
type Profile struct {
	ID                 uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	Credits            int                      `gorm:"column:credits;not null;default:0"`
	SubscriptionStatus enums.SubscriptionStatus `gorm:"column:subscription_status;not null;default:'none'"`
	BillingCustomerID  *string                  `gorm:"column:billing_customer_id"`
	CreatedAt          time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

// IsSubscriber reports whether the profile bypasses credit accounting.
func (p *Profile) IsSubscriber() bool {
	return p != nil && p.SubscriptionStatus == enums.SubscriptionStatusActive
}
