package profiles

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/omarvides/restyle-backend/pkg/db/models"
	"github.com/omarvides/restyle-backend/pkg/enums"
)

// Repository handles profile persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	GetOrCreate(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	DecrementCredits(ctx context.Context, id uuid.UUID) error
	ActivateSubscription(ctx context.Context, id uuid.UUID, credits int, billingCustomerID string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a profile repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&profile).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// GetOrCreate resolves the profile for an auth subject, creating the zero-credit
// row on first sight. Concurrent first requests are safe: the insert ignores
// conflicts and the row is re-read.
func (r *repository) GetOrCreate(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	profile, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if profile != nil {
		return profile, nil
	}

	fresh := &models.Profile{
		ID:                 id,
		Credits:            0,
		SubscriptionStatus: enums.SubscriptionStatusNone,
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(fresh).Error; err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

// DecrementCredits subtracts one credit, floored at zero.
func (r *repository) DecrementCredits(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ? AND credits > 0", id).
		UpdateColumn("credits", gorm.Expr("credits - 1")).Error
}

// ActivateSubscription flips the profile to subscriber status with the
// unlimited credit sentinel. Creates the profile when the purchase arrives
// before the user's first API call.
func (r *repository) ActivateSubscription(ctx context.Context, id uuid.UUID, credits int, billingCustomerID string) error {
	profile, err := r.GetOrCreate(ctx, id)
	if err != nil {
		return err
	}

	updates := map[string]any{
		"subscription_status": enums.SubscriptionStatusActive,
		"credits":             credits,
	}
	if billingCustomerID != "" {
		updates["billing_customer_id"] = billingCustomerID
	}
	return r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", profile.ID).
		Updates(updates).Error
}
