package billing

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/omarvides/restyle-backend/pkg/db/models"
)

// Repository handles the billing event audit log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateEvent(ctx context.Context, event *models.BillingEvent) error
	FindEventByProviderID(ctx context.Context, providerEventID string) (*models.BillingEvent, error)
	ListEventsByUser(ctx context.Context, userID uuid.UUID) ([]models.BillingEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a billing repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateEvent(ctx context.Context, event *models.BillingEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) FindEventByProviderID(ctx context.Context, providerEventID string) (*models.BillingEvent, error) {
	if providerEventID == "" {
		return nil, nil
	}
	var event models.BillingEvent
	if err := r.db.WithContext(ctx).
		Where("provider_event_id = ?", providerEventID).
		First(&event).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

func (r *repository) ListEventsByUser(ctx context.Context, userID uuid.UUID) ([]models.BillingEvent, error) {
	var events []models.BillingEvent
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("received_at DESC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
