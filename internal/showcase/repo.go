package showcase

import (
	"context"

	"gorm.io/gorm"

	"github.com/omarvides/restyle-backend/pkg/db/models"
)

// Repository reads the seeded showcase catalog.
type Repository interface {
	List(ctx context.Context) ([]models.ShowcaseExample, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a showcase repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context) ([]models.ShowcaseExample, error) {
	var examples []models.ShowcaseExample
	if err := r.db.WithContext(ctx).
		Order("priority ASC, created_at ASC").
		Find(&examples).Error; err != nil {
		return nil, err
	}
	return examples, nil
}
