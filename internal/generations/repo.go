package generations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/omarvides/restyle-backend/pkg/db/models"
	"github.com/omarvides/restyle-backend/pkg/pagination"
)

// Repository handles generation metadata persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, generation *models.Generation) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Generation, error)
	CountForUserSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error)
	ListByUser(ctx context.Context, params ListQuery) ([]models.Generation, *pagination.Cursor, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ListQuery configures generation list queries.
type ListQuery struct {
	UserID uuid.UUID
	Limit  int
	Cursor *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a generation repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, generation *models.Generation) error {
	return r.db.WithContext(ctx).Create(generation).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Generation, error) {
	var generation models.Generation
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&generation).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &generation, nil
}

func (r *repository) CountForUserSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Generation{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) ListByUser(ctx context.Context, params ListQuery) ([]models.Generation, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).
		Model(&models.Generation{}).
		Where("user_id = ?", params.UserID)
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.Generation
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	if len(rows) > limit {
		rows = rows[:limit]
		// Cursor points at the last returned row; the strict < in the next
		// query then starts exactly one row past it.
		last := rows[limit-1]
		return rows, &pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		}, nil
	}

	return rows, nil, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Generation{}).Error
}
