package showcase

import (
	"context"

	"github.com/google/uuid"

	pkgerrors "github.com/omarvides/restyle-backend/pkg/errors"
)

// Service lists the public before/after examples.
type Service interface {
	ListExamples(ctx context.Context) ([]Example, error)
}

type service struct {
	repo Repository
}

// NewService constructs a showcase service backed by the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "showcase repository required")
	}
	return &service{repo: repo}, nil
}

// Example is one marketing before/after pair.
type Example struct {
	ID        uuid.UUID `json:"id"`
	RoomType  string    `json:"room_type"`
	Style     string    `json:"style"`
	BeforeURL string    `json:"before_url"`
	AfterURL  string    `json:"after_url"`
	Title     string    `json:"title"`
	Badge     *string   `json:"badge,omitempty"`
}

func (s *service) ListExamples(ctx context.Context) ([]Example, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list showcase examples")
	}

	examples := make([]Example, len(rows))
	for i, row := range rows {
		examples[i] = Example{
			ID:        row.ID,
			RoomType:  row.RoomType,
			Style:     row.Style,
			BeforeURL: row.BeforeURL,
			AfterURL:  row.AfterURL,
			Title:     row.Title,
			Badge:     row.Badge,
		}
	}
	return examples, nil
}
