package profiles

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/omarvides/restyle-backend/pkg/enums"
	pkgerrors "github.com/omarvides/restyle-backend/pkg/errors"
)

// Service exposes profile read semantics for the authenticated caller.
type Service interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*ProfileView, error)
}

type service struct {
	repo Repository
}

// NewService constructs a profile service backed by the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "profile repository required")
	}
	return &service{repo: repo}, nil
}

// ProfileView is the caller-facing shape of a profile.
type ProfileView struct {
	ID                 uuid.UUID                `json:"id"`
	Credits            int                      `json:"credits"`
	SubscriptionStatus enums.SubscriptionStatus `json:"subscription_status"`
	CreatedAt          time.Time                `json:"created_at"`
}

func (s *service) GetProfile(ctx context.Context, userID uuid.UUID) (*ProfileView, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	profile, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	if profile == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "profile not persisted")
	}

	return &ProfileView{
		ID:                 profile.ID,
		Credits:            profile.Credits,
		SubscriptionStatus: profile.SubscriptionStatus,
		CreatedAt:          profile.CreatedAt,
	}, nil
}
