package entitlements

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/omarvides/restyle-backend/pkg/db/models"
	pkgerrors "github.com/omarvides/restyle-backend/pkg/errors"
	"github.com/omarvides/restyle-backend/pkg/logger"
)

// DenialReason names why a generation request was refused.
type DenialReason string

const (
	DenialNone       DenialReason = ""
	DenialQuota      DenialReason = "quota_exceeded"
	DenialDailyLimit DenialReason = "daily_limit_reached"

	DefaultDailyLimit = 50
)

// Decision is the outcome of an entitlement check.
type Decision struct {
	Allowed    bool
	Subscriber bool
	Reason     DenialReason
}

// Err maps a denial to its caller-facing error. Nil for allowed decisions.
func (d Decision) Err() error {
	switch d.Reason {
	case DenialQuota:
		return pkgerrors.New(pkgerrors.CodeForbidden, "no credits remaining")
	case DenialDailyLimit:
		return pkgerrors.New(pkgerrors.CodeRateLimit, "daily generation limit reached")
	default:
		return nil
	}
}

type profileResolver interface {
	GetOrCreate(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

type generationCounter interface {
	CountForUserSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error)
}

// Service decides whether a user may run a generation. Read-only: the credit
// decrement happens after a successful generation, not here.
type Service struct {
	profiles   profileResolver
	counter    generationCounter
	logg       *logger.Logger
	dailyLimit int
}

// ServiceParams collects the entitlement service dependencies.
type ServiceParams struct {
	Profiles   profileResolver
	Counter    generationCounter
	Logger     *logger.Logger
	DailyLimit int
}

// NewService constructs the entitlement checker.
func NewService(params ServiceParams) (*Service, error) {
	if params.Profiles == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "profile resolver required")
	}
	if params.Counter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "generation counter required")
	}
	limit := params.DailyLimit
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	return &Service{
		profiles:   params.Profiles,
		counter:    params.Counter,
		logg:       params.Logger,
		dailyLimit: limit,
	}, nil
}

// Check resolves the caller's entitlement: an active subscription allows
// unconditionally; otherwise the user needs at least one credit and must be
// under the daily cap counted from 00:00 UTC. A failing daily-count query
// permits the request; losing one count beats blocking a user on a transient
// read error.
func (s *Service) Check(ctx context.Context, userID uuid.UUID) (Decision, error) {
	if userID == uuid.Nil {
		return Decision{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	profile, err := s.profiles.GetOrCreate(ctx, userID)
	if err != nil {
		return Decision{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	if profile == nil {
		return Decision{}, pkgerrors.New(pkgerrors.CodeInternal, "profile not persisted")
	}

	if profile.IsSubscriber() {
		return Decision{Allowed: true, Subscriber: true}, nil
	}

	if profile.Credits < 1 {
		return Decision{Allowed: false, Reason: DenialQuota}, nil
	}

	used, err := s.counter.CountForUserSince(ctx, userID, startOfDayUTC(time.Now()))
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(ctx, "daily generation count failed, permitting request")
		}
		return Decision{Allowed: true}, nil
	}
	if used >= int64(s.dailyLimit) {
		return Decision{Allowed: false, Reason: DenialDailyLimit}, nil
	}

	return Decision{Allowed: true}, nil
}

func startOfDayUTC(now time.Time) time.Time {
	utc := now.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}
