package lemonsqueezywebhook

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/omarvides/restyle-backend/internal/billing"
	"github.com/omarvides/restyle-backend/internal/profiles"
	"github.com/omarvides/restyle-backend/pkg/db"
	"github.com/omarvides/restyle-backend/pkg/db/models"
	"github.com/omarvides/restyle-backend/pkg/enums"
	pkgerrors "github.com/omarvides/restyle-backend/pkg/errors"
	"github.com/omarvides/restyle-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams collects the webhook service dependencies.
type ServiceParams struct {
	ProfileRepo       profiles.Repository
	BillingRepo       billing.Repository
	TransactionRunner txRunner
	Logger            *logger.Logger
	SubscriberCredits int
}

// Service applies billing provider events to entitlement state.
type Service struct {
	profileRepo       profiles.Repository
	billingRepo       billing.Repository
	txRunner          txRunner
	logg              *logger.Logger
	subscriberCredits int
}

// NewService constructs the billing webhook service.
func NewService(params ServiceParams) (*Service, error) {
	if params.ProfileRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "profile repo required")
	}
	if params.BillingRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "billing repo required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.SubscriberCredits <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscriber credits must be positive")
	}
	return &Service{
		profileRepo:       params.ProfileRepo,
		billingRepo:       params.BillingRepo,
		txRunner:          params.TransactionRunner,
		logg:              params.Logger,
		subscriberCredits: params.SubscriberCredits,
	}, nil
}

// Event is the provider's webhook envelope: the event name and the buyer's
// custom data ride in meta, the order/subscription body in data.
type Event struct {
	Meta EventMeta `json:"meta"`
	Data EventData `json:"data"`

	// Raw carries the original body for the audit log. Set by the controller.
	Raw json.RawMessage `json:"-"`
}

// EventMeta holds the event name and checkout custom data.
type EventMeta struct {
	EventName  string            `json:"event_name"`
	CustomData map[string]string `json:"custom_data"`
}

// EventData is the JSON:API resource the event describes.
type EventData struct {
	Type       string          `json:"type"`
	ID         string          `json:"id"`
	Attributes EventAttributes `json:"attributes"`
}

// EventAttributes carries the order/subscription fields we record.
type EventAttributes struct {
	Status     string          `json:"status"`
	CustomerID json.Number     `json:"customer_id"`
	Total      decimal.Decimal `json:"total"`
	Currency   string          `json:"currency"`
}

// EventID derives the idempotency key for a delivery.
func (e *Event) EventID() string {
	if e == nil {
		return ""
	}
	name := strings.TrimSpace(e.Meta.EventName)
	id := strings.TrimSpace(e.Data.ID)
	if id == "" {
		return ""
	}
	return name + ":" + id
}

// HandleEvent applies one verified event. Activation events flip the profile
// to subscriber status with the unlimited credit sentinel and append an audit
// row; anything else is acknowledged and ignored. The transition is a fixed
// target state, so replays and out-of-order deliveries converge.
func (s *Service) HandleEvent(ctx context.Context, event *Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "event required")
	}

	eventType := enums.BillingEventType(strings.ToLower(strings.TrimSpace(event.Meta.EventName)))
	if !eventType.ActivatesSubscription() {
		if s.logg != nil {
			s.logg.Info(ctx, "ignoring billing event "+event.Meta.EventName)
		}
		return nil
	}

	rawUserID := ""
	if event.Meta.CustomData != nil {
		rawUserID = strings.TrimSpace(event.Meta.CustomData["user_id"])
	}
	if rawUserID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "custom_data.user_id missing")
	}
	userID, err := uuid.Parse(rawUserID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.profileRepo.WithTx(tx).ActivateSubscription(ctx, userID, s.subscriberCredits, event.Data.Attributes.CustomerID.String()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "activate subscription")
		}

		audit := &models.BillingEvent{
			ID:              uuid.New(),
			ProviderEventID: event.EventID(),
			EventType:       eventType,
			UserID:          userID,
			OrderTotal:      event.Data.Attributes.Total,
			Currency:        event.Data.Attributes.Currency,
			Payload:         event.Raw,
		}
		if err := s.billingRepo.WithTx(tx).CreateEvent(ctx, audit); err != nil {
			if db.IsUniqueViolation(err, "idx_billing_events_provider_event") {
				// replayed delivery that slipped past the guard
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record billing event")
		}
		return nil
	})
}
