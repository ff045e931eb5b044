package billing

import (
	"context"

	"github.com/google/uuid"

	pkgerrors "github.com/omarvides/restyle-backend/pkg/errors"
	"github.com/omarvides/restyle-backend/pkg/lemonsqueezy"
)

type checkoutClient interface {
	CreateCheckout(ctx context.Context, params lemonsqueezy.CheckoutParams) (string, error)
}

// Service creates hosted checkout sessions.
type Service struct {
	client checkoutClient
}

// NewService constructs the billing service.
func NewService(client checkoutClient) (*Service, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout client required")
	}
	return &Service{client: client}, nil
}

// CheckoutSession is the caller-facing checkout handle.
type CheckoutSession struct {
	URL string `json:"checkout_url"`
}

// CreateCheckout opens a checkout session carrying the user id so the webhook
// can attribute the purchase back to a profile.
func (s *Service) CreateCheckout(ctx context.Context, userID uuid.UUID, email string) (*CheckoutSession, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	url, err := s.client.CreateCheckout(ctx, lemonsqueezy.CheckoutParams{
		UserID: userID.String(),
		Email:  email,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}
	return &CheckoutSession{URL: url}, nil
}
