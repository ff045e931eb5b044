package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/omarvides/restyle-backend/api/middleware"
	"github.com/omarvides/restyle-backend/api/responses"
	"github.com/omarvides/restyle-backend/internal/billing"
	pkgerrors "github.com/omarvides/restyle-backend/pkg/errors"
	"github.com/omarvides/restyle-backend/pkg/logger"
)

// CheckoutService creates hosted checkout sessions for the billing provider.
type CheckoutService interface {
	CreateCheckout(ctx context.Context, userID uuid.UUID, email string) (*billing.CheckoutSession, error)
}

// BillingCheckout returns a hosted checkout URL carrying the caller's identity.
func BillingCheckout(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		uid, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		email := middleware.UserEmailFromContext(r.Context())

		session, err := svc.CreateCheckout(r.Context(), uid, email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}
