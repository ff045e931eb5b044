package controllers

import (
	"net/http"

	"github.com/omarvides/restyle-backend/api/responses"
	"github.com/omarvides/restyle-backend/internal/showcase"
	pkgerrors "github.com/omarvides/restyle-backend/pkg/errors"
	"github.com/omarvides/restyle-backend/pkg/logger"
)

// ShowcaseList returns the curated before/after gallery. Public, no auth.
func ShowcaseList(svc showcase.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "showcase service unavailable"))
			return
		}

		examples, err := svc.ListExamples(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"examples": examples})
	}
}
