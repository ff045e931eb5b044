package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/omarvides/restyle-backend/api/responses"
	"github.com/omarvides/restyle-backend/pkg/config"
	pkgerrors "github.com/omarvides/restyle-backend/pkg/errors"
	"github.com/omarvides/restyle-backend/pkg/logger"
)

const readinessTimeout = 3 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthLive reports process liveness without touching dependencies.
func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Restyle-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the database, redis, and object storage before
// declaring the instance ready for traffic.
func HealthReady(cfg *config.Config, logg *logger.Logger, db, redis, store pinger) http.HandlerFunc {
	checks := []struct {
		name   string
		target pinger
	}{
		{"db", db},
		{"redis", redis},
		{"storage", store},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Restyle-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		for _, check := range checks {
			if check.target == nil {
				continue
			}
			if err := check.target.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, check.name+" not ready"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
