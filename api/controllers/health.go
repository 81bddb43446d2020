package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/openbiocard/openbiocard-backend/api/responses"
	"github.com/openbiocard/openbiocard-backend/pkg/config"
	pkgerrors "github.com/openbiocard/openbiocard-backend/pkg/errors"
	"github.com/openbiocard/openbiocard-backend/pkg/logger"
)

const (
	envHeader    = "X-OpenBioCard-Env"
	readyTimeout = 2 * time.Second
)

// Pinger is anything the readiness probe can check.
type Pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings storage and, when configured, redis. A nil redis pinger
// is reported as disabled rather than failing the probe.
func HealthReady(cfg *config.Config, logg *logger.Logger, storage Pinger, redis Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		checks := map[string]string{"storage": "ok", "redis": "disabled"}
		if storage != nil {
			if err := storage.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnavailable, err, "storage not ready"))
				return
			}
		}
		if redis != nil {
			if err := redis.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnavailable, err, "redis not ready"))
				return
			}
			checks["redis"] = "ok"
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
