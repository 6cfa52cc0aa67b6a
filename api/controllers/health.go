package controllers

import (
	"context"
	"net/http"

	"github.com/promptmart/promptmart-backend/api/responses"
	"github.com/promptmart/promptmart-backend/pkg/config"
	pkgerrors "github.com/promptmart/promptmart-backend/pkg/errors"
	"github.com/promptmart/promptmart-backend/pkg/logger"
)

type dependencyPinger interface {
	Ping(ctx context.Context) error
}

// HealthDependencies names the backends the readiness probe checks.
type HealthDependencies struct {
	Database dependencyPinger
	Redis    dependencyPinger
	Storage  dependencyPinger
	PubSub   dependencyPinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-PromptMart-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, deps HealthDependencies, logg *logger.Logger) http.HandlerFunc {
	checks := []struct {
		name   string
		pinger dependencyPinger
	}{
		{"database", deps.Database},
		{"redis", deps.Redis},
		{"storage", deps.Storage},
		{"pubsub", deps.PubSub},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-PromptMart-Env", cfg.App.Env)

		for _, check := range checks {
			if check.pinger == nil {
				continue
			}
			if err := check.pinger.Ping(r.Context()); err != nil {
				wrapped := pkgerrors.Wrap(pkgerrors.CodeDependency, err, check.name+" unavailable").
					WithDetails(map[string]any{"dependency": check.name})
				responses.WriteError(r.Context(), logg, w, wrapped)
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
