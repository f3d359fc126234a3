package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/uniserve/uniserve/pkg/logger"
)

// Check probes a single dependency and reports whether it is usable.
type Check func(ctx context.Context) error

// HealthCheckHandler reports liveness when called without checks and
// readiness otherwise: it runs every check and returns 503 as soon as
// one fails. Check failures are logged, not exposed to the client.
func HealthCheckHandler(log *slog.Logger, checks map[string]Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				log.ErrorContext(r.Context(), "health check failed",
					slog.String("check", name),
					logger.Error(err),
				)
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte("NOT_READY"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
}
