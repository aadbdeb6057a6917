// Package middleware adapts the shared HTTP middleware to the admin API's
// JSON error format and logger.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/arenasession/internal/api/apierr"
	"github.com/mcoot/arenasession/internal/middleware"
)

// Recovery turns handler panics into a JSON INTERNAL_ERROR response
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger.With(slog.String("component", "api")), func(w http.ResponseWriter, _ *http.Request, _ any) {
		apierr.WriteError(w, apierr.NewInternalError())
	})
}
