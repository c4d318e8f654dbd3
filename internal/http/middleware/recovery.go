package middleware

import (
	"fmt"
	"log/slog"
	"net/http"

	tg_client "echoAppBack/internal/pkg/tg"
)

// Recovery turns handler panics into a 500 and ships a report to the
// alerts chat when one is configured.
func Recovery(
	log *slog.Logger,
	alerts *tg_client.Client,
	next http.Handler,
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			log.Error("panic recovered",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Any("panic", rec),
			)

			go alerts.SendAlert(fmt.Sprintf(
				"panic in %s %s: %v", r.Method, r.URL.Path, rec,
			))

			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}()

		next.ServeHTTP(w, r)
	})
}
