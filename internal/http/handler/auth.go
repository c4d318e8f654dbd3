package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"echoAppBack/internal/pkg/cookie"
	"echoAppBack/internal/pkg/logger/sl"
	authservice "echoAppBack/internal/service/auth"
)

// AuthHandler authenticates a Telegram Mini App client from the
// X-InitData header, sets the session cookie and returns the account
// representation.
func AuthHandler(
	log *slog.Logger,
	auth *authservice.Auth,
) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.AuthHandler"

		log := log.With(slog.String("op", op))

		rawInitData := r.Header.Get("X-InitData")
		if rawInitData == "" {
			log.Info("missing X-InitData header")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		account, token, err := auth.Authenticate(r.Context(), rawInitData, time.Now())
		if err != nil {
			switch {
			case errors.Is(err, authservice.ErrMalformedInitData):
				http.Error(w, "Invalid init data", http.StatusBadRequest)
			case errors.Is(err, authservice.ErrUnauthorized):
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
			default:
				log.Error("authentication failed", sl.Err(err))
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		http.SetCookie(w, cookie.NewAuthToken(token, auth.SessionTTL()))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		if err := json.NewEncoder(w).Encode(account); err != nil {
			log.Error("failed to encode response", sl.Err(err))
			return
		}

		log.Info("auth request processed successfully",
			slog.String("account_id", account.ID.String()))
	}
}
