package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"echoAppBack/internal/http/middleware"
	"echoAppBack/internal/pkg/logger/sl"
	"echoAppBack/internal/repository"
	authservice "echoAppBack/internal/service/auth"
)

// MeHandler returns the authenticated account's profile. It runs
// behind the session middleware, which puts the account id into the
// request context.
func MeHandler(
	log *slog.Logger,
	auth *authservice.Auth,
) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.MeHandler"

		log := log.With(slog.String("op", op))

		accountID, ok := middleware.AccountID(r.Context())
		if !ok {
			log.Error("no account id in request context")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		account, err := auth.Account(r.Context(), accountID)
		if err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				log.Info("account not found",
					slog.String("account_id", accountID.String()))
				http.Error(w, "Account not found", http.StatusNotFound)
				return
			}

			log.Error("failed to get account", sl.Err(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		if err := json.NewEncoder(w).Encode(account); err != nil {
			log.Error("failed to encode response", sl.Err(err))
			return
		}
	}
}
