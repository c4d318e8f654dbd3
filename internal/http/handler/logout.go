package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"echoAppBack/internal/pkg/cookie"
)

type LogoutResponse struct {
	Message string `json:"message"`
}

// LogoutHandler expires the auth cookie. Nothing is revoked server
// side; an already-captured token stays valid until its TTL runs out.
func LogoutHandler(log *slog.Logger) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.LogoutHandler"

		http.SetCookie(w, cookie.ExpiredAuthToken())

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(LogoutResponse{Message: "Logged out"})

		log.With(slog.String("op", op)).Info("user logged out")
	}
}
