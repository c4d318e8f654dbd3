package models

import (
	"time"

	"github.com/google/uuid"
)

// Account is the durable identity record behind one Telegram user.
// ID and TelegramID never change after creation; IsAdmin and IsBanned
// are server-controlled and never taken from client data.
type Account struct {
	ID              uuid.UUID `json:"id"`
	TelegramID      int64     `json:"telegram_id"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	Username        string    `json:"username"`
	LanguageCode    string    `json:"language_code"`
	PhotoURL        string    `json:"photo_url"`
	AllowsWriteToPM bool      `json:"allows_write_to_pm"`
	IsAdmin         bool      `json:"is_admin"`
	IsBanned        bool      `json:"is_banned"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// AccountProfile carries the mutable profile fields of a verified
// Telegram identity, as extracted from init data.
type AccountProfile struct {
	TelegramID      int64
	FirstName       string
	LastName        string
	Username        string
	LanguageCode    string
	PhotoURL        string
	AllowsWriteToPM bool
}
