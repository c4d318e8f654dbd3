package tg_client

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Config struct {
	Token  string `env:"TOKEN" env-default:""`
	ChatID int64  `env:"CHAT_ID" env-default:"0"`
}

// Client ships operational alerts (startup, panics) to an admin chat.
// A nil client is valid and drops every message, so wiring stays the
// same when alerting is not configured.
type Client struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func New(config *Config) (*Client, error) {
	if config.Token == "" || config.ChatID == 0 {
		return nil, nil
	}

	bot, err := tgbotapi.NewBotAPI(config.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create alert bot: %w", err)
	}

	return &Client{bot: bot, chatID: config.ChatID}, nil
}

func (c *Client) SendAlert(message string) error {
	if c == nil {
		return nil
	}

	msg := tgbotapi.NewMessage(c.chatID, message)

	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send alert: %w", err)
	}

	return nil
}
