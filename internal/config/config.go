package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	httpapp "echoAppBack/internal/app/http"
	"echoAppBack/internal/pkg/initdata"
	tg_client "echoAppBack/internal/pkg/tg"
	"echoAppBack/internal/repository/postgres"
	"echoAppBack/internal/repository/rediscache"
)

type Config struct {
	Env      string            `env:"ENV" env-default:"local"`
	HTTP     httpapp.Config    `env-prefix:"HTTP_"`
	Postgres postgres.Config   `env-prefix:"POSTGRES_"`
	Redis    rediscache.Config `env-prefix:"REDIS_"`
	Auth     Auth              `env-prefix:"AUTH_"`
	Alerts   tg_client.Config  `env-prefix:"ALERTS_"`
}

type Auth struct {
	BotToken string `env:"BOT_TOKEN" env-required:"true"`

	// Telegram's Ed25519 key, hex. Defaults to the production key;
	// set the test-environment key when the Mini App runs against
	// Telegram's test servers.
	PublicKey string `env:"PUBLIC_KEY" env-default:""`

	SessionSecret  string        `env:"SESSION_SECRET" env-required:"true"`
	SessionTTL     time.Duration `env:"SESSION_TTL" env-default:"60s"`
	InitDataMaxAge time.Duration `env:"INITDATA_MAX_AGE" env-default:"30m"`
	RejectBanned   bool          `env:"REJECT_BANNED" env-default:"false"`
}

// MustLoad reads the configuration from environment variables.
func MustLoad() *Config {
	var cfg Config

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		panic("cannot read config from environment: " + err.Error())
	}

	if cfg.Auth.PublicKey == "" {
		cfg.Auth.PublicKey = initdata.TelegramPublicKey
	}

	return &cfg
}
