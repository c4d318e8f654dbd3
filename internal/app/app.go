package app

import (
	"log/slog"

	httpapp "echoAppBack/internal/app/http"
	"echoAppBack/internal/config"
	"echoAppBack/internal/pkg/initdata"
	"echoAppBack/internal/pkg/logger/sl"
	tg_client "echoAppBack/internal/pkg/tg"
	"echoAppBack/internal/repository/postgres"
	postgresAccount "echoAppBack/internal/repository/postgres/account"
	"echoAppBack/internal/repository/rediscache"
	authservice "echoAppBack/internal/service/auth"
)

type App struct {
	HTTPServer *httpapp.App
	Alerts     *tg_client.Client
}

func New(log *slog.Logger, cfg *config.Config) *App {
	pool, err := postgres.NewConnPool(&cfg.Postgres)
	if err != nil {
		panic(err)
	}

	accountStorage := postgresAccount.New(pool)
	accountCache := rediscache.New(&cfg.Redis)

	verifier, err := initdata.NewVerifier(
		cfg.Auth.BotToken,
		cfg.Auth.PublicKey,
		cfg.Auth.InitDataMaxAge,
	)
	if err != nil {
		panic(err)
	}

	authService := authservice.New(
		log,
		verifier,
		accountStorage,
		accountCache,
		authservice.Config{
			SessionSecret: []byte(cfg.Auth.SessionSecret),
			SessionTTL:    cfg.Auth.SessionTTL,
			RejectBanned:  cfg.Auth.RejectBanned,
		},
	)

	alerts, err := tg_client.New(&cfg.Alerts)
	if err != nil {
		log.Error("failed to create alert client", sl.Err(err))
	}

	httpApp := httpapp.New(log, &cfg.HTTP, authService, alerts)

	return &App{
		HTTPServer: httpApp,
		Alerts:     alerts,
	}
}
