package httpapp

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"echoAppBack/internal/http/handler"
	"echoAppBack/internal/http/middleware"
	"echoAppBack/internal/pkg/logger/sl"
	tg_client "echoAppBack/internal/pkg/tg"
	authservice "echoAppBack/internal/service/auth"
)

type Config struct {
	Port           int           `env:"PORT" env-default:"8080"`
	Timeout        time.Duration `env:"TIMEOUT" env-default:"30s"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" env-default:""`
}

type App struct {
	log        *slog.Logger
	httpServer *http.Server
	port       int
}

func New(
	log *slog.Logger,
	config *Config,
	auth *authservice.Auth,
	alerts *tg_client.Client,
) *App {
	router := http.NewServeMux()

	router.HandleFunc(
		"GET /healthz",
		handler.HealthHandler(),
	)

	router.HandleFunc(
		"POST /api/auth",
		handler.AuthHandler(log, auth),
	)

	router.HandleFunc(
		"GET /api/logout",
		handler.LogoutHandler(log),
	)

	router.Handle(
		"GET /api/me",
		middleware.Session(log, auth, http.HandlerFunc(handler.MeHandler(log, auth))),
	)

	var h http.Handler = router
	h = middleware.RequestID(log, h)
	h = middleware.Recovery(log, alerts, h)
	h = corsMiddleware(config.AllowedOrigins, h)

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(config.Port),
		Handler:      h,
		IdleTimeout:  time.Minute,
		ReadTimeout:  config.Timeout,
		WriteTimeout: config.Timeout,
	}

	return &App{log: log, httpServer: srv, port: config.Port}
}

func (a *App) MustRun() {
	if err := a.Run(); err != nil {
		panic(err)
	}
}

func (a *App) Run() error {
	const op = "httpapp.Run"

	a.log.With(slog.String("op", op)).
		Info("server started", slog.Int("port", a.port))

	if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		a.log.Error("failed to start http server", sl.Err(err))
		return err
	}

	return nil
}

func (a *App) Stop() {
	const op = "httpapp.Stop"

	a.log.With(slog.String("op", op)).
		Info("stopping HTTP server", slog.Int("port", a.port))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.log.Error("server closed with error", sl.Err(err))
		return
	}

	a.log.Info("gracefully stopped")
}

func corsMiddleware(allowedOrigins []string, next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if allowed[origin] {
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set(
				"Access-Control-Allow-Methods",
				"GET, POST, OPTIONS",
			)
			w.Header().Set(
				"Access-Control-Allow-Headers",
				"Origin, Content-Type, Authorization, Accept, X-InitData",
			)
			w.Header().Set("Access-Control-Max-Age", "43200")
		}

		w.Header().Set(
			"Cache-Control",
			"no-store, no-cache, must-revalidate, private",
		)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
