package authservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"echoAppBack/internal/domain/models"
	"echoAppBack/internal/pkg/initdata"
	jwtToken "echoAppBack/internal/pkg/jwt"
	"echoAppBack/internal/pkg/logger/sl"
	"echoAppBack/internal/repository"
)

var (
	// ErrMalformedInitData means the header could not be parsed at
	// all; clients get a 400 for it.
	ErrMalformedInitData = errors.New("malformed init data")

	// ErrUnauthorized covers every verification failure: bad hash,
	// bad signature, stale auth_date, bad or expired session token,
	// rejected banned account. The specific reason is only logged,
	// never returned, so callers cannot probe which check failed.
	ErrUnauthorized = errors.New("unauthorized")
)

type AccountStorage interface {
	Upsert(
		ctx context.Context,
		id uuid.UUID,
		profile models.AccountProfile,
		now time.Time,
	) (*models.Account, bool, error)
	Account(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

type AccountCache interface {
	Account(id uuid.UUID) (*models.Account, error)
	Set(account *models.Account) error
}

type Config struct {
	SessionSecret []byte
	SessionTTL    time.Duration
	RejectBanned  bool
}

type Auth struct {
	log      *slog.Logger
	verifier *initdata.Verifier
	accounts AccountStorage
	cache    AccountCache
	config   Config
}

func New(
	log *slog.Logger,
	verifier *initdata.Verifier,
	accounts AccountStorage,
	cache AccountCache,
	config Config,
) *Auth {
	return &Auth{
		log:      log,
		verifier: verifier,
		accounts: accounts,
		cache:    cache,
		config:   config,
	}
}

func (a *Auth) SessionTTL() time.Duration {
	return a.config.SessionTTL
}

// Authenticate runs one full authentication attempt: parse the raw
// header, verify it, sync the identity into storage and mint a
// session token for the resulting account.
func (a *Auth) Authenticate(
	ctx context.Context,
	rawInitData string,
	now time.Time,
) (*models.Account, string, error) {
	const op = "Auth.Authenticate"

	log := a.log.With(slog.String("op", op))

	data, err := initdata.Parse(rawInitData)
	if err != nil {
		log.Info("failed to parse init data", sl.Err(err))

		return nil, "", fmt.Errorf("%s: %w", op, ErrMalformedInitData)
	}

	if err := a.verifier.Verify(data, now); err != nil {
		log.Info("init data verification failed", sl.Err(err))

		return nil, "", fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	if data.User.ID == 0 {
		log.Info("init data has no user id")

		return nil, "", fmt.Errorf("%s: %w", op, ErrMalformedInitData)
	}

	account, err := a.resolveAccount(ctx, log, data.User, now)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	if account.IsBanned {
		if a.config.RejectBanned {
			log.Info("banned account rejected",
				slog.Int64("telegram_id", account.TelegramID))

			return nil, "", fmt.Errorf("%s: %w", op, ErrUnauthorized)
		}

		log.Info("banned account authenticated",
			slog.Int64("telegram_id", account.TelegramID))
	}

	token, err := jwtToken.New(account.ID, now, a.config.SessionTTL, a.config.SessionSecret)
	if err != nil {
		log.Error("failed to sign session token", sl.Err(err))

		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("session issued",
		slog.String("account_id", account.ID.String()),
		slog.Int64("telegram_id", account.TelegramID))

	return account, token, nil
}

// resolveAccount upserts the verified identity. The storage layer
// reports a lost insert race as ErrConflict; one retry lands on the
// update path of the same upsert.
func (a *Auth) resolveAccount(
	ctx context.Context,
	log *slog.Logger,
	user initdata.User,
	now time.Time,
) (*models.Account, error) {
	profile := models.AccountProfile{
		TelegramID:      user.ID,
		FirstName:       user.FirstName,
		LastName:        user.LastName,
		Username:        user.Username,
		LanguageCode:    user.LanguageCode,
		PhotoURL:        user.PhotoURL,
		AllowsWriteToPM: user.AllowsWriteToPM,
	}

	account, created, err := a.accounts.Upsert(ctx, uuid.New(), profile, now)
	if errors.Is(err, repository.ErrConflict) {
		log.Warn("account upsert conflict, retrying", sl.Err(err))

		account, created, err = a.accounts.Upsert(ctx, uuid.New(), profile, now)
	}
	if err != nil {
		log.Error("failed to upsert account", sl.Err(err))

		return nil, err
	}

	if created {
		log.Info("account created",
			slog.String("account_id", account.ID.String()),
			slog.Int64("telegram_id", account.TelegramID))
	}

	if err := a.cache.Set(account); err != nil {
		log.Warn("failed to cache account", sl.Err(err))
	}

	return account, nil
}

// ValidateSession checks a session token and returns the account id
// it was issued for.
func (a *Auth) ValidateSession(token string, now time.Time) (uuid.UUID, error) {
	const op = "Auth.ValidateSession"

	userID, err := jwtToken.Verify(token, now, a.config.SessionSecret)
	if err != nil {
		a.log.With(slog.String("op", op)).
			Debug("session token rejected", sl.Err(err))

		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	return userID, nil
}

// Account fetches an account by id, consulting the cache first. Cache
// failures degrade to a storage read.
func (a *Auth) Account(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	const op = "Auth.Account"

	log := a.log.With(slog.String("op", op))

	cached, err := a.cache.Account(id)
	if err != nil {
		log.Warn("failed to read account cache", sl.Err(err))
	}
	if cached != nil {
		return cached, nil
	}

	account, err := a.accounts.Account(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, fmt.Errorf("%s: %w", op, repository.ErrAccountNotFound)
		}

		log.Error("failed to get account", sl.Err(err))

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := a.cache.Set(account); err != nil {
		log.Warn("failed to cache account", sl.Err(err))
	}

	return account, nil
}
