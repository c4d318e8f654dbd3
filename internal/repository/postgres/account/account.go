package postgresAccount

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"echoAppBack/internal/domain/models"
	repo "echoAppBack/internal/repository"
)

type Storage struct {
	db *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Storage {
	return &Storage{db: pool}
}

const accountColumns = `id, telegram_id, first_name, last_name, username, language_code,
	photo_url, allows_write_to_pm, is_admin, is_banned, created_at, updated_at`

// Upsert inserts a new account for profile.TelegramID or refreshes the
// profile fields of the existing one. The conflict target is the
// unique telegram_id index, so concurrent first-time logins collapse
// into one row. id is only used on insert; is_admin and is_banned are
// never written on update.
func (s *Storage) Upsert(
	ctx context.Context,
	id uuid.UUID,
	profile models.AccountProfile,
	now time.Time,
) (*models.Account, bool, error) {
	query := `
		INSERT INTO accounts (
			id, telegram_id, first_name, last_name, username, language_code,
			photo_url, allows_write_to_pm, is_admin, is_banned, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, FALSE, $9, $9)
		ON CONFLICT (telegram_id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			username = EXCLUDED.username,
			language_code = EXCLUDED.language_code,
			photo_url = EXCLUDED.photo_url,
			allows_write_to_pm = EXCLUDED.allows_write_to_pm,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + accountColumns + `, (xmax = 0) AS was_created`

	var account models.Account
	var wasCreated bool

	err := s.db.QueryRow(
		ctx,
		query,
		id,
		profile.TelegramID,
		profile.FirstName,
		profile.LastName,
		profile.Username,
		profile.LanguageCode,
		profile.PhotoURL,
		profile.AllowsWriteToPM,
		now,
	).Scan(
		&account.ID,
		&account.TelegramID,
		&account.FirstName,
		&account.LastName,
		&account.Username,
		&account.LanguageCode,
		&account.PhotoURL,
		&account.AllowsWriteToPM,
		&account.IsAdmin,
		&account.IsBanned,
		&account.CreatedAt,
		&account.UpdatedAt,
		&wasCreated,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) &&
			(pgErr.Code == "23505" || pgErr.Code == "40001") {
			return nil, false, repo.ErrConflict
		}
		return nil, false, fmt.Errorf("database error: %w", err)
	}

	return &account, wasCreated, nil
}

func (s *Storage) Account(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account, err := s.scanAccount(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrAccountNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	return account, nil
}

func (s *Storage) AccountByTelegramID(ctx context.Context, telegramID int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE telegram_id = $1`

	account, err := s.scanAccount(s.db.QueryRow(ctx, query, telegramID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrAccountNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	return account, nil
}

func (s *Storage) scanAccount(row pgx.Row) (*models.Account, error) {
	var account models.Account

	err := row.Scan(
		&account.ID,
		&account.TelegramID,
		&account.FirstName,
		&account.LastName,
		&account.Username,
		&account.LanguageCode,
		&account.PhotoURL,
		&account.AllowsWriteToPM,
		&account.IsAdmin,
		&account.IsBanned,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &account, nil
}
