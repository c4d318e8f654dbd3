package authservice_test

import (
	"context"
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echoAppBack/internal/domain/models"
	"echoAppBack/internal/pkg/initdata"
	jwtToken "echoAppBack/internal/pkg/jwt"
	"echoAppBack/internal/repository"
	authservice "echoAppBack/internal/service/auth"
)

const testBotToken = "123456789:AAFmGjVvbD0Y-test-bot-token"

var testSessionSecret = []byte("test-session-secret")

type fakeStorage struct {
	mu           sync.Mutex
	byTelegramID map[int64]*models.Account
	conflicts    int
	upsertCalls  int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{byTelegramID: make(map[int64]*models.Account)}
}

func (f *fakeStorage) Upsert(
	_ context.Context,
	id uuid.UUID,
	profile models.AccountProfile,
	now time.Time,
) (*models.Account, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.upsertCalls++

	if f.conflicts > 0 {
		f.conflicts--
		return nil, false, repository.ErrConflict
	}

	if existing, ok := f.byTelegramID[profile.TelegramID]; ok {
		existing.FirstName = profile.FirstName
		existing.LastName = profile.LastName
		existing.Username = profile.Username
		existing.LanguageCode = profile.LanguageCode
		existing.PhotoURL = profile.PhotoURL
		existing.AllowsWriteToPM = profile.AllowsWriteToPM
		existing.UpdatedAt = now

		copied := *existing
		return &copied, false, nil
	}

	account := &models.Account{
		ID:              id,
		TelegramID:      profile.TelegramID,
		FirstName:       profile.FirstName,
		LastName:        profile.LastName,
		Username:        profile.Username,
		LanguageCode:    profile.LanguageCode,
		PhotoURL:        profile.PhotoURL,
		AllowsWriteToPM: profile.AllowsWriteToPM,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	f.byTelegramID[profile.TelegramID] = account

	copied := *account
	return &copied, true, nil
}

func (f *fakeStorage) Account(_ context.Context, id uuid.UUID) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, account := range f.byTelegramID {
		if account.ID == id {
			copied := *account
			return &copied, nil
		}
	}

	return nil, repository.ErrAccountNotFound
}

type fakeCache struct {
	mu sync.Mutex
	m  map[uuid.UUID]*models.Account
}

func newFakeCache() *fakeCache {
	return &fakeCache{m: make(map[uuid.UUID]*models.Account)}
}

func (c *fakeCache) Account(id uuid.UUID) (*models.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	account, ok := c.m[id]
	if !ok {
		return nil, nil
	}

	copied := *account
	return &copied, nil
}

func (c *fakeCache) Set(account *models.Account) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	copied := *account
	c.m[account.ID] = &copied
	return nil
}

func buildInitData(t *testing.T, botToken string, fields map[string]string) string {
	t.Helper()

	lines := make([]string, 0, len(fields))
	for k, v := range fields {
		lines = append(lines, k+"="+v)
	}
	sort.Strings(lines)
	checkString := strings.Join(lines, "\n")

	keyMac := hmac.New(sha256.New, []byte("WebAppData"))
	keyMac.Write([]byte(botToken))

	mac := hmac.New(sha256.New, keyMac.Sum(nil))
	mac.Write([]byte(checkString))

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(fields)+1)
	for _, k := range keys {
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(fields[k]))
	}
	parts = append(parts, "hash="+hex.EncodeToString(mac.Sum(nil)))

	return strings.Join(parts, "&")
}

func validInitData(t *testing.T, telegramID int64, now time.Time) string {
	t.Helper()

	return buildInitData(t, testBotToken, map[string]string{
		"user":      `{"id":` + strconv.FormatInt(telegramID, 10) + `,"first_name":"Ann","username":"ann"}`,
		"auth_date": strconv.FormatInt(now.Unix(), 10),
	})
}

func newTestAuth(t *testing.T, storage *fakeStorage, cache *fakeCache, rejectBanned bool) *authservice.Auth {
	t.Helper()

	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	verifier, err := initdata.NewVerifier(testBotToken, hex.EncodeToString(pub), 30*time.Minute)
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return authservice.New(log, verifier, storage, cache, authservice.Config{
		SessionSecret: testSessionSecret,
		SessionTTL:    60 * time.Second,
		RejectBanned:  rejectBanned,
	})
}

func TestAuthenticate_Success(t *testing.T) {
	storage := newFakeStorage()
	auth := newTestAuth(t, storage, newFakeCache(), false)
	now := time.Now()

	account, token, err := auth.Authenticate(context.Background(), validInitData(t, 1234567890, now), now)
	require.NoError(t, err)
	require.NotNil(t, account)

	assert.Equal(t, int64(1234567890), account.TelegramID)
	assert.Equal(t, "Ann", account.FirstName)
	assert.False(t, account.IsAdmin)
	assert.False(t, account.IsBanned)

	// The issued token's subject is the resolved account.
	subject, err := jwtToken.Verify(token, now, testSessionSecret)
	require.NoError(t, err)
	assert.Equal(t, account.ID, subject)
}

func TestAuthenticate_Idempotent(t *testing.T) {
	storage := newFakeStorage()
	auth := newTestAuth(t, storage, newFakeCache(), false)

	first := time.Now()
	account1, _, err := auth.Authenticate(context.Background(), validInitData(t, 42, first), first)
	require.NoError(t, err)

	second := first.Add(5 * time.Second)
	account2, _, err := auth.Authenticate(context.Background(), validInitData(t, 42, second), second)
	require.NoError(t, err)

	assert.Equal(t, account1.ID, account2.ID)
	assert.Equal(t, account1.CreatedAt, account2.CreatedAt)
	assert.True(t, account2.UpdatedAt.After(account1.UpdatedAt))
	assert.Len(t, storage.byTelegramID, 1)
}

func TestAuthenticate_ConcurrentFirstLogin(t *testing.T) {
	storage := newFakeStorage()
	auth := newTestAuth(t, storage, newFakeCache(), false)
	now := time.Now()
	raw := validInitData(t, 777, now)

	const workers = 16

	var wg sync.WaitGroup
	ids := make([]uuid.UUID, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			account, token, err := auth.Authenticate(context.Background(), raw, now)
			if err != nil {
				errs[i] = err
				return
			}
			subject, err := jwtToken.Verify(token, now, testSessionSecret)
			if err != nil {
				errs[i] = err
				return
			}
			if subject != account.ID {
				errs[i] = assert.AnError
				return
			}
			ids[i] = account.ID
		}(i)
	}
	wg.Wait()

	require.Len(t, storage.byTelegramID, 1)
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
}

func TestAuthenticate_RetriesOnConflict(t *testing.T) {
	storage := newFakeStorage()
	storage.conflicts = 1
	auth := newTestAuth(t, storage, newFakeCache(), false)
	now := time.Now()

	account, _, err := auth.Authenticate(context.Background(), validInitData(t, 7, now), now)
	require.NoError(t, err)
	assert.Equal(t, int64(7), account.TelegramID)
	assert.Equal(t, 2, storage.upsertCalls)
}

func TestAuthenticate_SurfacesRepeatedConflict(t *testing.T) {
	storage := newFakeStorage()
	storage.conflicts = 2
	auth := newTestAuth(t, storage, newFakeCache(), false)
	now := time.Now()

	_, _, err := auth.Authenticate(context.Background(), validInitData(t, 7, now), now)
	require.ErrorIs(t, err, repository.ErrConflict)
}

func TestAuthenticate_Banned(t *testing.T) {
	now := time.Now()

	seedBanned := func(storage *fakeStorage) {
		account, _, err := storage.Upsert(context.Background(), uuid.New(), models.AccountProfile{TelegramID: 13}, now)
		require.NoError(t, err)
		storage.byTelegramID[account.TelegramID].IsBanned = true
	}

	t.Run("issue then restrict", func(t *testing.T) {
		storage := newFakeStorage()
		seedBanned(storage)
		auth := newTestAuth(t, storage, newFakeCache(), false)

		account, token, err := auth.Authenticate(context.Background(), validInitData(t, 13, now), now)
		require.NoError(t, err)
		assert.True(t, account.IsBanned)
		assert.NotEmpty(t, token)
	})

	t.Run("reject at login", func(t *testing.T) {
		storage := newFakeStorage()
		seedBanned(storage)
		auth := newTestAuth(t, storage, newFakeCache(), true)

		_, _, err := auth.Authenticate(context.Background(), validInitData(t, 13, now), now)
		require.ErrorIs(t, err, authservice.ErrUnauthorized)
	})
}

func TestAuthenticate_Rejections(t *testing.T) {
	storage := newFakeStorage()
	auth := newTestAuth(t, storage, newFakeCache(), false)
	now := time.Now()

	t.Run("malformed", func(t *testing.T) {
		_, _, err := auth.Authenticate(context.Background(), "auth_date=notanumber&hash=aa", now)
		require.ErrorIs(t, err, authservice.ErrMalformedInitData)
	})

	t.Run("corrupted hash", func(t *testing.T) {
		raw := validInitData(t, 99, now)
		tampered := strings.Replace(raw, "Ann", "Bob", 1)

		_, _, err := auth.Authenticate(context.Background(), tampered, now)
		require.ErrorIs(t, err, authservice.ErrUnauthorized)
	})

	t.Run("stale auth_date", func(t *testing.T) {
		_, _, err := auth.Authenticate(context.Background(), validInitData(t, 99, now.Add(-2*time.Hour)), now)
		require.ErrorIs(t, err, authservice.ErrUnauthorized)
	})

	t.Run("no user id", func(t *testing.T) {
		raw := buildInitData(t, testBotToken, map[string]string{
			"auth_date": strconv.FormatInt(now.Unix(), 10),
		})

		_, _, err := auth.Authenticate(context.Background(), raw, now)
		require.ErrorIs(t, err, authservice.ErrMalformedInitData)
	})

	// No rejection path may leave an account behind.
	assert.Empty(t, storage.byTelegramID)
}

func TestValidateSession(t *testing.T) {
	auth := newTestAuth(t, newFakeStorage(), newFakeCache(), false)
	now := time.Now()
	userID := uuid.New()

	token, err := jwtToken.New(userID, now, 60*time.Second, testSessionSecret)
	require.NoError(t, err)

	got, err := auth.ValidateSession(token, now.Add(59*time.Second))
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	_, err = auth.ValidateSession(token, now.Add(61*time.Second))
	require.ErrorIs(t, err, authservice.ErrUnauthorized)

	_, err = auth.ValidateSession("garbage", now)
	require.ErrorIs(t, err, authservice.ErrUnauthorized)
}

func TestAccount_CacheFlow(t *testing.T) {
	storage := newFakeStorage()
	cache := newFakeCache()
	auth := newTestAuth(t, storage, cache, false)
	now := time.Now()

	account, _, err := auth.Authenticate(context.Background(), validInitData(t, 55, now), now)
	require.NoError(t, err)

	// Authenticate write-through: the cache already has the account.
	cached, err := cache.Account(account.ID)
	require.NoError(t, err)
	require.NotNil(t, cached)

	got, err := auth.Account(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)

	t.Run("miss falls back to storage", func(t *testing.T) {
		emptyCache := newFakeCache()
		auth := newTestAuth(t, storage, emptyCache, false)

		got, err := auth.Account(context.Background(), account.ID)
		require.NoError(t, err)
		assert.Equal(t, account.ID, got.ID)

		refilled, err := emptyCache.Account(account.ID)
		require.NoError(t, err)
		assert.NotNil(t, refilled)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := auth.Account(context.Background(), uuid.New())
		require.ErrorIs(t, err, repository.ErrAccountNotFound)
	})
}
