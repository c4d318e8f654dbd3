package rediscache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/google/uuid"

	"echoAppBack/internal/domain/models"
)

type Config struct {
	Address  string        `env:"ADDRESS" env-default:"localhost:6379"`
	Password string        `env:"PASSWORD" env-default:""`
	TTL      time.Duration `env:"TTL" env-default:"10s"`
}

// AccountCache is a read-through cache in front of the accounts table.
// It only serves profile reads; the identity resolver always goes to
// postgres so the telegram_id uniqueness invariant never depends on
// cache coherence.
type AccountCache struct {
	pool *redis.Pool
	ttl  time.Duration
}

func New(config *Config) *AccountCache {
	pool := &redis.Pool{
		MaxIdle:     3,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			c, err := redis.Dial("tcp", config.Address)
			if err != nil {
				return nil, err
			}
			if config.Password != "" {
				if _, err := c.Do("AUTH", config.Password); err != nil {
					c.Close()
					return nil, err
				}
			}
			return c, err
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			_, err := c.Do("PING")
			return err
		},
	}

	return &AccountCache{pool: pool, ttl: config.TTL}
}

// Account returns the cached account or (nil, nil) on a miss.
func (c *AccountCache) Account(id uuid.UUID) (*models.Account, error) {
	conn := c.pool.Get()
	defer conn.Close()

	data, err := redis.Bytes(conn.Do("GET", accountKey(id)))
	if err != nil {
		if err == redis.ErrNil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account from redis: %w", err)
	}

	var account models.Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %w", err)
	}

	return &account, nil
}

func (c *AccountCache) Set(account *models.Account) error {
	conn := c.pool.Get()
	defer conn.Close()

	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}

	_, err = conn.Do("SETEX", accountKey(account.ID), int(c.ttl.Seconds()), data)
	if err != nil {
		return fmt.Errorf("failed to save account to redis: %w", err)
	}

	return nil
}

func (c *AccountCache) Delete(id uuid.UUID) error {
	conn := c.pool.Get()
	defer conn.Close()

	_, err := conn.Do("DEL", accountKey(id))
	if err != nil {
		return fmt.Errorf("failed to delete account from redis: %w", err)
	}

	return nil
}

func (c *AccountCache) Close() error {
	return c.pool.Close()
}

func accountKey(id uuid.UUID) string {
	return fmt.Sprintf("account:%s", id)
}
