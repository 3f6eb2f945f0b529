package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultCooldown    = 30 * time.Second
	defaultHourlyLimit = 5
)

// Store keeps one live code hash per (purpose, identity) with its failed
// attempt counter and resend limits.
type Store interface {
	Reserve(ctx context.Context, purpose Purpose, identity string) error
	Put(ctx context.Context, purpose Purpose, identity, hash string, ttl time.Duration) error
	Get(ctx context.Context, purpose Purpose, identity string) (string, error)
	Fail(ctx context.Context, purpose Purpose, identity string, ttl time.Duration) (int64, error)
	Consume(ctx context.Context, purpose Purpose, identity string) (bool, error)
	Discard(ctx context.Context, purpose Purpose, identity string) error
}

type redisStore struct {
	rdb         redis.Cmdable
	cooldown    time.Duration
	hourlyLimit int64
}

func NewRedisStore(rdb redis.Cmdable) Store {
	return &redisStore{
		rdb:         rdb,
		cooldown:    defaultCooldown,
		hourlyLimit: defaultHourlyLimit,
	}
}

func codeKey(p Purpose, identity string) string {
	return fmt.Sprintf("otp:%s:%s", p, identity)
}

func attemptsKey(p Purpose, identity string) string {
	return codeKey(p, identity) + ":attempts"
}

func cooldownKey(p Purpose, identity string) string {
	return codeKey(p, identity) + ":cooldown"
}

func hourlyKey(p Purpose, identity string) string {
	return codeKey(p, identity) + ":hourly"
}

// Reserve claims the right to issue a new code: one per cooldown window and
// at most hourlyLimit per hour.
func (s *redisStore) Reserve(ctx context.Context, purpose Purpose, identity string) error {
	ok, err := s.rdb.SetNX(ctx, cooldownKey(purpose, identity), "1", s.cooldown).Result()
	if err != nil {
		return fmt.Errorf("otp cooldown: %w", err)
	}
	if !ok {
		return ErrRateLimited
	}

	hk := hourlyKey(purpose, identity)
	n, err := s.rdb.Incr(ctx, hk).Result()
	if err != nil {
		return fmt.Errorf("otp hourly counter: %w", err)
	}
	if n == 1 {
		if err := s.rdb.Expire(ctx, hk, time.Hour).Err(); err != nil {
			return fmt.Errorf("otp hourly expiry: %w", err)
		}
	}
	if n > s.hourlyLimit {
		return ErrRateLimited
	}
	return nil
}

// Put replaces any live code and resets its attempt counter.
func (s *redisStore) Put(ctx context.Context, purpose Purpose, identity, hash string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, codeKey(purpose, identity), hash, ttl).Err(); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	if err := s.rdb.Del(ctx, attemptsKey(purpose, identity)).Err(); err != nil {
		return fmt.Errorf("reset otp attempts: %w", err)
	}
	return nil
}

func (s *redisStore) Get(ctx context.Context, purpose Purpose, identity string) (string, error) {
	hash, err := s.rdb.Get(ctx, codeKey(purpose, identity)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrInvalidCode
	}
	if err != nil {
		return "", fmt.Errorf("load otp: %w", err)
	}
	return hash, nil
}

// Fail counts a wrong guess and returns the running total.
func (s *redisStore) Fail(ctx context.Context, purpose Purpose, identity string, ttl time.Duration) (int64, error) {
	ak := attemptsKey(purpose, identity)
	n, err := s.rdb.Incr(ctx, ak).Result()
	if err != nil {
		return 0, fmt.Errorf("count otp attempt: %w", err)
	}
	if n == 1 {
		if err := s.rdb.Expire(ctx, ak, ttl).Err(); err != nil {
			return n, fmt.Errorf("otp attempts expiry: %w", err)
		}
	}
	return n, nil
}

// Consume deletes the code. Only the caller whose DEL removed it gets true.
func (s *redisStore) Consume(ctx context.Context, purpose Purpose, identity string) (bool, error) {
	n, err := s.rdb.Del(ctx, codeKey(purpose, identity)).Result()
	if err != nil {
		return false, fmt.Errorf("consume otp: %w", err)
	}
	if n != 1 {
		return false, nil
	}
	_ = s.rdb.Del(ctx, attemptsKey(purpose, identity)).Err()
	return true, nil
}

func (s *redisStore) Discard(ctx context.Context, purpose Purpose, identity string) error {
	if err := s.rdb.Del(ctx, codeKey(purpose, identity), attemptsKey(purpose, identity)).Err(); err != nil {
		return fmt.Errorf("discard otp: %w", err)
	}
	return nil
}
