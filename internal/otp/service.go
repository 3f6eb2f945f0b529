package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	codeDigits  = 6
	maxAttempts = 5
)

type Service interface {
	// Issue is Reserve followed by Send.
	Issue(ctx context.Context, purpose Purpose, identity string) error

	// Reserve applies the resend limits without creating a code. Callers
	// that may decline to send still reserve, so every identity is limited
	// alike.
	Reserve(ctx context.Context, purpose Purpose, identity string) error

	// Send creates and delivers a code for an identity already reserved.
	Send(ctx context.Context, purpose Purpose, identity string) error

	Verify(ctx context.Context, purpose Purpose, identity, code string) error
}

type service struct {
	store    Store
	notifier Notifier
	ttl      time.Duration
	metrics  *metrics.Metrics
	generate func() (string, error)
}

func NewService(store Store, notifier Notifier, ttl time.Duration, m *metrics.Metrics) Service {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &service{
		store:    store,
		notifier: notifier,
		ttl:      ttl,
		metrics:  m,
		generate: generateCode,
	}
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

func (s *service) Issue(ctx context.Context, purpose Purpose, identity string) error {
	if err := s.Reserve(ctx, purpose, identity); err != nil {
		return err
	}
	return s.Send(ctx, purpose, identity)
}

func validIdentity(purpose Purpose, identity string) (string, error) {
	if !purpose.Valid() {
		return "", ErrInvalidPurpose
	}
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return "", ErrMissingIdentity
	}
	return identity, nil
}

func (s *service) Reserve(ctx context.Context, purpose Purpose, identity string) error {
	identity, err := validIdentity(purpose, identity)
	if err != nil {
		return err
	}

	if err := s.store.Reserve(ctx, purpose, identity); err != nil {
		if errors.Is(err, ErrRateLimited) {
			logger.FromCtx(ctx).Warn("otp resend limited",
				zap.String("service", "OTP"),
				zap.String("purpose", string(purpose)),
			)
		}
		return err
	}
	return nil
}

func (s *service) Send(ctx context.Context, purpose Purpose, identity string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("service", "OTP"),
		zap.String("method", "Send"),
		zap.String("purpose", string(purpose)),
	)

	identity, err := validIdentity(purpose, identity)
	if err != nil {
		return err
	}

	code, err := s.generate()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash otp: %w", err)
	}

	if err := s.store.Put(ctx, purpose, identity, string(hash), s.ttl); err != nil {
		return err
	}

	err = s.notifier.Notify(ctx, Notification{
		Purpose:   purpose,
		Identity:  identity,
		Code:      code,
		ExpiresAt: time.Now().Add(s.ttl).UTC(),
	})
	if err != nil {
		log.Error("failed to queue otp", zap.Error(err))
		_ = s.store.Discard(ctx, purpose, identity)
		return err
	}

	s.metrics.OTPIssued.WithLabelValues(string(purpose)).Inc()
	log.Info("otp issued")
	return nil
}

func (s *service) Verify(ctx context.Context, purpose Purpose, identity, code string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("service", "OTP"),
		zap.String("method", "Verify"),
		zap.String("purpose", string(purpose)),
	)

	identity, err := validIdentity(purpose, identity)
	if err != nil {
		return err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrInvalidCode
	}

	hash, err := s.store.Get(ctx, purpose, identity)
	if err != nil {
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) != nil {
		n, err := s.store.Fail(ctx, purpose, identity, s.ttl)
		if err != nil {
			return err
		}
		if n >= maxAttempts {
			log.Warn("otp destroyed after repeated failures")
			if err := s.store.Discard(ctx, purpose, identity); err != nil {
				return err
			}
			return ErrTooManyAttempts
		}
		return ErrInvalidCode
	}

	won, err := s.store.Consume(ctx, purpose, identity)
	if err != nil {
		return err
	}
	if !won {
		// a concurrent verify already used this code
		return ErrInvalidCode
	}

	log.Info("otp verified")
	return nil
}
