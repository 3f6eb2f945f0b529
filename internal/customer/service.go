package customer

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"storefront-be/internal/auth"
	"storefront-be/internal/logger"
	"storefront-be/internal/otp"
	"storefront-be/internal/utils"

	"go.uber.org/zap"
)

const minPasswordLength = 8

type Service interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Me(ctx context.Context) (*Customer, error)

	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error

	RequestMobileOTP(ctx context.Context, phone string) error
	VerifyMobileOTP(ctx context.Context, phone, code string) (*AuthResult, error)
}

type service struct {
	repo   Repository
	otps   otp.Service
	tokens *auth.TokenManager
}

func NewService(repo Repository, otps otp.Service, tokens *auth.TokenManager) Service {
	return &service{repo: repo, otps: otps, tokens: tokens}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func (s *service) issueToken(c *Customer) (*AuthResult, error) {
	token, err := s.tokens.Generate(c.ID, c.Email, c.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, Customer: c}, nil
}

func (s *service) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("service", "Customer"),
		zap.String("method", "Register"),
	)

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrMissingName
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if len(in.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	var phone *string
	if strings.TrimSpace(in.Phone) != "" {
		p := utils.NormalizePhoneIN(in.Phone)
		if p == "" {
			return nil, ErrInvalidPhone
		}
		phone = &p
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		log.Error("failed to hash password", zap.Error(err))
		return nil, err
	}

	c := &Customer{
		Name:         name,
		Email:        email,
		Phone:        phone,
		PasswordHash: hash,
		Role:         utils.RoleCustomer,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	log.Info("customer registered", zap.Int64("customer_id", c.ID))
	return s.issueToken(c)
}

func (s *service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	c, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, ErrCustomerNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPasswordHash(password, c.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return s.issueToken(c)
}

func (s *service) Me(ctx context.Context) (*Customer, error) {
	id, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, utils.ErrUnauthenticated
	}
	return s.repo.GetByID(ctx, id)
}

// RequestPasswordReset answers the same way whether or not the email is
// registered. The resend limit is taken before the lookup so known and
// unknown emails are throttled alike.
func (s *service) RequestPasswordReset(ctx context.Context, email string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("service", "Customer"),
		zap.String("method", "RequestPasswordReset"),
	)

	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	if err := s.otps.Reserve(ctx, otp.PurposePasswordReset, email); err != nil {
		return err
	}

	if _, err := s.repo.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, ErrCustomerNotFound) {
			log.Info("password reset for unknown email ignored")
			return nil
		}
		return err
	}

	return s.otps.Send(ctx, otp.PurposePasswordReset, email)
}

func (s *service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}

	if err := s.otps.Verify(ctx, otp.PurposePasswordReset, email, code); err != nil {
		return err
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, email, hash); err != nil {
		return err
	}

	logger.FromCtx(ctx).Info("password reset", zap.String("service", "Customer"))
	return nil
}

// RequestMobileOTP issues a code to a registered phone, or to any phone when
// a signed-in customer is adding one.
func (s *service) RequestMobileOTP(ctx context.Context, phone string) error {
	phone = utils.NormalizePhoneIN(phone)
	if phone == "" {
		return ErrInvalidPhone
	}

	if err := s.otps.Reserve(ctx, otp.PurposeMobileLogin, phone); err != nil {
		return err
	}

	if _, ok := utils.GetUserIDFromContext(ctx); !ok {
		if _, err := s.repo.GetByPhone(ctx, phone); err != nil {
			if errors.Is(err, ErrCustomerNotFound) {
				return nil
			}
			return err
		}
	}

	return s.otps.Send(ctx, otp.PurposeMobileLogin, phone)
}

func (s *service) VerifyMobileOTP(ctx context.Context, phone, code string) (*AuthResult, error) {
	phone = utils.NormalizePhoneIN(phone)
	if phone == "" {
		return nil, ErrInvalidPhone
	}

	if err := s.otps.Verify(ctx, otp.PurposeMobileLogin, phone, code); err != nil {
		return nil, err
	}

	id, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		c, err := s.repo.GetByPhone(ctx, phone)
		if err != nil {
			return nil, err
		}
		id = c.ID
	}

	if err := s.repo.VerifyPhone(ctx, id, phone); err != nil {
		return nil, err
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	logger.FromCtx(ctx).Info("mobile verified",
		zap.String("service", "Customer"),
		zap.Int64("customer_id", c.ID),
	)
	return s.issueToken(c)
}
