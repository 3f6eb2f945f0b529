package address

import (
	"context"
	"regexp"
	"strings"

	"storefront-be/internal/logger"
	"storefront-be/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var pincodeRegex = regexp.MustCompile(`^[1-9][0-9]{5}$`)

type Service interface {
	List(ctx context.Context) ([]*Address, error)
	Get(ctx context.Context, addressID uuid.UUID) (*Address, error)

	Create(ctx context.Context, input Input) (*Address, error)
	Update(ctx context.Context, addressID uuid.UUID, input Input) (*Address, error)
	Delete(ctx context.Context, addressID uuid.UUID) error

	SetDefaultAddress(ctx context.Context, addressID uuid.UUID) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) List(ctx context.Context) ([]*Address, error) {
	customerID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	logger.FromCtx(ctx).Info("listing addresses",
		zap.String("service", "Address"),
		zap.Int64("customer_id", customerID),
	)

	return s.repo.GetByCustomerID(ctx, customerID)
}

func (s *service) Get(ctx context.Context, addressID uuid.UUID) (*Address, error) {
	customerID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	log := logger.FromCtx(ctx).With(
		zap.String("service", "Address"),
		zap.String("method", "Get"),
		zap.String("address_id", addressID.String()),
	)

	addr, err := s.repo.GetByID(ctx, addressID)
	if err != nil {
		return nil, err
	}

	if !addr.Usable(customerID) {
		log.Warn("unauthorized address access", zap.Int64("customer_id", customerID))
		return nil, ErrAddressNotFound
	}

	return addr, nil
}

func (s *service) Create(ctx context.Context, input Input) (*Address, error) {
	customerID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	log := logger.FromCtx(ctx).With(
		zap.String("service", "Address"),
		zap.String("method", "Create"),
	)

	addr, err := buildAddress(customerID, input)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, addr); err != nil {
		log.Error("failed to create address", zap.Error(err))
		return nil, err
	}

	log.Info("address created", zap.String("address_id", addr.ID.String()))
	return addr, nil
}

// Update keeps the old row for order history and creates a replacement.
func (s *service) Update(ctx context.Context, addressID uuid.UUID, input Input) (*Address, error) {
	customerID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	log := logger.FromCtx(ctx).With(
		zap.String("service", "Address"),
		zap.String("method", "Update"),
		zap.Int64("customer_id", customerID),
	)

	newAddr, err := buildAddress(customerID, input)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Replace(ctx, addressID, newAddr); err != nil {
		log.Error("failed to update address", zap.Error(err))
		return nil, err
	}

	log.Info("address updated",
		zap.String("old_id", addressID.String()),
		zap.String("new_id", newAddr.ID.String()),
	)
	return newAddr, nil
}

func (s *service) Delete(ctx context.Context, addressID uuid.UUID) error {
	customerID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return ErrUnauthenticated
	}

	if err := s.repo.Deactivate(ctx, customerID, addressID); err != nil {
		return err
	}

	logger.FromCtx(ctx).Info("address deleted",
		zap.String("service", "Address"),
		zap.String("address_id", addressID.String()),
	)
	return nil
}

func (s *service) SetDefaultAddress(ctx context.Context, addressID uuid.UUID) error {
	customerID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return ErrUnauthenticated
	}

	log := logger.FromCtx(ctx).With(
		zap.String("service", "Address"),
		zap.String("method", "SetDefaultAddress"),
		zap.String("address_id", addressID.String()),
	)

	if err := s.repo.SetDefault(ctx, customerID, addressID); err != nil {
		log.Error("failed to set default address", zap.Error(err))
		return err
	}
	return nil
}

func buildAddress(customerID int64, in Input) (*Address, error) {
	name := strings.TrimSpace(in.Name)
	line := strings.TrimSpace(in.AddressLine)
	city := strings.TrimSpace(in.City)
	state := strings.TrimSpace(in.State)
	if name == "" || line == "" || city == "" || state == "" {
		return nil, ErrMissingField
	}

	phone := utils.NormalizePhoneIN(in.Phone)
	if phone == "" {
		return nil, ErrInvalidPhone
	}

	pincode := strings.TrimSpace(in.Pincode)
	if !pincodeRegex.MatchString(pincode) {
		return nil, ErrInvalidPincode
	}

	return &Address{
		ID:          uuid.New(),
		CustomerID:  customerID,
		Name:        name,
		Phone:       phone,
		AddressLine: line,
		City:        city,
		State:       state,
		Pincode:     pincode,
		IsDefault:   in.SetAsDefault,
		IsActive:    true,
	}, nil
}
