package checkout

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"storefront-be/internal/address"
	"storefront-be/internal/cart"
	"storefront-be/internal/coupon"
	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/order"
	"storefront-be/internal/payment"
	"storefront-be/internal/pricing"
	"storefront-be/internal/product"
	"storefront-be/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxKeyLength = 128

type Service interface {
	Checkout(ctx context.Context, input Input) (*Result, error)
}

type service struct {
	repo      Repository
	products  product.Repository
	addresses address.Repository
	carts     cart.Repository
	payments  payment.Repository
	gateway   payment.Gateway
	pricer    *pricing.Pricer
	metrics   *metrics.Metrics
}

func NewService(
	repo Repository,
	products product.Repository,
	addresses address.Repository,
	carts cart.Repository,
	payments payment.Repository,
	gateway payment.Gateway,
	pricer *pricing.Pricer,
	m *metrics.Metrics,
) Service {
	return &service{
		repo:      repo,
		products:  products,
		addresses: addresses,
		carts:     carts,
		payments:  payments,
		gateway:   gateway,
		pricer:    pricer,
		metrics:   m,
	}
}

func (s *service) Checkout(ctx context.Context, input Input) (*Result, error) {
	customerID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, utils.ErrUnauthenticated
	}

	log := logger.FromCtx(ctx).With(
		zap.String("service", "Checkout"),
		zap.Int64("customer_id", customerID),
		zap.String("idempotency_key", input.IdempotencyKey),
	)

	res, err := s.checkout(ctx, customerID, input)
	switch {
	case err == nil && res.Replayed:
		s.metrics.CheckoutOutcome(metrics.OutcomeReplayed)
		log.Info("checkout replayed", zap.Int64("order_id", res.OrderID))
	case err == nil:
		s.metrics.CheckoutOutcome(metrics.OutcomeCreated)
		log.Info("checkout completed",
			zap.Int64("order_id", res.OrderID),
			zap.String("total_amount", res.TotalAmount.StringFixed(2)),
		)
	case errors.Is(err, payment.ErrGateway):
		s.metrics.CheckoutOutcome(metrics.OutcomeCancelled)
		log.Error("checkout cancelled", zap.Error(err))
	case isRejection(err):
		if errors.Is(err, product.ErrInsufficientStock) {
			s.metrics.StockConflicts.Inc()
		}
		s.metrics.CheckoutOutcome(metrics.OutcomeRejected)
		log.Warn("checkout rejected", zap.Error(err))
	default:
		s.metrics.CheckoutOutcome(metrics.OutcomeFailed)
		log.Error("checkout failed", zap.Error(err))
	}
	return res, err
}

func (s *service) checkout(ctx context.Context, customerID int64, input Input) (*Result, error) {
	key := strings.TrimSpace(input.IdempotencyKey)
	if key == "" {
		return nil, ErrMissingIdempotencyKey
	}
	if len(key) > maxKeyLength {
		return nil, ErrInvalidIdempotencyKey
	}
	if !payment.ValidMethod(input.PaymentMethod) {
		return nil, payment.ErrInvalidMethod
	}

	hash := requestHash(input)

	stored, err := s.repo.FindCompleted(ctx, customerID, key)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		return s.replay(ctx, customerID, key, hash, stored)
	}

	addr, err := s.addresses.GetByID(ctx, input.AddressID)
	if err != nil {
		return nil, err
	}
	if !addr.Usable(customerID) {
		return nil, address.ErrAddressNotFound
	}

	lines, fromCart := input.Lines, false
	if lines == nil {
		if lines, err = s.cartLines(ctx, customerID); err != nil {
			return nil, err
		}
		fromCart = true
	}

	quote, err := s.quote(ctx, lines, input.CouponCode)
	if err != nil {
		return nil, err
	}

	o := order.FromQuote(quote, customerID, input.AddressID, 0)
	p := &payment.Payment{
		CustomerID: customerID,
		Amount:     quote.Total,
		Method:     input.PaymentMethod,
		Status:     payment.StatusPending,
	}

	res, err := s.repo.Place(ctx, &Placement{
		CustomerID:     customerID,
		IdempotencyKey: key,
		RequestHash:    hash,
		Order:          o,
		Payment:        p,
		FromCart:       fromCart,
	})
	if errors.Is(err, errDuplicateRequest) {
		stored, err := s.repo.FindCompleted(ctx, customerID, key)
		if err != nil {
			return nil, err
		}
		if stored == nil {
			return nil, ErrInProgress
		}
		return s.replay(ctx, customerID, key, hash, stored)
	}
	if err != nil {
		return nil, err
	}

	if res.PaymentMethod == payment.MethodRazorpay {
		if err := s.attachProviderOrder(ctx, customerID, key, res); err != nil {
			return nil, s.compensate(ctx, customerID, key, res, err)
		}
	}
	return res, nil
}

func (s *service) cartLines(ctx context.Context, customerID int64) ([]pricing.Line, error) {
	items, err := s.carts.List(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, pricing.ErrEmptyCart
	}

	lines := make([]pricing.Line, len(items))
	for i, it := range items {
		lines[i] = pricing.Line{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return lines, nil
}

// quote prices lines at current catalog prices.
func (s *service) quote(ctx context.Context, lines []pricing.Line, couponCode string) (*pricing.Quote, error) {
	if len(lines) == 0 {
		return nil, pricing.ErrEmptyCart
	}
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, pricing.ErrInvalidQuantity
		}
	}

	catalog, err := s.products.GetByIDs(ctx, pricing.ProductIDs(lines))
	if err != nil {
		return nil, err
	}
	priced, err := pricing.WithCatalogPrices(lines, catalog)
	if err != nil {
		return nil, err
	}
	return s.pricer.Quote(priced, couponCode)
}

func (s *service) replay(ctx context.Context, customerID int64, key, hash string, stored *Stored) (*Result, error) {
	if stored.RequestHash != hash {
		return nil, ErrIdempotencyConflict
	}

	res := stored.Result
	res.Replayed = true

	// the first attempt committed but never reached Razorpay
	if res.PaymentMethod == payment.MethodRazorpay && res.ProviderOrderID == nil {
		if err := s.attachProviderOrder(ctx, customerID, key, &res); err != nil {
			return nil, s.compensate(ctx, customerID, key, &res, err)
		}
	}
	return &res, nil
}

func (s *service) attachProviderOrder(ctx context.Context, customerID int64, key string, res *Result) error {
	po, err := s.gateway.CreateOrder(ctx, fmt.Sprintf("ord_%d", res.OrderID), res.TotalAmount, map[string]string{
		"order_id":     fmt.Sprint(res.OrderID),
		"order_number": res.OrderNumber,
		"payment_id":   fmt.Sprint(res.PaymentID),
	})
	if err != nil {
		return err
	}

	providerOrderID, err := s.payments.SetProviderOrder(ctx, res.PaymentID, po.ID)
	if err != nil {
		return err
	}
	res.ProviderOrderID = &providerOrderID

	stored := *res
	stored.Replayed = false
	return s.repo.SaveResponse(ctx, customerID, key, &stored)
}

// compensate cancels the committed order after a post-commit failure and
// returns the original cause.
func (s *service) compensate(ctx context.Context, customerID int64, key string, res *Result, cause error) error {
	log := logger.FromCtx(ctx).With(
		zap.String("service", "Checkout"),
		zap.String("method", "compensate"),
		zap.Int64("order_id", res.OrderID),
	)

	if err := s.repo.Compensate(ctx, customerID, key, res.OrderID, "payment provider unavailable"); err != nil {
		log.Error("compensation failed", zap.NamedError("cause", cause), zap.Error(err))
		return errors.Join(cause, err)
	}

	log.Warn("checkout compensated", zap.Error(cause))
	return cause
}

func isRejection(err error) bool {
	for _, target := range []error{
		utils.ErrUnauthenticated,
		ErrMissingIdempotencyKey,
		ErrInvalidIdempotencyKey,
		ErrIdempotencyConflict,
		ErrInProgress,
		payment.ErrInvalidMethod,
		address.ErrAddressNotFound,
		pricing.ErrEmptyCart,
		pricing.ErrInvalidQuantity,
		coupon.ErrInvalidCoupon,
		product.ErrProductNotFound,
		product.ErrInsufficientStock,
		product.ErrPriceChanged,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

type hashedRequest struct {
	AddressID uuid.UUID      `json:"address_id"`
	Method    string         `json:"payment_method"`
	Coupon    string         `json:"coupon_code"`
	Lines     []pricing.Line `json:"lines"`
}

// requestHash fingerprints the parts of a request that decide what is bought.
func requestHash(input Input) string {
	data, _ := json.Marshal(hashedRequest{
		AddressID: input.AddressID,
		Method:    input.PaymentMethod,
		Coupon:    strings.ToUpper(strings.TrimSpace(input.CouponCode)),
		Lines:     input.Lines,
	})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
