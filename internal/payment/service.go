package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"storefront-be/internal/logger"
	"storefront-be/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const providerRazorpay = "razorpay"

type CreateInput struct {
	Amount decimal.Decimal
	Method string
	// Status is the client's guess. Only pending is honoured; success
	// requires signature or webhook verification.
	Status string
}

type Service interface {
	Create(ctx context.Context, input CreateInput) (*Payment, error)
	Get(ctx context.Context, id int64) (*Payment, error)
	Link(ctx context.Context, paymentID, orderID int64) (*Payment, error)
	CreateProviderOrder(ctx context.Context, paymentID int64) (*Payment, error)
	Verify(ctx context.Context, input VerifyInput) (*Payment, error)
	HandleWebhook(ctx context.Context, eventID string, body []byte, signature string) error
}

type service struct {
	repo    Repository
	gateway Gateway
}

func NewService(repo Repository, gateway Gateway) Service {
	return &service{repo: repo, gateway: gateway}
}

func (s *service) Create(ctx context.Context, input CreateInput) (*Payment, error) {
	customerID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, utils.ErrUnauthenticated
	}
	if !ValidMethod(input.Method) {
		return nil, ErrInvalidMethod
	}
	if !input.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	log := logger.FromCtx(ctx).With(
		zap.String("service", "Payment"),
		zap.String("method", "Create"),
		zap.Int64("customer_id", customerID),
	)

	if input.Status != "" && input.Status != StatusPending {
		log.Warn("ignoring client payment status", zap.String("status", input.Status))
	}

	p := &Payment{
		CustomerID: customerID,
		Amount:     input.Amount.Round(2),
		Method:     input.Method,
		Status:     StatusPending,
	}
	if err := s.repo.Insert(ctx, nil, p); err != nil {
		log.Error("failed to create payment", zap.Error(err))
		return nil, err
	}

	log.Info("payment created", zap.Int64("payment_id", p.ID))
	return p, nil
}

// Get returns the payment to its owner or to staff.
func (s *service) Get(ctx context.Context, id int64) (*Payment, error) {
	customerID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, utils.ErrUnauthenticated
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.CustomerID != customerID && !utils.IsStaff(ctx) {
		return nil, ErrPaymentNotFound
	}
	return p, nil
}

func (s *service) Link(ctx context.Context, paymentID, orderID int64) (*Payment, error) {
	customerID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, utils.ErrUnauthenticated
	}

	if err := s.repo.LinkOrder(ctx, nil, paymentID, customerID, orderID, nil); err != nil {
		logger.FromCtx(ctx).Warn("payment link rejected",
			zap.Int64("payment_id", paymentID),
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)
		return nil, err
	}
	return s.repo.GetByID(ctx, paymentID)
}

// CreateProviderOrder is idempotent: a payment that already has a Razorpay
// order is returned unchanged.
func (s *service) CreateProviderOrder(ctx context.Context, paymentID int64) (*Payment, error) {
	p, err := s.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Method != MethodRazorpay {
		return nil, ErrNotRazorpay
	}
	if p.Status != StatusPending {
		return nil, ErrNotPending
	}
	if p.ProviderOrderID != nil {
		return p, nil
	}

	notes := map[string]string{"payment_id": fmt.Sprint(p.ID)}
	if p.OrderID != nil {
		notes["order_id"] = fmt.Sprint(*p.OrderID)
	}

	order, err := s.gateway.CreateOrder(ctx, fmt.Sprintf("pay_%d", p.ID), p.Amount, notes)
	if err != nil {
		return nil, err
	}

	providerOrderID, err := s.repo.SetProviderOrder(ctx, p.ID, order.ID)
	if err != nil {
		return nil, err
	}
	p.ProviderOrderID = &providerOrderID
	return p, nil
}

// Verify checks the checkout widget's signature and captures the payment.
func (s *service) Verify(ctx context.Context, input VerifyInput) (*Payment, error) {
	p, err := s.Get(ctx, input.PaymentID)
	if err != nil {
		return nil, err
	}

	log := logger.FromCtx(ctx).With(
		zap.String("service", "Payment"),
		zap.String("method", "Verify"),
		zap.Int64("payment_id", p.ID),
	)

	if p.Method != MethodRazorpay {
		return nil, ErrNotRazorpay
	}
	if p.ProviderOrderID == nil || *p.ProviderOrderID != input.ProviderOrderID {
		return nil, ErrOrderMismatch
	}
	if err := s.gateway.VerifyPaymentSignature(input.ProviderOrderID, input.ProviderPaymentID, input.Signature); err != nil {
		log.Warn("payment signature rejected")
		return nil, err
	}

	if p.Status == StatusSuccess {
		return p, nil
	}

	changed, err := s.repo.Capture(ctx, p.ID, input.ProviderPaymentID)
	if err != nil {
		log.Error("failed to capture payment", zap.Error(err))
		return nil, err
	}
	if !changed {
		return nil, ErrNotPending
	}

	log.Info("payment captured")
	return s.repo.GetByID(ctx, p.ID)
}

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Status  string `json:"status"`
				Error   string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// HandleWebhook applies a Razorpay event at most once per event id.
// Unknown payments and event types are acknowledged and ignored.
func (s *service) HandleWebhook(ctx context.Context, eventID string, body []byte, signature string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("service", "Payment"),
		zap.String("method", "HandleWebhook"),
	)

	if err := s.gateway.VerifyWebhookSignature(body, signature); err != nil {
		log.Warn("webhook signature rejected")
		return err
	}

	var evt webhookEvent
	if err := json.Unmarshal(body, &evt); err != nil || evt.Event == "" {
		return ErrInvalidWebhook
	}

	entity := evt.Payload.Payment.Entity
	if eventID == "" {
		eventID = evt.Event + ":" + entity.ID
	}
	log = log.With(zap.String("event_id", eventID), zap.String("event", evt.Event))

	webhookID, duplicate, err := s.repo.SaveWebhook(ctx, providerRazorpay, eventID, evt.Event, body)
	if err != nil {
		log.Error("failed to save webhook", zap.Error(err))
		return err
	}
	if duplicate {
		log.Info("duplicate webhook ignored")
		return nil
	}

	if err := s.applyWebhook(ctx, evt); err != nil {
		log.Error("webhook processing failed", zap.Error(err))
		_ = s.repo.MarkWebhookFailed(ctx, webhookID, err.Error())
		return err
	}

	return s.repo.MarkWebhookProcessed(ctx, webhookID)
}

func (s *service) applyWebhook(ctx context.Context, evt webhookEvent) error {
	entity := evt.Payload.Payment.Entity

	switch evt.Event {
	case "payment.captured", "order.paid", "payment.failed":
	default:
		return nil
	}

	p, err := s.repo.GetByProviderOrderID(ctx, entity.OrderID)
	if errors.Is(err, ErrPaymentNotFound) {
		logger.FromCtx(ctx).Warn("webhook for unknown razorpay order", zap.String("provider_order_id", entity.OrderID))
		return nil
	}
	if err != nil {
		return err
	}

	if evt.Event == "payment.failed" {
		_, err = s.repo.Fail(ctx, p.ID, entity.Error)
		return err
	}
	_, err = s.repo.Capture(ctx, p.ID, entity.ID)
	return err
}
