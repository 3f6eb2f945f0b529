package order

import (
	"context"
	"errors"

	"storefront-be/internal/address"
	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/payment"
	"storefront-be/internal/pricing"
	"storefront-be/internal/product"
	"storefront-be/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CreateInput struct {
	AddressID  uuid.UUID
	PaymentID  int64
	CouponCode string
	// Lines carry product and quantity only; prices come from the catalog.
	Lines []pricing.Line
}

type Service interface {
	Create(ctx context.Context, input CreateInput) (*Order, error)
	AddItems(ctx context.Context, items []Item) ([]Item, error)
	Get(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context, opts ListOptions) (*ListResult, error)
	UpdateStatus(ctx context.Context, id int64, next Status) (*Order, error)
	Cancel(ctx context.Context, id int64, reason string) (*Order, error)
}

type service struct {
	repo      Repository
	products  product.Repository
	addresses address.Repository
	payments  payment.Repository
	pricer    *pricing.Pricer
	metrics   *metrics.Metrics
}

func NewService(
	repo Repository,
	products product.Repository,
	addresses address.Repository,
	payments payment.Repository,
	pricer *pricing.Pricer,
	m *metrics.Metrics,
) Service {
	return &service{
		repo:      repo,
		products:  products,
		addresses: addresses,
		payments:  payments,
		pricer:    pricer,
		metrics:   m,
	}
}

// Create places an order against a payment created earlier. If anything
// fails the payment is voided so no unlinked payment outlives the attempt.
func (s *service) Create(ctx context.Context, input CreateInput) (*Order, error) {
	customerID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, utils.ErrUnauthenticated
	}

	log := logger.FromCtx(ctx).With(
		zap.String("service", "Order"),
		zap.String("method", "Create"),
		zap.Int64("customer_id", customerID),
		zap.Int64("payment_id", input.PaymentID),
	)

	o, err := s.create(ctx, customerID, input)
	if err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			s.metrics.StockConflicts.Inc()
		}
		log.Warn("order creation failed", zap.Error(err))

		voided, vErr := s.payments.Void(ctx, input.PaymentID, customerID, "order creation failed")
		switch {
		case vErr != nil:
			log.Error("failed to void payment", zap.Error(vErr))
		case voided:
			log.Info("unlinked payment voided")
		}
		return nil, err
	}

	log.Info("order created",
		zap.Int64("order_id", o.ID),
		zap.String("total_amount", o.TotalAmount.StringFixed(2)),
	)
	return o, nil
}

func (s *service) create(ctx context.Context, customerID int64, input CreateInput) (*Order, error) {
	if len(input.Lines) == 0 {
		return nil, ErrNoItems
	}

	addr, err := s.addresses.GetByID(ctx, input.AddressID)
	if err != nil {
		return nil, err
	}
	if !addr.Usable(customerID) {
		return nil, address.ErrAddressNotFound
	}

	catalog, err := s.products.GetByIDs(ctx, pricing.ProductIDs(input.Lines))
	if err != nil {
		return nil, err
	}
	lines, err := pricing.WithCatalogPrices(input.Lines, catalog)
	if err != nil {
		return nil, err
	}

	quote, err := s.pricer.Quote(lines, input.CouponCode)
	if err != nil {
		return nil, err
	}

	o := FromQuote(quote, customerID, input.AddressID, input.PaymentID)
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// FromQuote builds a pending order whose totals and items come from q.
func FromQuote(q *pricing.Quote, customerID int64, addressID uuid.UUID, paymentID int64) *Order {
	items := make([]Item, len(q.Lines))
	for i, l := range q.Lines {
		items[i] = Item{ProductID: l.ProductID, Quantity: l.Quantity, Price: l.UnitPrice}
	}

	return &Order{
		OrderNumber:    utils.GenerateOrderNumber(),
		CustomerID:     customerID,
		AddressID:      addressID,
		PaymentID:      paymentID,
		Status:         StatusPending,
		Subtotal:       q.Subtotal,
		DeliveryCharge: q.DeliveryCharge,
		Discount:       q.Discount,
		TotalAmount:    q.Total,
		CouponCode:     q.CouponCode,
		Items:          items,
	}
}

// AddItems materializes lines for orders created without them. Items are
// grouped by order; a group that fails on stock or storage cancels its order,
// provided it is still the caller's, pending and empty.
func (s *service) AddItems(ctx context.Context, items []Item) ([]Item, error) {
	customerID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, utils.ErrUnauthenticated
	}
	if len(items) == 0 {
		return nil, ErrNoItems
	}

	log := logger.FromCtx(ctx).With(
		zap.String("service", "Order"),
		zap.String("method", "AddItems"),
		zap.Int64("customer_id", customerID),
	)

	var (
		orderIDs []int64
		groups   = map[int64][]Item{}
	)
	for _, it := range items {
		if it.Quantity <= 0 || !it.Price.IsPositive() {
			return nil, ErrItemsMismatch
		}
		if _, seen := groups[it.OrderID]; !seen {
			orderIDs = append(orderIDs, it.OrderID)
		}
		groups[it.OrderID] = append(groups[it.OrderID], it)
	}

	var out []Item
	for _, orderID := range orderIDs {
		group := groups[orderID]

		created, err := s.repo.AddItems(ctx, orderID, customerID, group)
		if err != nil {
			log.Warn("adding order items failed", zap.Int64("order_id", orderID), zap.Error(err))
			var failed *ItemsFailedError
			if errors.As(err, &failed) {
				if errors.Is(err, ErrInsufficientStock) {
					s.metrics.StockConflicts.Inc()
				}
				if cErr := s.repo.CancelUnfilled(ctx, orderID, customerID, "order items could not be created"); cErr != nil {
					log.Error("failed to cancel order after item failure", zap.Int64("order_id", orderID), zap.Error(cErr))
				}
			}
			return nil, err
		}

		if !created {
			o, err := s.repo.GetByID(ctx, orderID)
			if err != nil {
				return nil, err
			}
			group = o.Items
		}
		out = append(out, group...)
	}
	return out, nil
}

// Get returns the order to its owner or to staff.
func (s *service) Get(ctx context.Context, id int64) (*Order, error) {
	customerID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, utils.ErrUnauthenticated
	}

	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != customerID && !utils.IsStaff(ctx) {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (s *service) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	customerID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, utils.ErrUnauthenticated
	}
	if opts.Status != nil && !opts.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	var owner *int64
	if !utils.IsStaff(ctx) {
		owner = &customerID
	}

	limit, offset := utils.Paginate(opts.Limit, opts.Page)
	orders, total, err := s.repo.List(ctx, owner, opts.Status, limit, offset)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to list orders",
			zap.String("service", "Order"),
			zap.Error(err),
		)
		return nil, err
	}

	return &ListResult{
		Items:      orders,
		TotalCount: total,
		Page:       offset/limit + 1,
		Limit:      limit,
	}, nil
}

// UpdateStatus is for the retailer and admin portals. Cancelling goes
// through Cancel so stock is restored.
func (s *service) UpdateStatus(ctx context.Context, id int64, next Status) (*Order, error) {
	if _, ok := utils.GetUserIDFromContext(ctx); !ok {
		return nil, utils.ErrUnauthenticated
	}
	if !utils.IsStaff(ctx) {
		return nil, utils.ErrForbidden
	}
	if !next.Valid() {
		return nil, ErrInvalidStatus
	}

	if next == StatusCancelled {
		if err := s.repo.Cancel(ctx, id, nil, "cancelled by staff"); err != nil {
			return nil, err
		}
		return s.repo.GetByID(ctx, id)
	}

	prev, err := s.repo.UpdateStatus(ctx, id, next)
	if err != nil {
		return nil, err
	}

	logger.FromCtx(ctx).Info("order status updated",
		zap.String("service", "Order"),
		zap.Int64("order_id", id),
		zap.String("from", string(prev)),
		zap.String("to", string(next)),
	)
	return s.repo.GetByID(ctx, id)
}

func (s *service) Cancel(ctx context.Context, id int64, reason string) (*Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.Status.Cancellable() {
		return nil, ErrNotCancellable
	}
	if reason == "" {
		reason = "cancelled by customer"
	}

	var owner *int64
	if !utils.IsStaff(ctx) {
		owner = &o.CustomerID
	}
	if err := s.repo.Cancel(ctx, id, owner, reason); err != nil {
		return nil, err
	}

	logger.FromCtx(ctx).Info("order cancelled",
		zap.String("service", "Order"),
		zap.Int64("order_id", id),
	)
	return s.repo.GetByID(ctx, id)
}
