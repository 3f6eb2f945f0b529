package cart

import (
	"context"

	"storefront-be/internal/logger"
	"storefront-be/internal/product"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service defines the business logic for carts.
type Service interface {
	Get(ctx context.Context, customerID int64) (*Cart, error)
	Add(ctx context.Context, customerID, productID int64, quantity int) (*Item, error)
	UpdateQuantity(ctx context.Context, customerID, productID int64, quantity int) error
	Remove(ctx context.Context, customerID, productID int64) error
	Clear(ctx context.Context, customerID int64) error
}

type service struct {
	repo        Repository
	productRepo product.Repository
}

func NewService(repo Repository, productRepo product.Repository) Service {
	return &service{repo: repo, productRepo: productRepo}
}

func (s *service) Get(ctx context.Context, customerID int64) (*Cart, error) {
	items, err := s.repo.List(ctx, customerID)
	if err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.LineTotal())
	}

	return &Cart{Items: items, Subtotal: subtotal}, nil
}

// Add merges quantity into an existing line and refreshes the price snapshot.
func (s *service) Add(ctx context.Context, customerID, productID int64, quantity int) (*Item, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	p, err := s.productRepo.GetByID(ctx, productID, true)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetItem(ctx, customerID, productID)
	if err != nil {
		return nil, err
	}

	finalQty := quantity
	if existing != nil {
		finalQty += existing.Quantity
	}

	if !p.InStock(finalQty) {
		logger.FromCtx(ctx).Info("add to cart rejected",
			zap.Int64("product_id", productID),
			zap.Int("requested", finalQty),
			zap.Int("available", p.Quantity),
		)
		return nil, ErrInsufficientStock
	}

	item, err := s.repo.Upsert(ctx, customerID, productID, finalQty, p.Price)
	if err != nil {
		return nil, err
	}
	item.ProductName = p.Name
	item.CurrentPrice = p.Price
	item.Stock = p.Quantity
	return item, nil
}

// UpdateQuantity sets an absolute quantity; zero removes the line.
func (s *service) UpdateQuantity(ctx context.Context, customerID, productID int64, quantity int) error {
	if quantity < 0 {
		return ErrInvalidQuantity
	}
	if quantity == 0 {
		return s.repo.Remove(ctx, customerID, productID)
	}

	p, err := s.productRepo.GetByID(ctx, productID, true)
	if err != nil {
		return err
	}
	if !p.InStock(quantity) {
		return ErrInsufficientStock
	}

	return s.repo.UpdateQuantity(ctx, customerID, productID, quantity, p.Price)
}

func (s *service) Remove(ctx context.Context, customerID, productID int64) error {
	return s.repo.Remove(ctx, customerID, productID)
}

// Clear is idempotent: clearing an empty cart succeeds.
func (s *service) Clear(ctx context.Context, customerID int64) error {
	n, err := s.repo.Clear(ctx, customerID)
	if err != nil {
		return err
	}

	logger.FromCtx(ctx).Info("cart cleared",
		zap.Int64("customer_id", customerID),
		zap.Int64("removed", n),
	)
	return nil
}
