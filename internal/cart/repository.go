package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-be/internal/db"
	"storefront-be/internal/logger"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Repository interface {
	List(ctx context.Context, customerID int64) ([]Item, error)
	GetItem(ctx context.Context, customerID, productID int64) (*Item, error)
	Upsert(ctx context.Context, customerID, productID int64, quantity int, price decimal.Decimal) (*Item, error)
	UpdateQuantity(ctx context.Context, customerID, productID int64, quantity int, price decimal.Decimal) error
	Remove(ctx context.Context, customerID, productID int64) error
	Clear(ctx context.Context, customerID int64) (int64, error)
	// RemoveProducts deletes purchased lines inside the caller's transaction.
	RemoveProducts(ctx context.Context, ex db.Execer, customerID int64, productIDs []int64) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context, customerID int64) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			c.id,
			c.customer_id,
			c.product_id,
			p.name,
			c.quantity,
			c.price,
			p.price,
			p.quantity,
			c.created_at,
			c.updated_at
		FROM cart_items c
		JOIN products p ON p.id = c.product_id
		WHERE c.customer_id = $1
		ORDER BY c.created_at DESC, c.id DESC
	`, customerID)
	if err != nil {
		return nil, fmt.Errorf("list cart: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(
			&it.ID,
			&it.CustomerID,
			&it.ProductID,
			&it.ProductName,
			&it.Quantity,
			&it.Price,
			&it.CurrentPrice,
			&it.Stock,
			&it.CreatedAt,
			&it.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// GetItem returns nil, nil when the line does not exist.
func (r *repository) GetItem(ctx context.Context, customerID, productID int64) (*Item, error) {
	var it Item
	err := r.db.QueryRowContext(ctx, `
		SELECT id, customer_id, product_id, quantity, price, created_at, updated_at
		FROM cart_items
		WHERE customer_id = $1 AND product_id = $2
	`, customerID, productID).Scan(
		&it.ID, &it.CustomerID, &it.ProductID, &it.Quantity, &it.Price, &it.CreatedAt, &it.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cart item: %w", err)
	}
	return &it, nil
}

func (r *repository) Upsert(ctx context.Context, customerID, productID int64, quantity int, price decimal.Decimal) (*Item, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Upsert"),
		zap.Int64("customer_id", customerID),
		zap.Int64("product_id", productID),
	)

	var it Item
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO cart_items (customer_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (customer_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, price = EXCLUDED.price, updated_at = NOW()
		RETURNING id, customer_id, product_id, quantity, price, created_at, updated_at
	`, customerID, productID, quantity, price).Scan(
		&it.ID, &it.CustomerID, &it.ProductID, &it.Quantity, &it.Price, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to upsert cart item", zap.Error(err))
		return nil, fmt.Errorf("upsert cart item: %w", err)
	}

	log.Info("cart item saved", zap.Int64("cart_item_id", it.ID), zap.Int("quantity", it.Quantity))
	return &it, nil
}

func (r *repository) UpdateQuantity(ctx context.Context, customerID, productID int64, quantity int, price decimal.Decimal) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE cart_items
		SET quantity = $1, price = $2, updated_at = NOW()
		WHERE customer_id = $3 AND product_id = $4
	`, quantity, price, customerID, productID)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (r *repository) Remove(ctx context.Context, customerID, productID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE customer_id = $1 AND product_id = $2`,
		customerID, productID,
	)
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

// Clear returns the number of removed lines. An empty cart is not an error.
func (r *repository) Clear(ctx context.Context, customerID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE customer_id = $1`, customerID)
	if err != nil {
		return 0, fmt.Errorf("clear cart: %w", err)
	}
	return res.RowsAffected()
}

func (r *repository) RemoveProducts(ctx context.Context, ex db.Execer, customerID int64, productIDs []int64) error {
	if len(productIDs) == 0 {
		return nil
	}

	_, err := ex.ExecContext(ctx,
		`DELETE FROM cart_items WHERE customer_id = $1 AND product_id = ANY($2)`,
		customerID, pq.Array(productIDs),
	)
	if err != nil {
		return fmt.Errorf("remove purchased cart lines: %w", err)
	}
	return nil
}
