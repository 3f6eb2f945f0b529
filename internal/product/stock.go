package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-be/internal/db"

	"github.com/shopspring/decimal"
)

// Stock mutations run inside the caller's transaction. quantity is only ever
// changed by these single-statement conditional updates.
type StockRepository interface {
	Decrement(ctx context.Context, q db.DBTX, productID int64, qty int, expectedPrice decimal.Decimal) error
	Restore(ctx context.Context, q db.Execer, productID int64, qty int) error
}

type stockRepository struct{}

func NewStockRepository() StockRepository {
	return stockRepository{}
}

// Decrement removes qty units if enough stock is left and the price is still
// the one the buyer was quoted. When no row matches, the cause is classified
// so the caller can report it.
func (stockRepository) Decrement(ctx context.Context, q db.DBTX, productID int64, qty int, expectedPrice decimal.Decimal) error {
	res, err := q.ExecContext(ctx, `
		UPDATE products
		SET quantity = quantity - $1, updated_at = NOW()
		WHERE id = $2 AND is_active = TRUE AND quantity >= $1 AND price = $3
	`, qty, productID, expectedPrice)
	if err != nil {
		return fmt.Errorf("decrement stock for product %d: %w", productID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var (
		available int
		price     decimal.Decimal
		active    bool
	)
	err = q.QueryRowContext(ctx,
		`SELECT quantity, price, is_active FROM products WHERE id = $1`, productID,
	).Scan(&available, &price, &active)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%w: %d", ErrProductNotFound, productID)
	case err != nil:
		return fmt.Errorf("classify stock failure for product %d: %w", productID, err)
	case !active:
		return fmt.Errorf("%w: %d", ErrProductNotFound, productID)
	case !price.Equal(expectedPrice):
		return fmt.Errorf("%w: product %d", ErrPriceChanged, productID)
	default:
		return fmt.Errorf("%w: product %d has %d left", ErrInsufficientStock, productID, available)
	}
}

func (stockRepository) Restore(ctx context.Context, q db.Execer, productID int64, qty int) error {
	_, err := q.ExecContext(ctx,
		`UPDATE products SET quantity = quantity + $1, updated_at = NOW() WHERE id = $2`,
		qty, productID,
	)
	if err != nil {
		return fmt.Errorf("restore stock for product %d: %w", productID, err)
	}
	return nil
}
