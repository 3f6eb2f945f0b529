package checkout

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"storefront-be/internal/cart"
	"storefront-be/internal/db"
	"storefront-be/internal/events"
	"storefront-be/internal/order"
	"storefront-be/internal/payment"
	"storefront-be/internal/product"
)

type Repository interface {
	// FindCompleted returns nil when the key has not been used.
	FindCompleted(ctx context.Context, customerID int64, key string) (*Stored, error)

	// Place runs the whole checkout in one transaction: idempotency row,
	// payment, stock, order, items, payment link, cart cleanup and
	// order.created.
	Place(ctx context.Context, p *Placement) (*Result, error)

	SaveResponse(ctx context.Context, customerID int64, key string, result *Result) error

	// Compensate cancels a committed checkout and frees its key so the client
	// can retry.
	Compensate(ctx context.Context, customerID int64, key string, orderID int64, reason string) error
}

type repository struct {
	db       *sql.DB
	orders   order.Repository
	payments payment.Repository
	stock    product.StockRepository
	carts    cart.Repository
	outbox   events.Outbox
}

func NewRepository(
	conn *sql.DB,
	orders order.Repository,
	payments payment.Repository,
	stock product.StockRepository,
	carts cart.Repository,
	outbox events.Outbox,
) Repository {
	return &repository{
		db:       conn,
		orders:   orders,
		payments: payments,
		stock:    stock,
		carts:    carts,
		outbox:   outbox,
	}
}

func (r *repository) FindCompleted(ctx context.Context, customerID int64, key string) (*Stored, error) {
	var (
		hash     string
		response []byte
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT request_hash, response
		FROM checkout_requests
		WHERE customer_id = $1 AND idempotency_key = $2
	`, customerID, key).Scan(&hash, &response)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find checkout request: %w", err)
	}
	if response == nil {
		return nil, ErrInProgress
	}

	stored := &Stored{RequestHash: hash}
	if err := json.Unmarshal(response, &stored.Result); err != nil {
		return nil, fmt.Errorf("decode stored checkout: %w", err)
	}
	return stored, nil
}

func (r *repository) Place(ctx context.Context, p *Placement) (*Result, error) {
	var result *Result
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO checkout_requests (customer_id, idempotency_key, request_hash)
			VALUES ($1, $2, $3)
		`, p.CustomerID, p.IdempotencyKey, p.RequestHash)
		if db.IsUniqueViolation(err) {
			return errDuplicateRequest
		}
		if err != nil {
			return fmt.Errorf("insert checkout request: %w", err)
		}

		if err := r.payments.Insert(ctx, tx, p.Payment); err != nil {
			return err
		}

		o := p.Order
		for _, it := range o.Items {
			if err := r.stock.Decrement(ctx, tx, it.ProductID, it.Quantity, it.Price); err != nil {
				return err
			}
		}

		o.PaymentID = p.Payment.ID
		if err := r.orders.Insert(ctx, tx, o); err != nil {
			return err
		}

		if err := r.payments.LinkOrder(ctx, tx, p.Payment.ID, p.CustomerID, o.ID, nil); err != nil {
			return err
		}
		p.Payment.OrderID = &o.ID

		if p.FromCart {
			ids := make([]int64, len(o.Items))
			for i, it := range o.Items {
				ids[i] = it.ProductID
			}
			if err := r.carts.RemoveProducts(ctx, tx, p.CustomerID, ids); err != nil {
				return err
			}
		}

		if err := r.outbox.Insert(ctx, tx, events.TopicOrderCreated, fmt.Sprint(o.ID), order.CreatedEvent(o)); err != nil {
			return err
		}

		result = resultFrom(o, p.Payment)
		return saveResponse(ctx, tx, p.CustomerID, p.IdempotencyKey, result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *repository) SaveResponse(ctx context.Context, customerID int64, key string, result *Result) error {
	return saveResponse(ctx, r.db, customerID, key, result)
}

func saveResponse(ctx context.Context, ex db.Execer, customerID int64, key string, result *Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	_, err = ex.ExecContext(ctx, `
		UPDATE checkout_requests
		SET order_id = $3, response = $4
		WHERE customer_id = $1 AND idempotency_key = $2
	`, customerID, key, result.OrderID, string(data))
	if err != nil {
		return fmt.Errorf("store checkout response: %w", err)
	}
	return nil
}

func (r *repository) Compensate(ctx context.Context, customerID int64, key string, orderID int64, reason string) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := r.orders.CancelTx(ctx, tx, orderID, &customerID, reason); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx,
			`DELETE FROM checkout_requests WHERE customer_id = $1 AND idempotency_key = $2`,
			customerID, key,
		)
		if err != nil {
			return fmt.Errorf("release checkout request: %w", err)
		}
		return nil
	})
}
