package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"storefront-be/internal/db"
	"storefront-be/internal/events"
	"storefront-be/internal/payment"
	"storefront-be/internal/product"

	"github.com/shopspring/decimal"
)

type Repository interface {
	// Insert writes the order and its items inside the caller's transaction.
	Insert(ctx context.Context, q db.DBTX, o *Order) error

	// Create decrements stock, writes the order, links its payment and
	// records order.created, all in one transaction.
	Create(ctx context.Context, o *Order) error

	GetByID(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context, customerID *int64, status *Status, limit, offset int) ([]Order, int, error)

	// AddItems fills an order that has no items yet. It reports false when the
	// order already holds exactly these items.
	AddItems(ctx context.Context, orderID, customerID int64, items []Item) (bool, error)

	UpdateStatus(ctx context.Context, id int64, next Status) (Status, error)

	// Cancel restores stock, fails or refunds the payment and records
	// order.cancelled. CancelTx does the same inside the caller's transaction.
	// A non-nil owner must match the order's customer; staff pass nil.
	Cancel(ctx context.Context, id int64, owner *int64, reason string) error
	CancelTx(ctx context.Context, q db.DBTX, id int64, owner *int64, reason string) error

	// CancelUnfilled cancels an order only while it belongs to customerID,
	// is pending and still has no items.
	CancelUnfilled(ctx context.Context, id, customerID int64, reason string) error
}

type repository struct {
	db       *sql.DB
	stock    product.StockRepository
	payments payment.Repository
	outbox   events.Outbox
}

func NewRepository(conn *sql.DB, stock product.StockRepository, payments payment.Repository, outbox events.Outbox) Repository {
	return &repository{
		db:       conn,
		stock:    stock,
		payments: payments,
		outbox:   outbox,
	}
}

const orderColumns = `id, order_number, customer_id, address_id, payment_id, status, subtotal, delivery_charge, discount, total_amount, coupon_code, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (Order, error) {
	var (
		o      Order
		coupon sql.NullString
	)
	err := s.Scan(
		&o.ID, &o.OrderNumber, &o.CustomerID, &o.AddressID, &o.PaymentID, &o.Status,
		&o.Subtotal, &o.DeliveryCharge, &o.Discount, &o.TotalAmount, &coupon,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}
	if coupon.Valid {
		o.CouponCode = &coupon.String
	}
	return o, nil
}

func (r *repository) Insert(ctx context.Context, q db.DBTX, o *Order) error {
	err := q.QueryRowContext(ctx, `
		INSERT INTO orders (
			order_number, customer_id, address_id, payment_id, status,
			subtotal, delivery_charge, discount, total_amount, coupon_code
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`,
		o.OrderNumber, o.CustomerID, o.AddressID, o.PaymentID, string(o.Status),
		o.Subtotal, o.DeliveryCharge, o.Discount, o.TotalAmount, o.CouponCode,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range o.Items {
		o.Items[i].OrderID = o.ID
		if err := insertItem(ctx, q, &o.Items[i]); err != nil {
			return err
		}
	}
	return nil
}

func insertItem(ctx context.Context, q db.DBTX, it *Item) error {
	err := q.QueryRowContext(ctx, `
		INSERT INTO order_items (order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, it.OrderID, it.ProductID, it.Quantity, it.Price).Scan(&it.ID)
	if err != nil {
		return fmt.Errorf("insert order item for product %d: %w", it.ProductID, err)
	}
	return nil
}

func (r *repository) Create(ctx context.Context, o *Order) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, it := range o.Items {
			if err := r.stock.Decrement(ctx, tx, it.ProductID, it.Quantity, it.Price); err != nil {
				return err
			}
		}

		if err := r.Insert(ctx, tx, o); err != nil {
			return err
		}

		if err := r.payments.LinkOrder(ctx, tx, o.PaymentID, o.CustomerID, o.ID, &o.TotalAmount); err != nil {
			return err
		}

		return r.outbox.Insert(ctx, tx, events.TopicOrderCreated, fmt.Sprint(o.ID), CreatedEvent(o))
	})
}

// CreatedEvent is the order.created payload.
func CreatedEvent(o *Order) events.OrderCreated {
	return events.OrderCreated{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		CustomerID:  o.CustomerID,
		PaymentID:   o.PaymentID,
		TotalAmount: o.TotalAmount.StringFixed(2),
	}
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}

	o.Items, err = itemsOf(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func itemsOf(ctx context.Context, q db.DBTX, orderID int64) ([]Item, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, order_id, product_id, quantity, price
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.Price); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) List(ctx context.Context, customerID *int64, status *Status, limit, offset int) ([]Order, int, error) {
	var (
		conds []string
		args  []any
	)
	if customerID != nil {
		args = append(args, *customerID)
		conds = append(conds, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if status != nil {
		args = append(args, string(*status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM orders%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		orderColumns, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, o)
	}
	return orders, total, rows.Err()
}

func (r *repository) AddItems(ctx context.Context, orderID, customerID int64, items []Item) (bool, error) {
	created := false
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var (
			owner    int64
			status   Status
			subtotal decimal.Decimal
		)
		err := tx.QueryRowContext(ctx,
			`SELECT customer_id, status, subtotal FROM orders WHERE id = $1 FOR UPDATE`, orderID,
		).Scan(&owner, &status, &subtotal)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != customerID) {
			return ErrOrderNotFound
		}
		if err != nil {
			return fmt.Errorf("lock order %d: %w", orderID, err)
		}

		existing, err := itemsOf(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			if sameItems(existing, items) {
				return nil
			}
			return ErrItemsMismatch
		}

		if status != StatusPending {
			return ErrOrderNotPending
		}
		if !ItemsTotal(items).Equal(subtotal) {
			return ErrItemsMismatch
		}

		for i := range items {
			items[i].OrderID = orderID
			if err := r.stock.Decrement(ctx, tx, items[i].ProductID, items[i].Quantity, items[i].Price); err != nil {
				return &ItemsFailedError{OrderID: orderID, Err: err}
			}
			if err := insertItem(ctx, tx, &items[i]); err != nil {
				return &ItemsFailedError{OrderID: orderID, Err: err}
			}
		}
		created = true
		return nil
	})
	return created, err
}

type lineKey struct {
	productID int64
	price     string
}

func sameItems(a, b []Item) bool {
	count := func(items []Item) map[lineKey]int {
		m := make(map[lineKey]int, len(items))
		for _, it := range items {
			m[lineKey{it.ProductID, it.Price.StringFixed(2)}] += it.Quantity
		}
		return m
	}

	ca, cb := count(a), count(b)
	if len(ca) != len(cb) {
		return false
	}
	for k, n := range ca {
		if cb[k] != n {
			return false
		}
	}
	return true
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, next Status) (Status, error) {
	if next == StatusCancelled {
		return "", ErrInvalidTransition
	}

	var prev Status
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var paymentID int64
		err := tx.QueryRowContext(ctx,
			`SELECT status, payment_id FROM orders WHERE id = $1 FOR UPDATE`, id,
		).Scan(&prev, &paymentID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrOrderNotFound
		}
		if err != nil {
			return fmt.Errorf("lock order %d: %w", id, err)
		}

		if !prev.CanTransition(next) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, prev, next)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`, string(next), id,
		); err != nil {
			return fmt.Errorf("update order %d status: %w", id, err)
		}

		// cash on delivery is collected on delivery
		if next == StatusDelivered {
			if _, err := tx.ExecContext(ctx, `
				UPDATE payments SET status = 'success', updated_at = NOW()
				WHERE id = $1 AND method = 'cod' AND status = 'pending'
			`, paymentID); err != nil {
				return fmt.Errorf("settle cod payment %d: %w", paymentID, err)
			}
		}

		return r.outbox.Insert(ctx, tx, events.TopicOrderStatusChanged, fmt.Sprint(id), events.OrderStatusChanged{
			OrderID: id,
			From:    string(prev),
			To:      string(next),
		})
	})
	return prev, err
}

func (r *repository) Cancel(ctx context.Context, id int64, owner *int64, reason string) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		return r.cancel(ctx, tx, id, owner, false, reason)
	})
}

func (r *repository) CancelTx(ctx context.Context, q db.DBTX, id int64, owner *int64, reason string) error {
	return r.cancel(ctx, q, id, owner, false, reason)
}

func (r *repository) CancelUnfilled(ctx context.Context, id, customerID int64, reason string) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		return r.cancel(ctx, tx, id, &customerID, true, reason)
	})
}

func (r *repository) cancel(ctx context.Context, q db.DBTX, id int64, owner *int64, unfilled bool, reason string) error {
	var (
		customerID int64
		status     Status
		paymentID  int64
	)
	err := q.QueryRowContext(ctx,
		`SELECT customer_id, status, payment_id FROM orders WHERE id = $1 FOR UPDATE`, id,
	).Scan(&customerID, &status, &paymentID)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != nil && *owner != customerID) {
		return ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("lock order %d: %w", id, err)
	}
	if unfilled && status != StatusPending {
		return ErrOrderNotPending
	}
	if !status.Cancellable() {
		return ErrNotCancellable
	}

	items, err := itemsOf(ctx, q, id)
	if err != nil {
		return err
	}
	if unfilled && len(items) > 0 {
		return ErrItemsMismatch
	}

	if _, err := q.ExecContext(ctx,
		`UPDATE orders SET status = 'cancelled', updated_at = NOW() WHERE id = $1`, id,
	); err != nil {
		return fmt.Errorf("cancel order %d: %w", id, err)
	}

	for _, it := range items {
		if err := r.stock.Restore(ctx, q, it.ProductID, it.Quantity); err != nil {
			return err
		}
	}

	if _, err := q.ExecContext(ctx, `
		UPDATE payments
		SET status = CASE WHEN status = 'success' THEN 'refunded' ELSE 'failed' END,
		    updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'success')
	`, paymentID); err != nil {
		return fmt.Errorf("release payment %d: %w", paymentID, err)
	}

	return r.outbox.Insert(ctx, q, events.TopicOrderCancelled, fmt.Sprint(id), events.OrderCancelled{
		OrderID:    id,
		CustomerID: customerID,
		Reason:     reason,
	})
}
