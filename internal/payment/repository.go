package payment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"storefront-be/internal/db"
	"storefront-be/internal/events"

	"github.com/shopspring/decimal"
)

type Repository interface {
	// Insert and LinkOrder join the caller's transaction when q is a *sql.Tx
	// and use the pool when q is nil.
	Insert(ctx context.Context, q db.DBTX, p *Payment) error
	GetByID(ctx context.Context, id int64) (*Payment, error)
	GetByProviderOrderID(ctx context.Context, providerOrderID string) (*Payment, error)

	// LinkOrder back-fills order_id. Linking twice to the same order is a
	// no-op; a nil amount keeps the stored amount.
	LinkOrder(ctx context.Context, q db.DBTX, paymentID, customerID, orderID int64, amount *decimal.Decimal) error
	SetProviderOrder(ctx context.Context, id int64, providerOrderID string) (string, error)

	Capture(ctx context.Context, id int64, providerPaymentID string) (bool, error)
	Fail(ctx context.Context, id int64, reason string) (bool, error)
	// Void deletes a payment that never got an order and records why.
	Void(ctx context.Context, id, customerID int64, reason string) (bool, error)

	SaveWebhook(ctx context.Context, provider, eventID, eventType string, payload json.RawMessage) (webhookID int64, isDuplicate bool, err error)
	MarkWebhookProcessed(ctx context.Context, webhookID int64) error
	MarkWebhookFailed(ctx context.Context, webhookID int64, reason string) error
}

type repository struct {
	db     *sql.DB
	outbox events.Outbox
}

func NewRepository(conn *sql.DB, outbox events.Outbox) Repository {
	return &repository{db: conn, outbox: outbox}
}

const paymentColumns = `id, customer_id, order_id, amount, method, status, provider_order_id, provider_payment_id, created_at, updated_at`

func scanPayment(row *sql.Row) (*Payment, error) {
	var (
		p                 Payment
		orderID           sql.NullInt64
		providerOrderID   sql.NullString
		providerPaymentID sql.NullString
	)

	err := row.Scan(
		&p.ID, &p.CustomerID, &orderID, &p.Amount, &p.Method, &p.Status,
		&providerOrderID, &providerPaymentID, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}

	if orderID.Valid {
		p.OrderID = &orderID.Int64
	}
	if providerOrderID.Valid {
		p.ProviderOrderID = &providerOrderID.String
	}
	if providerPaymentID.Valid {
		p.ProviderPaymentID = &providerPaymentID.String
	}
	return &p, nil
}

func (r *repository) or(q db.DBTX) db.DBTX {
	if q == nil {
		return r.db
	}
	return q
}

func (r *repository) Insert(ctx context.Context, q db.DBTX, p *Payment) error {
	q = r.or(q)
	err := q.QueryRowContext(ctx, `
		INSERT INTO payments (customer_id, amount, method, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, p.CustomerID, p.Amount, p.Method, p.Status).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Payment, error) {
	return scanPayment(r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
}

func (r *repository) GetByProviderOrderID(ctx context.Context, providerOrderID string) (*Payment, error) {
	return scanPayment(r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE provider_order_id = $1`, providerOrderID))
}

func (r *repository) LinkOrder(ctx context.Context, q db.DBTX, paymentID, customerID, orderID int64, amount *decimal.Decimal) error {
	q = r.or(q)

	var amt decimal.NullDecimal
	if amount != nil {
		amt = decimal.NullDecimal{Decimal: *amount, Valid: true}
	}

	res, err := q.ExecContext(ctx, `
		UPDATE payments
		SET order_id = $1, amount = COALESCE($2, amount), updated_at = NOW()
		WHERE id = $3
		  AND customer_id = $4
		  AND (order_id IS NULL OR order_id = $1)
		  AND EXISTS (SELECT 1 FROM orders o WHERE o.id = $1 AND o.customer_id = $4)
	`, orderID, amt, paymentID, customerID)
	if err != nil {
		return fmt.Errorf("link payment %d: %w", paymentID, err)
	}

	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}

	var (
		owner   int64
		current sql.NullInt64
	)
	err = q.QueryRowContext(ctx,
		`SELECT customer_id, order_id FROM payments WHERE id = $1`, paymentID,
	).Scan(&owner, &current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrPaymentNotFound
	case err != nil:
		return err
	case owner != customerID:
		return ErrPaymentNotFound
	case current.Valid && current.Int64 != orderID:
		return ErrAlreadyLinked
	default:
		return ErrNotLinkable
	}
}

// SetProviderOrder attaches a Razorpay order to a pending payment exactly
// once. It returns the provider order ID the payment ends up with, which is
// the earlier one when a concurrent attempt won.
func (r *repository) SetProviderOrder(ctx context.Context, id int64, providerOrderID string) (string, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payments SET provider_order_id = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'pending' AND provider_order_id IS NULL
	`, providerOrderID, id)
	if err != nil {
		return "", fmt.Errorf("set provider order: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return providerOrderID, nil
	}

	var existing sql.NullString
	err = r.db.QueryRowContext(ctx,
		`SELECT provider_order_id FROM payments WHERE id = $1`, id,
	).Scan(&existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", ErrPaymentNotFound
	case err != nil:
		return "", fmt.Errorf("read provider order: %w", err)
	case !existing.Valid:
		return "", ErrNotPending
	}
	return existing.String, nil
}

// Capture marks a pending payment successful, confirms its order and emits
// payment.captured. It reports false when the payment was not pending.
func (r *repository) Capture(ctx context.Context, id int64, providerPaymentID string) (bool, error) {
	changed := false
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var (
			customerID int64
			orderID    sql.NullInt64
		)
		err := tx.QueryRowContext(ctx, `
			UPDATE payments
			SET status = 'success', provider_payment_id = $1, updated_at = NOW()
			WHERE id = $2 AND status = 'pending'
			RETURNING customer_id, order_id
		`, providerPaymentID, id).Scan(&customerID, &orderID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("capture payment %d: %w", id, err)
		}
		changed = true

		evt := events.PaymentEvent{PaymentID: id, CustomerID: customerID}
		if orderID.Valid {
			evt.OrderID = &orderID.Int64
			if _, err := tx.ExecContext(ctx, `
				UPDATE orders SET status = 'confirmed', updated_at = NOW()
				WHERE id = $1 AND status = 'pending'
			`, orderID.Int64); err != nil {
				return fmt.Errorf("confirm order %d: %w", orderID.Int64, err)
			}
		}

		return r.outbox.Insert(ctx, tx, events.TopicPaymentCaptured, fmt.Sprint(id), evt)
	})
	return changed, err
}

func (r *repository) Fail(ctx context.Context, id int64, reason string) (bool, error) {
	changed := false
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var (
			customerID int64
			orderID    sql.NullInt64
		)
		err := tx.QueryRowContext(ctx, `
			UPDATE payments SET status = 'failed', updated_at = NOW()
			WHERE id = $1 AND status = 'pending'
			RETURNING customer_id, order_id
		`, id).Scan(&customerID, &orderID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("fail payment %d: %w", id, err)
		}
		changed = true

		evt := events.PaymentEvent{PaymentID: id, CustomerID: customerID, Reason: reason}
		if orderID.Valid {
			evt.OrderID = &orderID.Int64
		}
		return r.outbox.Insert(ctx, tx, events.TopicPaymentFailed, fmt.Sprint(id), evt)
	})
	return changed, err
}

func (r *repository) Void(ctx context.Context, id, customerID int64, reason string) (bool, error) {
	deleted := false
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM payments WHERE id = $1 AND customer_id = $2 AND order_id IS NULL`,
			id, customerID,
		)
		if err != nil {
			return fmt.Errorf("void payment %d: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		deleted = true

		return r.outbox.Insert(ctx, tx, events.TopicPaymentVoided, fmt.Sprint(id), events.PaymentEvent{
			PaymentID:  id,
			CustomerID: customerID,
			Reason:     reason,
		})
	})
	return deleted, err
}

func (r *repository) SaveWebhook(
	ctx context.Context,
	provider string,
	eventID string,
	eventType string,
	payload json.RawMessage,
) (int64, bool, error) {

	const q = `
	INSERT INTO payment_webhooks (
		provider,
		event_id,
		event_type,
		payload
	)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (provider, event_id)
	DO UPDATE SET payload = EXCLUDED.payload, process_error = NULL
	WHERE payment_webhooks.processed_at IS NULL
	RETURNING id;
	`

	var id int64
	err := r.db.QueryRowContext(ctx, q, provider, eventID, eventType, string(payload)).Scan(&id)
	if err != nil {
		// already processed
		if errors.Is(err, sql.ErrNoRows) {
			return 0, true, nil
		}
		return 0, false, err
	}

	return id, false, nil
}

func (r *repository) MarkWebhookProcessed(ctx context.Context, webhookID int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE payment_webhooks SET processed_at = NOW() WHERE id = $1`, webhookID)
	return err
}

func (r *repository) MarkWebhookFailed(ctx context.Context, webhookID int64, reason string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE payment_webhooks SET process_error = $2 WHERE id = $1`, webhookID, reason)
	return err
}
