package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"storefront-be/internal/db"

	"github.com/google/uuid"
)

type Outbox interface {
	Insert(ctx context.Context, ex db.Execer, topic, key string, payload any) error
	FetchPending(ctx context.Context, limit int) ([]Record, error)
	MarkSent(ctx context.Context, id int64) error
}

type outbox struct {
	conn *sql.DB
}

func NewOutbox(conn *sql.DB) Outbox {
	return &outbox{conn: conn}
}

func (o *outbox) Insert(ctx context.Context, ex db.Execer, topic, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}

	_, err = ex.ExecContext(ctx,
		`INSERT INTO outbox (event_id, topic, key, payload) VALUES ($1, $2, $3, $4)`,
		uuid.NewString(), topic, key, string(data),
	)
	if err != nil {
		return fmt.Errorf("insert outbox %s: %w", topic, err)
	}
	return nil
}

func (o *outbox) FetchPending(ctx context.Context, limit int) ([]Record, error) {
	rows, err := o.conn.QueryContext(ctx, `
		SELECT id, event_id, topic, key, payload, created_at, sent_at
		FROM outbox
		WHERE sent_at IS NULL
		ORDER BY id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch pending outbox: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var payload []byte
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.Topic, &rec.Key, &payload, &rec.CreatedAt, &rec.SentAt); err != nil {
			return nil, err
		}
		rec.Payload = payload
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (o *outbox) MarkSent(ctx context.Context, id int64) error {
	_, err := o.conn.ExecContext(ctx, `UPDATE outbox SET sent_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark outbox %d sent: %w", id, err)
	}
	return nil
}
