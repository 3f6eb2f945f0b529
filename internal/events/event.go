package events

import (
	"encoding/json"
	"time"
)

const (
	TopicOrderCreated       = "order.created"
	TopicOrderCancelled     = "order.cancelled"
	TopicOrderStatusChanged = "order.status_changed"
	TopicPaymentVoided      = "payment.voided"
	TopicPaymentCaptured    = "payment.captured"
	TopicPaymentFailed      = "payment.failed"
	TopicNotificationOTP    = "notification.otp"
)

// Record is one outbox row.
type Record struct {
	ID        int64           `json:"id"`
	EventID   string          `json:"event_id"`
	Topic     string          `json:"topic"`
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	SentAt    *time.Time      `json:"sent_at,omitempty"`
}

// Envelope is what goes on the wire.
type Envelope struct {
	EventID   string          `json:"event_id"`
	Topic     string          `json:"topic"`
	Key       string          `json:"key"`
	CreatedAt time.Time       `json:"created_at"`
	Payload   json.RawMessage `json:"payload"`
}

func (r Record) Envelope() Envelope {
	return Envelope{
		EventID:   r.EventID,
		Topic:     r.Topic,
		Key:       r.Key,
		CreatedAt: r.CreatedAt,
		Payload:   r.Payload,
	}
}

type OrderCreated struct {
	OrderID     int64  `json:"order_id"`
	OrderNumber string `json:"order_number"`
	CustomerID  int64  `json:"customer_id"`
	PaymentID   int64  `json:"payment_id"`
	TotalAmount string `json:"total_amount"`
}

type OrderCancelled struct {
	OrderID    int64  `json:"order_id"`
	CustomerID int64  `json:"customer_id"`
	Reason     string `json:"reason"`
}

type OrderStatusChanged struct {
	OrderID int64  `json:"order_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

type PaymentEvent struct {
	PaymentID  int64  `json:"payment_id"`
	OrderID    *int64 `json:"order_id,omitempty"`
	CustomerID int64  `json:"customer_id"`
	Reason     string `json:"reason,omitempty"`
}

type OTPNotification struct {
	Purpose  string `json:"purpose"`
	Channel  string `json:"channel"`
	Identity string `json:"identity"`
	Code     string `json:"code"`
	TTLSec   int    `json:"ttl_seconds"`
}
