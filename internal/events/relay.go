package events

import (
	"context"
	"time"

	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"

	"go.uber.org/zap"
)

const defaultBatchSize = 100

// Relay drains the outbox into a Publisher. Delivery is at-least-once:
// a crash between Publish and MarkSent re-sends the event, and consumers
// dedupe on event_id.
type Relay struct {
	outbox    Outbox
	publisher Publisher
	metrics   *metrics.Metrics
	interval  time.Duration
	batchSize int
}

func NewRelay(outbox Outbox, publisher Publisher, m *metrics.Metrics, interval time.Duration) *Relay {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Relay{
		outbox:    outbox,
		publisher: publisher,
		metrics:   m,
		interval:  interval,
		batchSize: defaultBatchSize,
	}
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	log := logger.FromCtx(ctx).With(zap.String("worker", "outbox_relay"))
	log.Info("outbox relay started", zap.Duration("interval", r.interval))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("outbox relay stopped")
			return nil
		case <-ticker.C:
			if _, err := r.RelayOnce(ctx); err != nil && ctx.Err() == nil {
				log.Warn("outbox relay pass failed", zap.Error(err))
			}
		}
	}
}

// RelayOnce publishes one batch and returns how many events were sent.
// It stops at the first publish failure to keep per-key ordering.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	records, err := r.outbox.FetchPending(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, rec := range records {
		if err := r.publisher.Publish(ctx, rec.Envelope()); err != nil {
			if r.metrics != nil {
				r.metrics.OutboxFailed.Inc()
			}
			return sent, err
		}

		if err := r.outbox.MarkSent(ctx, rec.ID); err != nil {
			return sent, err
		}

		if r.metrics != nil {
			r.metrics.OutboxSent.WithLabelValues(rec.Topic).Inc()
		}
		sent++
	}
	return sent, nil
}
