package events

import (
	"context"
	"fmt"
	"strings"

	"storefront-be/internal/config"
	"storefront-be/internal/logger"

	"go.uber.org/zap"
)

type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
	Close() error
}

// NewPublisher picks the broker named by cfg.EventBroker.
func NewPublisher(cfg *config.Config) (Publisher, error) {
	switch cfg.EventBroker {
	case "rabbitmq":
		return NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQExch)
	case "kafka":
		return NewKafkaPublisher(cfg.KafkaBrokers)
	case "log", "":
		return LogPublisher{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBroker, cfg.EventBroker)
	}
}

// LogPublisher writes events to the application log. Used in development.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, env Envelope) error {
	fields := []zap.Field{
		zap.String("event_id", env.EventID),
		zap.String("topic", env.Topic),
		zap.String("key", env.Key),
	}
	// never log one-time codes
	if !strings.HasPrefix(env.Topic, "notification.") {
		fields = append(fields, zap.ByteString("payload", env.Payload))
	}

	logger.FromCtx(ctx).Info("event published", fields...)
	return nil
}

func (LogPublisher) Close() error { return nil }
