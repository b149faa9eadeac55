package messaging

import (
	"context"
	"fmt"

	"github.com/medmap/scheduling-api/pkg/logger"
)

// Consume subscribes to channels and feeds every message to handler until ctx is done.
func Consume(ctx context.Context, broker Broker, channels []string, handler Handler, log *logger.Logger) error {
	msgs, err := broker.Subscribe(ctx, channels...)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	for msg := range msgs {
		if err := handler(ctx, msg); err != nil {
			// Log error but continue processing
			log.Error(err, "Failed to handle message", "channel", msg.Channel)
		}
	}
	return nil
}
