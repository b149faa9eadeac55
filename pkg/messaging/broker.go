package messaging

import (
	"context"
)

// Message is one payload received on a channel.
type Message struct {
	Channel string
	Payload []byte
}

// Broker defines the interface for message brokers
type Broker interface {
	// Publish JSON encodes message onto channel. json.RawMessage payloads pass through untouched.
	Publish(ctx context.Context, channel string, message interface{}) error
	// Subscribe delivers messages from the channels until ctx is done, then closes the returned channel.
	Subscribe(ctx context.Context, channels ...string) (<-chan Message, error)
	Close() error
}

// Handler processes one message. Returned errors are logged by Consume and do not stop it.
type Handler func(ctx context.Context, msg Message) error
