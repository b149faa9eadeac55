package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryBroker is an in-process Broker. It keeps every published message so
// tests can inspect them, and fans messages out to live subscribers.
type MemoryBroker struct {
	mu        sync.Mutex
	published []Message
	subs      map[string][]chan Message
	// FailWith, when set, makes Publish return it.
	FailWith error
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string][]chan Message)}
}

func (b *MemoryBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailWith != nil {
		return b.FailWith
	}
	msg := Message{Channel: channel, Payload: payload}
	b.published = append(b.published, msg)
	for _, ch := range b.subs[channel] {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, channels ...string) (<-chan Message, error) {
	ch := make(chan Message, 100)

	b.mu.Lock()
	for _, c := range channels {
		b.subs[c] = append(b.subs[c], ch)
	}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, c := range channels {
			subs := b.subs[c]
			for i, s := range subs {
				if s == ch {
					b.subs[c] = append(subs[:i], subs[i+1:]...)
					break
				}
			}
		}
		close(ch)
	}()
	return ch, nil
}

// Published returns a copy of everything published so far.
func (b *MemoryBroker) Published() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Message, len(b.published))
	copy(out, b.published)
	return out
}

func (b *MemoryBroker) Close() error { return nil }
