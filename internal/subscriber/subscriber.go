// Package subscriber follows the alarm and rebalance request feeds that
// rediswatch publishes, over the same transports as the queue package.
package subscriber

import (
	"context"
	"fmt"

	"github.com/soltixdb/rediswatch/internal/queue"
)

// MessageHandler processes one decoded payload
type MessageHandler func(ctx context.Context, subject string, data []byte) error

// Subscriber delivers messages published on a subject
type Subscriber interface {
	// Subscribe starts delivering subject to handler until Unsubscribe or Close
	Subscribe(ctx context.Context, subject string, handler MessageHandler) error

	// Unsubscribe stops delivery for subject
	Unsubscribe(subject string) error

	// Close stops every subscription and releases the connection
	Close() error
}

// decodingSubscriber reverses the publisher's codec before the handler runs
type decodingSubscriber struct {
	Subscriber
	codec queue.Codec
}

// WithCodec wraps s so handlers receive decoded payloads
func WithCodec(s Subscriber, c queue.Codec) Subscriber {
	if c.Name() == "none" {
		return s
	}
	return &decodingSubscriber{Subscriber: s, codec: c}
}

func (d *decodingSubscriber) Subscribe(ctx context.Context, subject string, handler MessageHandler) error {
	return d.Subscriber.Subscribe(ctx, subject, func(ctx context.Context, subject string, data []byte) error {
		decoded, err := d.codec.Decode(data)
		if err != nil {
			return fmt.Errorf("failed to decode %s payload: %w", d.codec.Name(), err)
		}
		return handler(ctx, subject, decoded)
	})
}
