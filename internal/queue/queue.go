package queue

import "context"

// Publisher publishes messages to a queue
type Publisher interface {
	// Publish publishes a message to a subject/topic
	Publish(ctx context.Context, subject string, data []byte) error

	// Close closes the connection
	Close() error
}

// Message is one published payload, as kept by the in-memory backend
type Message struct {
	Subject string
	Data    []byte
}
