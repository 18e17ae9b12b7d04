package queue

import (
	"context"
	"fmt"
	"sync"
)

const defaultMemoryCapacity = 10000

// MemoryPublisher keeps published messages in memory.
// It backs single-process deployments and tests.
type MemoryPublisher struct {
	messages []Message
	capacity int
	closed   bool
	mu       sync.RWMutex
}

// NewMemoryPublisher creates an in-memory publisher
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{capacity: defaultMemoryCapacity}
}

// Publish stores a copy of data. The oldest message is dropped once full.
func (q *MemoryPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return fmt.Errorf("publisher closed")
	}
	if len(q.messages) >= q.capacity {
		q.messages = q.messages[1:]
	}
	q.messages = append(q.messages, Message{Subject: subject, Data: dataCopy})
	return nil
}

// Messages returns the retained messages published to subject
func (q *MemoryPublisher) Messages(subject string) []Message {
	q.mu.RLock()
	defer q.mu.RUnlock()

	var out []Message
	for _, m := range q.messages {
		if m.Subject == subject {
			out = append(out, m)
		}
	}
	return out
}

// Count returns the number of retained messages for subject
func (q *MemoryPublisher) Count(subject string) int {
	return len(q.Messages(subject))
}

// Close rejects further publishes
func (q *MemoryPublisher) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}
