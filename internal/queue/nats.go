package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSConfig represents NATS configuration
type NATSConfig struct {
	URL      string
	Username string
	Password string
}

// NATSPublisher publishes on core NATS subjects
type NATSPublisher struct {
	conn *nats.Conn
}

func newNATSPublisher(cfg NATSConfig) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("rediswatch"),
		nats.Timeout(5 * time.Second),
		nats.MaxReconnects(-1),
	}
	if cfg.Username != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

// newNATSPublisherWithConn wraps an existing connection (used in tests)
func newNATSPublisherWithConn(conn *nats.Conn) *NATSPublisher {
	return &NATSPublisher{conn: conn}
}

// Publish publishes a message and flushes it to the server
func (q *NATSPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if err := q.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", subject, err)
	}
	if err := q.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush subject %s: %w", subject, err)
	}
	return nil
}

// Close drains and closes the connection
func (q *NATSPublisher) Close() error {
	if err := q.conn.Drain(); err != nil {
		q.conn.Close()
		return err
	}
	return nil
}
