package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig represents Redis Streams configuration
type RedisConfig struct {
	URL      string // Redis URL (e.g., redis://localhost:6379)
	Password string // Optional password
	DB       int    // Database number (default: 0)
	Stream   string // Stream prefix (default: "rediswatch")
	MaxLen   int64  // Approximate stream cap (default: 10000)
}

// RedisPublisher appends messages to Redis Streams, one stream per subject
type RedisPublisher struct {
	client *redis.Client
	config RedisConfig
}

func newRedisPublisher(cfg RedisConfig) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		opts = &redis.Options{
			Addr:     cfg.URL,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if cfg.Stream == "" {
		cfg.Stream = "rediswatch"
	}
	if cfg.MaxLen <= 0 {
		cfg.MaxLen = 10000
	}

	return &RedisPublisher{client: client, config: cfg}, nil
}

func (q *RedisPublisher) streamName(subject string) string {
	return RedisStream(q.config.Stream, subject)
}

// RedisStream names the stream holding subject: {prefix}:{subject}
func RedisStream(prefix, subject string) string {
	return fmt.Sprintf("%s:%s", prefix, subject)
}

// Publish appends a message to the subject's stream
func (q *RedisPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	stream := q.streamName(subject)

	err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: q.config.MaxLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"data": data,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to Redis stream %s: %w", stream, err)
	}
	return nil
}

// Close closes the Redis connection
func (q *RedisPublisher) Close() error {
	return q.client.Close()
}
