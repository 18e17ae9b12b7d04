package subscriber

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/soltixdb/rediswatch/internal/logging"
	"github.com/soltixdb/rediswatch/internal/queue"
)

// RedisSubscriber tails Redis Streams written by the queue publisher.
// Reads start at the newest entry and no consumer group is created, so
// following a feed never steals entries from real consumers.
type RedisSubscriber struct {
	client        *redis.Client
	streamPrefix  string
	logger        *logging.Logger
	subscriptions map[string]context.CancelFunc
	wg            sync.WaitGroup
	mu            sync.Mutex
}

// NewRedisSubscriber connects to url, a redis:// URL or a bare host:port
func NewRedisSubscriber(url, password string, db int, streamPrefix string, logger *logging.Logger) (*RedisSubscriber, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		opts = &redis.Options{
			Addr:     url,
			Password: password,
			DB:       db,
		}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if streamPrefix == "" {
		streamPrefix = "rediswatch"
	}

	return &RedisSubscriber{
		client:        client,
		streamPrefix:  streamPrefix,
		logger:        logger.Component("subscriber.redis"),
		subscriptions: make(map[string]context.CancelFunc),
	}, nil
}

// Subscribe starts tailing the stream of subject
func (s *RedisSubscriber) Subscribe(ctx context.Context, subject string, handler MessageHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream := queue.RedisStream(s.streamPrefix, subject)
	if _, exists := s.subscriptions[stream]; exists {
		return fmt.Errorf("already subscribed to stream: %s", stream)
	}

	subCtx, cancel := context.WithCancel(ctx)
	s.subscriptions[stream] = cancel

	s.wg.Add(1)
	go s.consume(subCtx, stream, subject, handler)

	s.logger.Info("Tailing Redis stream", "stream", stream)
	return nil
}

func (s *RedisSubscriber) consume(ctx context.Context, stream, subject string, handler MessageHandler) {
	defer s.wg.Done()

	lastID := "$"
	for ctx.Err() == nil {
		streams, err := s.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{stream, lastID},
			Count:   100,
			Block:   time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			s.logger.Error("Failed to read from stream", "stream", stream, "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		for _, st := range streams {
			for _, message := range st.Messages {
				lastID = message.ID
				data, ok := message.Values["data"].(string)
				if !ok {
					s.logger.Warn("Entry without data field", "stream", stream, "id", message.ID)
					continue
				}
				if err := handler(ctx, subject, []byte(data)); err != nil {
					s.logger.Error("Failed to handle message", "stream", stream, "id", message.ID, "error", err)
				}
			}
		}
	}
}

// Unsubscribe stops tailing the stream of subject
func (s *RedisSubscriber) Unsubscribe(subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream := queue.RedisStream(s.streamPrefix, subject)
	cancel, exists := s.subscriptions[stream]
	if !exists {
		return fmt.Errorf("not subscribed to stream: %s", stream)
	}
	cancel()
	delete(s.subscriptions, stream)
	return nil
}

// Close stops every tail and closes the client
func (s *RedisSubscriber) Close() error {
	s.mu.Lock()
	for _, cancel := range s.subscriptions {
		cancel()
	}
	s.subscriptions = make(map[string]context.CancelFunc)
	s.mu.Unlock()

	s.wg.Wait()
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}
	return nil
}
