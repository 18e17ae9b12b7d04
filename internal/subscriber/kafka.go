package subscriber

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/soltixdb/rediswatch/internal/logging"
	"github.com/soltixdb/rediswatch/internal/queue"
)

// KafkaSubscriber reads the topics written by the queue publisher
type KafkaSubscriber struct {
	brokers []string
	group   string
	logger  *logging.Logger
	readers map[string]*kafka.Reader
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
}

// NewKafkaSubscriber creates a subscriber. An empty group reads
// partition 0 from the newest offset without committing.
func NewKafkaSubscriber(brokers []string, group string, logger *logging.Logger) (*KafkaSubscriber, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}

	return &KafkaSubscriber{
		brokers: brokers,
		group:   group,
		logger:  logger.Component("subscriber.kafka"),
		readers: make(map[string]*kafka.Reader),
		cancels: make(map[string]context.CancelFunc),
	}, nil
}

func (s *KafkaSubscriber) readerConfig(topic string) kafka.ReaderConfig {
	cfg := kafka.ReaderConfig{
		Brokers:     s.brokers,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
		MaxWait:     time.Second,
		StartOffset: kafka.LastOffset,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			s.logger.Debug(fmt.Sprintf(msg, args...), "topic", topic)
		}),
	}
	if s.group != "" {
		cfg.GroupID = s.group
		cfg.CommitInterval = time.Second
	}
	return cfg
}

// Subscribe starts reading the topic of subject
func (s *KafkaSubscriber) Subscribe(ctx context.Context, subject string, handler MessageHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	topic := queue.KafkaTopic(subject)
	if _, exists := s.readers[topic]; exists {
		return fmt.Errorf("already subscribed to topic: %s", topic)
	}

	reader := kafka.NewReader(s.readerConfig(topic))
	s.readers[topic] = reader

	subCtx, cancel := context.WithCancel(ctx)
	s.cancels[topic] = cancel

	s.wg.Add(1)
	go s.consume(subCtx, reader, subject, handler)

	s.logger.Info("Subscribed to Kafka topic", "topic", topic, "group", s.group)
	return nil
}

func (s *KafkaSubscriber) consume(ctx context.Context, reader *kafka.Reader, subject string, handler MessageHandler) {
	defer s.wg.Done()
	topic := reader.Config().Topic

	for {
		// FetchMessage does not commit; ReadMessage would commit for groups
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Error("Failed to fetch message", "topic", topic, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		if err := handler(ctx, subject, msg.Value); err != nil {
			s.logger.Error("Failed to handle message", "topic", topic, "offset", msg.Offset, "error", err)
			continue
		}

		if s.group != "" {
			if err := reader.CommitMessages(ctx, msg); err != nil {
				s.logger.Warn("Failed to commit message", "topic", topic, "offset", msg.Offset, "error", err)
			}
		}
	}
}

// Unsubscribe stops reading the topic of subject
func (s *KafkaSubscriber) Unsubscribe(subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	topic := queue.KafkaTopic(subject)
	cancel, exists := s.cancels[topic]
	if !exists {
		return fmt.Errorf("not subscribed to topic: %s", topic)
	}
	cancel()
	delete(s.cancels, topic)

	if reader, ok := s.readers[topic]; ok {
		if err := reader.Close(); err != nil {
			s.logger.Warn("Failed to close reader", "topic", topic, "error", err)
		}
		delete(s.readers, topic)
	}
	return nil
}

// Close stops every reader
func (s *KafkaSubscriber) Close() error {
	s.mu.Lock()
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = make(map[string]context.CancelFunc)

	var lastErr error
	for topic, reader := range s.readers {
		if err := reader.Close(); err != nil {
			s.logger.Warn("Failed to close reader", "topic", topic, "error", err)
			lastErr = err
		}
	}
	s.readers = make(map[string]*kafka.Reader)
	s.mu.Unlock()

	s.wg.Wait()
	return lastErr
}
