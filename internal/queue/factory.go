package queue

import (
	"fmt"
	"strings"

	"github.com/soltixdb/rediswatch/internal/config"
	"github.com/soltixdb/rediswatch/internal/utils"
)

// NewPublisher creates a Publisher based on configuration.
// Memory is the default so a bare config runs without a broker.
// Payloads are compressed when cfg.Compression names a codec.
func NewPublisher(cfg config.QueueConfig) (Publisher, error) {
	codec, err := NewCodec(cfg.Compression)
	if err != nil {
		return nil, err
	}
	pub, err := newTransport(cfg)
	if err != nil {
		return nil, err
	}
	return WithCodec(pub, codec), nil
}

func newTransport(cfg config.QueueConfig) (Publisher, error) {
	queueType := utils.QueueType(strings.ToLower(cfg.Type))
	if queueType == "" {
		queueType = utils.QueueTypeMemory
	}

	switch queueType {
	case utils.QueueTypeNATS:
		return newNATSPublisher(NATSConfig{
			URL:      cfg.URL,
			Username: cfg.Username,
			Password: cfg.Password,
		})

	case utils.QueueTypeRedis:
		return newRedisPublisher(RedisConfig{
			URL:      cfg.URL,
			Password: cfg.Password,
			DB:       cfg.RedisDB,
			Stream:   cfg.RedisStream,
			MaxLen:   cfg.RedisMaxLen,
		})

	case utils.QueueTypeKafka:
		return newKafkaPublisher(KafkaConfig{
			Brokers: cfg.KafkaBrokers,
		})

	case utils.QueueTypeMemory:
		return NewMemoryPublisher(), nil

	default:
		return nil, fmt.Errorf("unsupported queue type: %s (supported: nats, redis, kafka, memory)", queueType)
	}
}
