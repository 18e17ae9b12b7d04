package subscriber

import (
	"fmt"
	"strings"

	"github.com/soltixdb/rediswatch/internal/config"
	"github.com/soltixdb/rediswatch/internal/logging"
	"github.com/soltixdb/rediswatch/internal/queue"
	"github.com/soltixdb/rediswatch/internal/utils"
)

// NewSubscriber connects to the transport named by cfg. group, when set,
// makes the Kafka reader join a consumer group; otherwise it tails
// partition 0 from the newest offset.
func NewSubscriber(cfg config.QueueConfig, group string, logger *logging.Logger) (Subscriber, error) {
	codec, err := queue.NewCodec(cfg.Compression)
	if err != nil {
		return nil, err
	}

	var sub Subscriber
	switch queueType := utils.QueueType(strings.ToLower(cfg.Type)); queueType {
	case utils.QueueTypeNATS:
		sub, err = NewNATSSubscriber(cfg.URL, cfg.Username, cfg.Password, logger)
	case utils.QueueTypeRedis:
		sub, err = NewRedisSubscriber(cfg.URL, cfg.Password, cfg.RedisDB, cfg.RedisStream, logger)
	case utils.QueueTypeKafka:
		sub, err = NewKafkaSubscriber(cfg.KafkaBrokers, group, logger)
	case "", utils.QueueTypeMemory:
		return nil, fmt.Errorf("memory queue is process-local and cannot be followed")
	default:
		return nil, fmt.Errorf("unsupported queue type: %s", queueType)
	}
	if err != nil {
		return nil, err
	}
	return WithCodec(sub, codec), nil
}
