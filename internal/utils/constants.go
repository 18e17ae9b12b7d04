package utils

import "time"

// =============================================================================
// Timeout Constants
// =============================================================================

// HTTP Handler Timeouts
const (
	// DefaultRequestTimeout is the default timeout for HTTP requests
	DefaultRequestTimeout = 30 * time.Second

	// ShutdownTimeout bounds graceful shutdown of the API and poller
	ShutdownTimeout = 10 * time.Second
)

// etcd Timeouts
const (
	// EtcdRequestTimeout bounds a single etcd Get
	EtcdRequestTimeout = 3 * time.Second
)

// Queue Timeouts
const (
	// PublishTimeout bounds a single alarm or rebalance publish
	PublishTimeout = 5 * time.Second
)

// =============================================================================
// Queue Type Constants
// =============================================================================

// QueueType represents the type of message queue
type QueueType string

const (
	// QueueTypeNATS represents NATS core subjects
	QueueTypeNATS QueueType = "nats"

	// QueueTypeRedis represents Redis Streams queue
	QueueTypeRedis QueueType = "redis"

	// QueueTypeKafka represents Apache Kafka queue
	QueueTypeKafka QueueType = "kafka"

	// QueueTypeMemory represents in-memory queue (default, and for testing)
	QueueTypeMemory QueueType = "memory"
)

// =============================================================================
// Subject Constants
// =============================================================================

const (
	// AlarmSubject is appended to the subject prefix for alarms
	AlarmSubject = "alarm"

	// BalanceRequestSubject is appended to the subject prefix for rebalance requests
	BalanceRequestSubject = "balance.request"
)

// Subject joins a prefix and a subject suffix with a dot
func Subject(prefix, suffix string) string {
	if prefix == "" {
		return suffix
	}
	return prefix + "." + suffix
}
