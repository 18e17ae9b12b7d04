package collector

import (
	"context"
	"errors"
	"fmt"

	"github.com/soltixdb/rediswatch/internal/conn"
	"github.com/soltixdb/rediswatch/internal/logging"
	"github.com/soltixdb/rediswatch/internal/models"
	"github.com/soltixdb/rediswatch/internal/parser"
	"github.com/soltixdb/rediswatch/internal/registry"
)

const (
	fieldClusterEnabled = "cluster_enabled"
	fieldDefaultDB      = "db0"
)

// nodeReplies is the raw outcome of one fetch
type nodeReplies struct {
	info     parser.Fields
	limit    []interface{}
	topology string
	// topologyErr is set when the server refused CLUSTER NODES
	topologyErr error
}

// NodeCollector collects NodeStatus records
type NodeCollector struct {
	dialer   conn.Dialer
	policy   conn.Policy
	capacity CapacityChecker // optional
	logger   *logging.Logger
}

// NewNodeCollector creates a node collector. capacity may be nil.
func NewNodeCollector(dialer conn.Dialer, policy conn.Policy, capacity CapacityChecker, logger *logging.Logger) *NodeCollector {
	return &NodeCollector{
		dialer:   dialer,
		policy:   policy,
		capacity: capacity,
		logger:   logger.Component("node_collector"),
	}
}

// Collect fetches and builds the status of the node at addr
func (c *NodeCollector) Collect(ctx context.Context, addr string) (*models.NodeStatus, error) {
	var replies *nodeReplies
	err := conn.Retry(ctx, c.policy, retryNotifier(ctx, c.logger), func(ctx context.Context) error {
		r, err := c.fetch(ctx, addr)
		if err != nil {
			return err
		}
		replies = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	status, topoErr, err := buildNodeStatus(replies)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", addr, err)
	}
	if topoErr != nil {
		c.logger.WithContext(ctx).Warn("Cluster topology unknown", "error", topoErr)
	}
	return status, nil
}

// Poll collects entry and publishes the result. A failed collection leaves
// the previous record and availability untouched.
func (c *NodeCollector) Poll(ctx context.Context, entry *registry.Entry) error {
	status, err := c.Collect(ctx, entry.Addr())
	if err != nil {
		entry.RecordFailure()
		return err
	}

	entry.PublishNode(status)
	entry.MarkAvailable()

	c.checkCapacity(ctx, entry.Addr(), status)
	return nil
}

// checkCapacity is advisory: nothing it does can fail the collection
func (c *NodeCollector) checkCapacity(ctx context.Context, addr string, status *models.NodeStatus) {
	if c.capacity == nil {
		return
	}
	log := c.logger.WithContext(ctx)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Capacity check panicked", "panic", fmt.Sprint(r))
		}
	}()

	if _, err := c.capacity.Check(ctx, addr, status); err != nil {
		log.Error("Capacity check failed", "error", err)
	}
}

func (c *NodeCollector) fetch(ctx context.Context, addr string) (*nodeReplies, error) {
	var r nodeReplies
	err := conn.WithConn(ctx, c.dialer, addr, func(cn conn.Conn) error {
		info, err := cn.Query(ctx, "INFO")
		if err != nil {
			return err
		}
		r.info = parser.ParseInfo(info)

		r.limit, err = cn.QuerySlice(ctx, "CONFIG", "GET", parser.MaxMemoryField)
		if err != nil {
			return err
		}

		if !r.info.Enabled(fieldClusterEnabled) {
			return nil
		}
		r.topology, err = cn.Query(ctx, "CLUSTER", "NODES")
		var replyErr *conn.ReplyError
		if errors.As(err, &replyErr) {
			r.topologyErr = err
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// buildNodeStatus converts replies into a complete record. A topology
// failure does not fail the build: the record is returned with the topology
// unknown and the reason as topoErr.
func buildNodeStatus(r *nodeReplies) (status *models.NodeStatus, topoErr error, err error) {
	limit, err := parser.MemoryLimit(r.limit)
	if err != nil {
		return nil, nil, err
	}

	fields := make(parser.Fields, len(r.info)+1)
	for k, v := range r.info {
		fields[k] = v
	}
	fields[parser.MaxMemoryField] = limit

	x := fields.Extract()
	s := &models.NodeStatus{
		ClusterEnabled: fields.Enabled(fieldClusterEnabled),

		UsedMemory:      x.Int("used_memory"),
		UsedMemoryRSS:   x.Int("used_memory_rss"),
		UsedMemoryHuman: x.String("used_memory_human"),
		MaxMemory:       x.Int(parser.MaxMemoryField),
		CPUSys:          x.Float("used_cpu_sys"),
		CPUUser:         x.Float("used_cpu_user"),
		UptimeSeconds:   x.Int("uptime_in_seconds"),

		ConnectedClients:       x.Int("connected_clients"),
		TotalCommandsProcessed: x.Int("total_commands_processed"),
		ExpiredKeys:            x.Int("expired_keys"),
		EvictedKeys:            x.Int("evicted_keys"),
		KeyspaceHits:           x.Int("keyspace_hits"),
		KeyspaceMisses:         x.Int("keyspace_misses"),
		KeyCount:               fields.KeyspaceKeys(fieldDefaultDB),

		AOFEnabled: x.Flag("aof_enabled"),
		Version:    x.String("redis_version"),
		Available:  true,
	}
	if err := x.Err(); err != nil {
		return nil, nil, err
	}

	if s.ClusterEnabled {
		topoErr = applyTopology(s, r)
	}
	return s, topoErr, nil
}

func applyTopology(s *models.NodeStatus, r *nodeReplies) error {
	if r.topologyErr != nil {
		return r.topologyErr
	}
	topo, err := parser.ParseClusterNodes(r.topology)
	if err != nil {
		return err
	}

	nodeID := topo.NodeID
	s.NodeID = &nodeID
	s.IsReplica = topo.IsReplica
	s.PrimaryID = topo.PrimaryID
	s.OwnedSlots = topo.OwnedSlots
	s.MigratingSlots = topo.MigratingSlots
	return nil
}
