package collector

import (
	"context"
	"fmt"

	"github.com/soltixdb/rediswatch/internal/alarm"
	"github.com/soltixdb/rediswatch/internal/conn"
	"github.com/soltixdb/rediswatch/internal/logging"
	"github.com/soltixdb/rediswatch/internal/models"
	"github.com/soltixdb/rediswatch/internal/registry"
)

// ProxyCollector collects ProxyStatus records, dispatching on proxy kind
type ProxyCollector struct {
	dialer   conn.Dialer
	policy   conn.Policy
	adapters map[models.ProxyKind]ProxyAdapter
	alarmer  alarm.Alarmer
	logger   *logging.Logger
}

// NewProxyCollector creates a proxy collector with the given adapters;
// DefaultAdapters is used when none are passed.
func NewProxyCollector(dialer conn.Dialer, policy conn.Policy, alarmer alarm.Alarmer, logger *logging.Logger, adapters ...ProxyAdapter) *ProxyCollector {
	if len(adapters) == 0 {
		adapters = DefaultAdapters()
	}
	c := &ProxyCollector{
		dialer:   dialer,
		policy:   policy,
		adapters: make(map[models.ProxyKind]ProxyAdapter, len(adapters)),
		alarmer:  alarmer,
		logger:   logger.Component("proxy_collector"),
	}
	for _, a := range adapters {
		c.adapters[a.Kind()] = a
	}
	return c
}

// Adapter returns the adapter for kind
func (c *ProxyCollector) Adapter(kind models.ProxyKind) (ProxyAdapter, error) {
	a, ok := c.adapters[kind]
	if !ok {
		return nil, &models.UnsupportedProxyKindError{Kind: kind.String()}
	}
	return a, nil
}

// Collect fetches and normalizes the status of the proxy at addr.
// An unsupported kind fails before any connection is made.
func (c *ProxyCollector) Collect(ctx context.Context, kind models.ProxyKind, addr string) (*models.ProxyStatus, error) {
	adapter, err := c.Adapter(kind)
	if err != nil {
		return nil, err
	}

	var replies *ProxyReplies
	err = conn.Retry(ctx, c.policy, retryNotifier(ctx, c.logger), func(ctx context.Context) error {
		return conn.WithConn(ctx, c.dialer, addr, func(cn conn.Conn) error {
			r, err := adapter.Fetch(ctx, cn)
			if err != nil {
				return err
			}
			replies = r
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	status, err := adapter.Normalize(replies)
	if err != nil {
		return nil, fmt.Errorf("%s proxy %s: %w", kind, addr, err)
	}
	status.Available = status.ClusterOK
	return status, nil
}

// Poll collects entry and publishes the result. A proxy reporting a broken
// cluster raises an alarm and is marked unavailable.
func (c *ProxyCollector) Poll(ctx context.Context, entry *registry.Entry) error {
	target := entry.Target()
	status, err := c.Collect(ctx, target.ProxyKind, target.Addr)
	if err != nil {
		entry.RecordFailure()
		return err
	}

	entry.PublishProxy(status)
	if status.ClusterOK {
		entry.MarkAvailable()
		return nil
	}

	entry.MarkUnavailable()
	c.raiseClusterAlarm(ctx, target)
	return nil
}

func (c *ProxyCollector) raiseClusterAlarm(ctx context.Context, target models.Target) {
	if c.alarmer == nil {
		return
	}
	message := fmt.Sprintf("Cluster failed behind %s", target.Addr)
	details := map[string]interface{}{
		"addr": target.Addr,
		"kind": target.ProxyKind.String(),
	}
	if err := c.alarmer.RaiseAlarm(ctx, message, details); err != nil {
		c.logger.WithContext(ctx).Error("Failed to raise alarm", "error", err)
	}
}
