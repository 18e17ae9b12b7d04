package capacity

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/soltixdb/rediswatch/internal/alarm"
	"github.com/soltixdb/rediswatch/internal/balance"
	"github.com/soltixdb/rediswatch/internal/logging"
	"github.com/soltixdb/rediswatch/internal/models"
)

// MonitorConfig configures a Monitor
type MonitorConfig struct {
	Threshold float64
	// Cooldown suppresses repeat requests for the same address after one was
	// handed to the provisioner. 0 disables suppression.
	Cooldown time.Duration
}

// Monitor runs Evaluate after each successful node collection and forwards
// requests to the provisioner
type Monitor struct {
	config      MonitorConfig
	resolver    balance.Resolver
	provisioner balance.Provisioner
	alarmer     alarm.Alarmer // optional
	logger      *logging.Logger

	mu          sync.Mutex
	lastRequest map[string]time.Time
	now         func() time.Time
}

// NewMonitor creates a capacity monitor. alarmer may be nil.
func NewMonitor(cfg MonitorConfig, resolver balance.Resolver, provisioner balance.Provisioner, alarmer alarm.Alarmer, logger *logging.Logger) *Monitor {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	return &Monitor{
		config:      cfg,
		resolver:    resolver,
		provisioner: provisioner,
		alarmer:     alarmer,
		logger:      logger.Component("capacity"),
		lastRequest: make(map[string]time.Time),
		now:         time.Now,
	}
}

// Check evaluates status for the node at addr and requests a rebalance when
// needed. It returns whether a request was handed to the provisioner.
func (m *Monitor) Check(ctx context.Context, addr string, status *models.NodeStatus) (bool, error) {
	if !UnderPressure(status, m.config.Threshold) {
		return false, nil
	}
	if m.coolingDown(addr) {
		m.logger.WithContext(ctx).Debug("Capacity request suppressed by cooldown", "target", addr)
		return false, nil
	}

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return false, fmt.Errorf("invalid node address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return false, fmt.Errorf("invalid node port %q: %w", addr, err)
	}

	req, err := Evaluate(ctx, status, host, port, m.config.Threshold, m.resolver)
	if err != nil {
		return false, err
	}
	if req == nil {
		return false, nil
	}

	message := fmt.Sprintf("Attempt to deploy node for %s due to memory drained", addr)
	m.logger.WithContext(ctx).Info(message,
		"used_memory", req.UsedMemory,
		"max_memory", req.MaxMemory,
		"plan", req.Plan.Key)

	if m.alarmer != nil {
		details := map[string]interface{}{
			"addr":        addr,
			"used_memory": req.UsedMemory,
			"max_memory":  req.MaxMemory,
		}
		if err := m.alarmer.RaiseAlarm(ctx, message, details); err != nil {
			m.logger.WithContext(ctx).Warn("Failed to raise capacity alarm", "error", err)
		}
	}

	if err := m.provisioner.RequestRebalance(ctx, req.Host, req.Port, req.Plan, req.OwnedSlots); err != nil {
		return false, fmt.Errorf("failed to request rebalance for %s: %w", addr, err)
	}

	m.markRequested(addr)
	return true, nil
}

// Forget drops the cooldown state of a removed address
func (m *Monitor) Forget(addr string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lastRequest, addr)
}

func (m *Monitor) coolingDown(addr string) bool {
	if m.config.Cooldown <= 0 {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	last, ok := m.lastRequest[addr]
	return ok && m.now().Sub(last) < m.config.Cooldown
}

func (m *Monitor) markRequested(addr string) {
	if m.config.Cooldown <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRequest[addr] = m.now()
}
