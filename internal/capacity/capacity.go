// Package capacity decides whether a node is under memory pressure and, if a
// balance plan exists for it, asks for a rebalance.
package capacity

import (
	"context"
	"fmt"

	"github.com/soltixdb/rediswatch/internal/balance"
	"github.com/soltixdb/rediswatch/internal/models"
)

// DefaultThreshold is the used/max memory ratio at which a node triggers
const DefaultThreshold = 0.9

// UnderPressure reports whether status qualifies for a rebalance.
// A node mid-migration, without slots, without a memory limit or whose last
// collection failed never qualifies.
func UnderPressure(status *models.NodeStatus, threshold float64) bool {
	if status == nil || !status.Available || !status.ClusterEnabled {
		return false
	}
	if len(status.OwnedSlots) == 0 || len(status.MigratingSlots) > 0 {
		return false
	}
	if status.MaxMemory <= 0 {
		return false
	}
	return float64(status.UsedMemory) >= threshold*float64(status.MaxMemory)
}

// Evaluate returns a rebalance request for host:port when the node is under
// pressure and the resolver has a plan for it. It performs no I/O beyond the
// resolver call. A nil request with a nil error means nothing to do.
func Evaluate(ctx context.Context, status *models.NodeStatus, host string, port int, threshold float64, resolver balance.Resolver) (*models.BalanceRequest, error) {
	if !UnderPressure(status, threshold) {
		return nil, nil
	}

	plan, err := resolver.ResolvePlan(ctx, host, port)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve balance plan for %s:%d: %w", host, port, err)
	}
	if plan == nil {
		return nil, nil
	}

	return &models.BalanceRequest{
		Host:       host,
		Port:       port,
		OwnedSlots: status.OwnedSlots,
		Plan:       plan,
		UsedMemory: status.UsedMemory,
		MaxMemory:  status.MaxMemory,
	}, nil
}
