// Package balance connects the capacity check to the external rebalancing
// system: a Resolver looks up the plan for a node and a Provisioner hands a
// rebalance request to whoever deploys new nodes.
package balance

import (
	"context"

	"github.com/soltixdb/rediswatch/internal/models"
)

// Resolver returns the balance plan registered for a node.
// A nil plan with a nil error means no plan exists, which is a normal outcome.
type Resolver interface {
	ResolvePlan(ctx context.Context, host string, port int) (*models.Plan, error)
}

// Provisioner requests a rebalance for a node under capacity pressure.
// Implementations must tolerate repeated requests for the same node.
type Provisioner interface {
	RequestRebalance(ctx context.Context, host string, port int, plan *models.Plan, ownedSlots []models.SlotRange) error
}

// ResolverFunc adapts a function to Resolver
type ResolverFunc func(ctx context.Context, host string, port int) (*models.Plan, error)

// ResolvePlan calls f
func (f ResolverFunc) ResolvePlan(ctx context.Context, host string, port int) (*models.Plan, error) {
	return f(ctx, host, port)
}

// NoPlanResolver never returns a plan. It is used when no plan store is configured.
type NoPlanResolver struct{}

// ResolvePlan always reports no plan
func (NoPlanResolver) ResolvePlan(context.Context, string, int) (*models.Plan, error) {
	return nil, nil
}
