package handlers

import (
	"github.com/soltixdb/rediswatch/internal/logging"
	"github.com/soltixdb/rediswatch/internal/models"
	"github.com/soltixdb/rediswatch/internal/registry"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// Handler serves read-only views of the registry
type Handler struct {
	logger   *logging.Logger
	registry *registry.Registry
}

// New creates a new handler instance
func New(logger *logging.Logger, reg *registry.Registry) *Handler {
	return &Handler{
		logger:   logger,
		registry: reg,
	}
}

// stateOf copies what the registry knows about entry into a response.
// The record pointers are immutable once published, so they are shared.
func stateOf(entry *registry.Entry) models.TargetState {
	target := entry.Target()
	state := models.TargetState{
		Addr:                target.Addr,
		Role:                target.Role,
		Available:           entry.Available(),
		ConsecutiveFailures: entry.ConsecutiveFailures(),
	}
	if ts, ok := entry.LastSuccess(); ok {
		state.LastSuccess = &ts
	}

	switch target.Role {
	case models.RoleNode:
		if status := entry.Node(); status != nil {
			state.Node = status
			state.Stats = status.StatsSnapshot()
		}
	case models.RoleProxy:
		if status := entry.Proxy(); status != nil {
			state.Proxy = status
			state.Stats = status.StatsSnapshot()
		}
	}
	return state
}
