package config

import (
	"fmt"

	"github.com/soltixdb/rediswatch/internal/models"
)

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Logging.Level == "debug" && c.Logging.Format == "console"
}

// GetServerAddress returns the reporting API bind address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.HTTPPort)
}

// StaticTargets converts the configured addresses into registry targets.
// Validate has already rejected unknown proxy kinds.
func (c *TargetsConfig) StaticTargets() ([]models.Target, error) {
	targets := make([]models.Target, 0, len(c.Nodes)+len(c.Proxies))
	for _, addr := range c.Nodes {
		targets = append(targets, models.Target{Addr: addr, Role: models.RoleNode})
	}
	for _, p := range c.Proxies {
		kind, err := models.ParseProxyKind(p.Kind)
		if err != nil {
			return nil, err
		}
		targets = append(targets, models.Target{Addr: p.Addr, Role: models.RoleProxy, ProxyKind: kind})
	}
	return targets, nil
}
