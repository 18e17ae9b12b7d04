package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/soltixdb/rediswatch/internal/models"
	"github.com/soltixdb/rediswatch/internal/registry"
	"github.com/soltixdb/rediswatch/internal/utils"
)

const namespace = "rediswatch"

// FleetCollector exports the latest published record of every registry
// entry at scrape time. Nothing is cached between scrapes, so a removed
// target disappears from the next scrape.
type FleetCollector struct {
	registry *registry.Registry

	nodeStat    *prometheus.Desc
	proxyStat   *prometheus.Desc
	available   *prometheus.Desc
	failures    *prometheus.Desc
	lastSuccess *prometheus.Desc
}

// NewFleetCollector creates a collector over reg
func NewFleetCollector(reg *registry.Registry) *FleetCollector {
	return &FleetCollector{
		registry: reg,
		nodeStat: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "node", "stat"),
			"Latest counter reported by a Redis node",
			[]string{"addr", "field"}, nil,
		),
		proxyStat: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "proxy", "stat"),
			"Latest counter reported by a proxy",
			[]string{"addr", "kind", "field"}, nil,
		),
		available: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "target", "available"),
			"1 if the last successful collection found the target healthy",
			[]string{"addr", "role"}, nil,
		),
		failures: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "target", "consecutive_failures"),
			"Failed collections since the last success",
			[]string{"addr", "role"}, nil,
		),
		lastSuccess: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "target", "last_success_timestamp_seconds"),
			"Unix time of the last successful collection",
			[]string{"addr", "role"}, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *FleetCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.nodeStat
	ch <- c.proxyStat
	ch <- c.available
	ch <- c.failures
	ch <- c.lastSuccess
}

// Collect implements prometheus.Collector
func (c *FleetCollector) Collect(ch chan<- prometheus.Metric) {
	for _, entry := range c.registry.Entries() {
		target := entry.Target()
		role := string(target.Role)

		available := 0.0
		if entry.Available() {
			available = 1
		}
		ch <- prometheus.MustNewConstMetric(c.available, prometheus.GaugeValue, available, target.Addr, role)
		ch <- prometheus.MustNewConstMetric(c.failures, prometheus.GaugeValue,
			float64(entry.ConsecutiveFailures()), target.Addr, role)
		if ts, ok := entry.LastSuccess(); ok {
			ch <- prometheus.MustNewConstMetric(c.lastSuccess, prometheus.GaugeValue,
				float64(ts.UnixNano())/1e9, target.Addr, role)
		}

		switch target.Role {
		case models.RoleNode:
			if status := entry.Node(); status != nil {
				emitStats(ch, c.nodeStat, status.StatsSnapshot(), target.Addr)
			}
		case models.RoleProxy:
			if status := entry.Proxy(); status != nil {
				emitStats(ch, c.proxyStat, status.StatsSnapshot(), target.Addr, status.Kind.String())
			}
		}
	}
}

// emitStats sends one gauge per numeric snapshot field. The field name is
// always the last label.
func emitStats(ch chan<- prometheus.Metric, desc *prometheus.Desc, stats map[string]interface{}, labels ...string) {
	for field, raw := range stats {
		value, ok := utils.ToFloat64(raw)
		if !ok {
			continue
		}
		values := append(append(make([]string, 0, len(labels)+1), labels...), field)
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, value, values...)
	}
}
