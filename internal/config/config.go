package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/soltixdb/rediswatch/internal/models"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Poller   PollerConfig   `mapstructure:"poller"`
	Targets  TargetsConfig  `mapstructure:"targets"`
	Capacity CapacityConfig `mapstructure:"capacity"`
	Etcd     EtcdConfig     `mapstructure:"etcd"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig configures the reporting API
type ServerConfig struct {
	Host     string `mapstructure:"host"`      // Bind address
	HTTPPort int    `mapstructure:"http_port"` // 0 disables the API
}

// AuthConfig guards the /api/v1 routes of the reporting API
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	APIKeys []string `mapstructure:"api_keys"`
}

// PollerConfig controls how targets are polled
type PollerConfig struct {
	Interval       time.Duration `mapstructure:"interval"`        // Time between poll cycles
	Workers        int           `mapstructure:"workers"`         // Max concurrent collections
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"` // Per-attempt connect bound
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`    // Per-command read/write bound
	RetryAttempts  int           `mapstructure:"retry_attempts"`  // Total attempts per collection
	RetryDelay     time.Duration `mapstructure:"retry_delay"`     // Fixed delay between attempts
	Password       string        `mapstructure:"password"`        // Optional AUTH password
}

// TargetsConfig lists statically configured addresses
type TargetsConfig struct {
	Nodes   []string      `mapstructure:"nodes"`
	Proxies []ProxyTarget `mapstructure:"proxies"`
}

// ProxyTarget is one proxy address and its implementation
type ProxyTarget struct {
	Addr string `mapstructure:"addr"`
	Kind string `mapstructure:"kind"` // corvus, cerberus
}

// CapacityConfig controls the rebalance trigger
type CapacityConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Threshold float64       `mapstructure:"threshold"` // used/max ratio that triggers
	Cooldown  time.Duration `mapstructure:"cooldown"`  // 0 leaves deduplication to the resolver
}

// EtcdConfig represents etcd configuration
type EtcdConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Endpoints    []string      `mapstructure:"endpoints"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	Username     string        `mapstructure:"username"`
	Password     string        `mapstructure:"password"`
	PlanPrefix   string        `mapstructure:"plan_prefix"`
	TargetPrefix string        `mapstructure:"target_prefix"`
}

// QueueConfig represents the transport for alarms and rebalance requests
type QueueConfig struct {
	Type          string   `mapstructure:"type"` // nats, redis, kafka, memory (default)
	URL           string   `mapstructure:"url"`
	Username      string   `mapstructure:"username"`
	Password      string   `mapstructure:"password"`
	SubjectPrefix string   `mapstructure:"subject_prefix"`
	Compression   string   `mapstructure:"compression"` // none (default), snappy
	RedisDB       int      `mapstructure:"redis_db"`
	RedisStream   string   `mapstructure:"redis_stream"`
	RedisMaxLen   int64    `mapstructure:"redis_max_len"`
	KafkaBrokers  []string `mapstructure:"kafka_brokers"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, file path
	TimeFormat string `mapstructure:"time_format"` // RFC3339, Unix, UnixMs
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Poller.Validate(); err != nil {
		return fmt.Errorf("poller config: %w", err)
	}
	if err := c.Targets.Validate(); err != nil {
		return fmt.Errorf("targets config: %w", err)
	}
	if err := c.Capacity.Validate(); err != nil {
		return fmt.Errorf("capacity config: %w", err)
	}
	if err := c.Etcd.Validate(); err != nil {
		return fmt.Errorf("etcd config: %w", err)
	}
	if err := c.Queue.Validate(); err != nil {
		return fmt.Errorf("queue config: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

// Validate validates server configuration
func (c *ServerConfig) Validate() error {
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}
	return nil
}

// Validate validates poller configuration
func (c *PollerConfig) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("poller.interval must be positive")
	}
	if c.Workers < 1 {
		return fmt.Errorf("poller.workers must be at least 1")
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("poller.connect_timeout must be positive")
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("poller.read_timeout must be positive")
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("poller.retry_attempts must be at least 1")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("poller.retry_delay cannot be negative")
	}
	return nil
}

// Validate checks every address and proxy kind. An unknown proxy kind is a
// configuration fault reported here, before any polling starts.
func (c *TargetsConfig) Validate() error {
	seen := make(map[string]bool)
	for _, addr := range c.Nodes {
		if err := validateAddr(addr); err != nil {
			return fmt.Errorf("targets.nodes: %w", err)
		}
		if seen[addr] {
			return fmt.Errorf("targets.nodes: duplicate address %s", addr)
		}
		seen[addr] = true
	}
	for _, p := range c.Proxies {
		if err := validateAddr(p.Addr); err != nil {
			return fmt.Errorf("targets.proxies: %w", err)
		}
		if seen[p.Addr] {
			return fmt.Errorf("targets.proxies: duplicate address %s", p.Addr)
		}
		seen[p.Addr] = true
		if _, err := models.ParseProxyKind(p.Kind); err != nil {
			return fmt.Errorf("targets.proxies[%s]: %w", p.Addr, err)
		}
	}
	return nil
}

func validateAddr(addr string) error {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port in address %q", addr)
	}
	return nil
}

// Validate validates capacity configuration
func (c *CapacityConfig) Validate() error {
	if c.Threshold <= 0 || c.Threshold > 1 {
		return fmt.Errorf("capacity.threshold must be in (0, 1]")
	}
	if c.Cooldown < 0 {
		return fmt.Errorf("capacity.cooldown cannot be negative")
	}
	return nil
}

// Validate validates etcd configuration
func (c *EtcdConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if len(c.Endpoints) == 0 {
		return fmt.Errorf("etcd.endpoints is required")
	}
	if c.DialTimeout <= 0 {
		return fmt.Errorf("etcd.dial_timeout must be positive")
	}
	if c.PlanPrefix == "" || c.TargetPrefix == "" {
		return fmt.Errorf("etcd.plan_prefix and etcd.target_prefix are required")
	}
	return nil
}

// Validate validates queue configuration
func (c *QueueConfig) Validate() error {
	switch c.Type {
	case "", "memory":
	case "nats", "redis":
		if c.URL == "" {
			return fmt.Errorf("queue.url is required for %s", c.Type)
		}
	case "kafka":
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("queue.kafka_brokers is required for kafka")
		}
	default:
		return fmt.Errorf("unsupported queue.type: %s (supported: nats, redis, kafka, memory)", c.Type)
	}
	if c.SubjectPrefix == "" {
		return fmt.Errorf("queue.subject_prefix is required")
	}
	switch c.Compression {
	case "", "none", "snappy":
	default:
		return fmt.Errorf("unsupported queue.compression: %s (supported: none, snappy)", c.Compression)
	}
	return nil
}

// Validate validates auth configuration
func (c *AuthConfig) Validate() error {
	if c.Enabled && len(c.APIKeys) == 0 {
		return fmt.Errorf("auth.api_keys is required when auth is enabled")
	}
	return nil
}

// Validate validates logging configuration
func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}
	if !validFormats[c.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}
	return nil
}
