package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/rediswatch")
	}

	setDefaults(v)

	// REDISWATCH_POLLER_INTERVAL overrides poller.interval
	v.SetEnvPrefix("REDISWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.http_port", d.Server.HTTPPort)

	v.SetDefault("poller.interval", d.Poller.Interval)
	v.SetDefault("poller.workers", d.Poller.Workers)
	v.SetDefault("poller.connect_timeout", d.Poller.ConnectTimeout)
	v.SetDefault("poller.read_timeout", d.Poller.ReadTimeout)
	v.SetDefault("poller.retry_attempts", d.Poller.RetryAttempts)
	v.SetDefault("poller.retry_delay", d.Poller.RetryDelay)

	v.SetDefault("capacity.enabled", d.Capacity.Enabled)
	v.SetDefault("capacity.threshold", d.Capacity.Threshold)
	v.SetDefault("capacity.cooldown", d.Capacity.Cooldown)

	v.SetDefault("etcd.enabled", d.Etcd.Enabled)
	v.SetDefault("etcd.endpoints", d.Etcd.Endpoints)
	v.SetDefault("etcd.dial_timeout", d.Etcd.DialTimeout)
	v.SetDefault("etcd.plan_prefix", d.Etcd.PlanPrefix)
	v.SetDefault("etcd.target_prefix", d.Etcd.TargetPrefix)

	v.SetDefault("queue.type", d.Queue.Type)
	v.SetDefault("queue.subject_prefix", d.Queue.SubjectPrefix)
	v.SetDefault("queue.compression", d.Queue.Compression)
	v.SetDefault("queue.redis_stream", d.Queue.RedisStream)
	v.SetDefault("queue.redis_max_len", d.Queue.RedisMaxLen)

	v.SetDefault("auth.enabled", d.Auth.Enabled)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output_path", d.Logging.OutputPath)
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:     "0.0.0.0",
			HTTPPort: 9121,
		},
		Poller: PollerConfig{
			Interval:       10 * time.Second,
			Workers:        16,
			ConnectTimeout: 3 * time.Second,
			ReadTimeout:    3 * time.Second,
			RetryAttempts:  5,
			RetryDelay:     500 * time.Millisecond,
		},
		Capacity: CapacityConfig{
			Enabled:   true,
			Threshold: 0.9,
			Cooldown:  10 * time.Minute,
		},
		Etcd: EtcdConfig{
			Enabled:      false,
			Endpoints:    []string{"http://localhost:2379"},
			DialTimeout:  5 * time.Second,
			PlanPrefix:   "/rediswatch/plans",
			TargetPrefix: "/rediswatch/targets",
		},
		Queue: QueueConfig{
			Type:          "memory",
			SubjectPrefix: "rediswatch",
			Compression:   "none",
			RedisStream:   "rediswatch",
			RedisMaxLen:   10000,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
		},
	}
}
