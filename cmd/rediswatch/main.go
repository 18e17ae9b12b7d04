package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/soltixdb/rediswatch/internal/alarm"
	"github.com/soltixdb/rediswatch/internal/balance"
	"github.com/soltixdb/rediswatch/internal/capacity"
	"github.com/soltixdb/rediswatch/internal/collector"
	"github.com/soltixdb/rediswatch/internal/config"
	"github.com/soltixdb/rediswatch/internal/conn"
	"github.com/soltixdb/rediswatch/internal/logging"
	"github.com/soltixdb/rediswatch/internal/metrics"
	"github.com/soltixdb/rediswatch/internal/poller"
	"github.com/soltixdb/rediswatch/internal/queue"
	"github.com/soltixdb/rediswatch/internal/registry"
	"github.com/soltixdb/rediswatch/internal/router"
	"github.com/soltixdb/rediswatch/internal/utils"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// 1. Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logger
	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)

	logger.Info("rediswatch starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Outbound transport for alarms and rebalance requests
	publisher, err := queue.NewPublisher(cfg.Queue)
	if err != nil {
		logger.Fatal("Failed to create queue publisher", "type", cfg.Queue.Type, "error", err)
	}
	defer func() { _ = publisher.Close() }()
	alarmer := alarm.NewQueueAlarmer(publisher, cfg.Queue.SubjectPrefix, logger)

	// 4. Target discovery and rebalance plans
	static, err := cfg.Targets.StaticTargets()
	if err != nil {
		logger.Fatal("Invalid static targets", "error", err)
	}
	sources := registry.MergedSource{registry.StaticSource(static)}
	var resolver balance.Resolver = balance.NoPlanResolver{}

	if cfg.Etcd.Enabled {
		etcdClient, err := clientv3.New(clientv3.Config{
			Endpoints:   cfg.Etcd.Endpoints,
			DialTimeout: cfg.Etcd.DialTimeout,
			Username:    cfg.Etcd.Username,
			Password:    cfg.Etcd.Password,
		})
		if err != nil {
			logger.Fatal("Failed to connect to etcd", "error", err)
		}
		defer func() { _ = etcdClient.Close() }()
		logger.Info("Connected to etcd", "endpoints", cfg.Etcd.Endpoints)

		sources = append(sources, registry.NewEtcdSource(etcdClient, cfg.Etcd.TargetPrefix, logger))
		resolver = balance.NewEtcdResolver(etcdClient, cfg.Etcd.PlanPrefix)
	}

	// 5. Capacity monitoring
	var monitor *capacity.Monitor
	var checker collector.CapacityChecker
	if cfg.Capacity.Enabled {
		provisioner := balance.NewQueueProvisioner(publisher, cfg.Queue.SubjectPrefix, logger)
		monitor = capacity.NewMonitor(capacity.MonitorConfig{
			Threshold: cfg.Capacity.Threshold,
			Cooldown:  cfg.Capacity.Cooldown,
		}, resolver, provisioner, alarmer, logger)
		checker = monitor
		logger.Info("Capacity monitoring enabled",
			"threshold", cfg.Capacity.Threshold,
			"cooldown", cfg.Capacity.Cooldown.String(),
			"subject", provisioner.Subject())
	}

	// 6. Collectors and poller
	dialer := conn.NewRedisDialer(conn.DialerConfig{
		ConnectTimeout: cfg.Poller.ConnectTimeout,
		ReadTimeout:    cfg.Poller.ReadTimeout,
		Password:       cfg.Poller.Password,
	})
	policy := conn.Policy{Attempts: cfg.Poller.RetryAttempts, Delay: cfg.Poller.RetryDelay}

	nodes := collector.NewNodeCollector(dialer, policy, checker, logger)
	proxies := collector.NewProxyCollector(dialer, policy, alarmer, logger, collector.DefaultAdapters()...)

	reg := registry.New()
	watcher := poller.New(poller.Config{
		Interval: cfg.Poller.Interval,
		Workers:  cfg.Poller.Workers,
	}, reg, sources, nodes, proxies, logger)
	if monitor != nil {
		watcher.OnRemove(monitor.Forget)
	}

	fleetMetrics := metrics.New(reg)
	watcher.OnCycle(fleetMetrics.ObserveCycle)

	if err := watcher.Start(ctx); err != nil {
		logger.Fatal("Failed to start poller", "error", err)
	}

	// 7. Reporting API
	var app *fiber.App
	if cfg.Server.HTTPPort != 0 {
		app = router.New(logger, reg, fleetMetrics.Handler(), *cfg)
		go func() {
			addr := cfg.GetServerAddress()
			logger.Info("Server listening", "address", addr)
			if err := app.Listen(addr); err != nil {
				logger.Fatal("Failed to start server", "error", err)
			}
		}()
	}

	logger.Info("rediswatch started",
		"static_targets", len(static),
		"etcd", cfg.Etcd.Enabled,
		"queue_type", cfg.Queue.Type,
		"interval", cfg.Poller.Interval.String(),
		"workers", cfg.Poller.Workers)

	// 8. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	sig := <-quit
	logger.Info("Received shutdown signal", "signal", sig.String())

	// the in-flight cycle is abandoned
	cancel()
	watcher.Stop()

	if app != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), utils.ShutdownTimeout)
		defer shutdownCancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error("Server forced to shutdown", "error", err)
		}
	}

	logger.Info("rediswatch stopped")
}
