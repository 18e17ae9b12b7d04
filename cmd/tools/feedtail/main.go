package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/soltixdb/rediswatch/internal/config"
	"github.com/soltixdb/rediswatch/internal/logging"
	"github.com/soltixdb/rediswatch/internal/subscriber"
	"github.com/soltixdb/rediswatch/internal/utils"
)

func main() {
	configPath := flag.String("config", "", "Path to the rediswatch configuration file")
	alarms := flag.Bool("alarms", true, "Follow alarms")
	requests := flag.Bool("requests", true, "Follow rebalance requests")
	group := flag.String("group", "", "Kafka consumer group (empty tails without committing)")
	raw := flag.Bool("raw", false, "Print payloads as received")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewDevelopment()

	var subjects []string
	if *alarms {
		subjects = append(subjects, utils.Subject(cfg.Queue.SubjectPrefix, utils.AlarmSubject))
	}
	if *requests {
		subjects = append(subjects, utils.Subject(cfg.Queue.SubjectPrefix, utils.BalanceRequestSubject))
	}
	if len(subjects) == 0 {
		fmt.Fprintln(os.Stderr, "Nothing to follow: enable -alarms or -requests")
		os.Exit(2)
	}

	sub, err := subscriber.NewSubscriber(cfg.Queue, *group, logger)
	if err != nil {
		logger.Fatal("Failed to create subscriber", "type", cfg.Queue.Type, "error", err)
	}
	defer func() { _ = sub.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler := func(_ context.Context, subject string, data []byte) error {
		if *raw {
			fmt.Printf("%s %s\n", subject, data)
			return nil
		}
		line, err := describe(subject, data)
		if err != nil {
			return err
		}
		fmt.Println(line)
		return nil
	}

	for _, subject := range subjects {
		if err := sub.Subscribe(ctx, subject, handler); err != nil {
			logger.Fatal("Failed to subscribe", "subject", subject, "error", err)
		}
	}

	logger.Info("Following feeds", "subjects", subjects, "queue_type", cfg.Queue.Type)
	<-ctx.Done()
}
