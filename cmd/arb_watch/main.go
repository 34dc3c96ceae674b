package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hetulpatel/crossarb/internal/config"
	"github.com/hetulpatel/crossarb/internal/kafka"
	"github.com/hetulpatel/crossarb/internal/logging"
	"github.com/hetulpatel/crossarb/internal/workers"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config (default $ARB_CONFIG)")
	workerCount := flag.Int("workers", 1, "consumers in the group")
	minChange := flag.Float64("min-change", 0.005, "reprint a pair only when profit moves at least this much")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Fatalf("[arb-watch] load config: %v", err)
	}
	logging.SetLevel(logging.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	brokers, topic, group := cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Group

	waitCtx, cancel := context.WithTimeout(ctx, 45*time.Second)
	if err := kafka.WaitForBroker(waitCtx, brokers); err != nil {
		logging.Fatalf("[arb-watch] wait for broker: %v", err)
	}
	cancel()

	ensureCtx, cancelEnsure := context.WithTimeout(ctx, 30*time.Second)
	if err := kafka.EnsureTopic(ensureCtx, brokers, topic); err != nil {
		logging.Errorf("[arb-watch] ensure topic warning: %v", err)
	}
	cancelEnsure()

	tracker := workers.NewTracker(os.Stdout, *minChange)
	logging.Infof("[arb-watch] consuming %s with group %s (%d workers)", topic, group, *workerCount)
	workers.Run(ctx, brokers, topic, group, *workerCount, tracker.Handle)
	logging.Infof("[arb-watch] stopped after %d pairs", tracker.Len())
}
