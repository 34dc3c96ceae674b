package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/hetulpatel/crossarb/internal/app"
	"github.com/hetulpatel/crossarb/internal/config"
	"github.com/hetulpatel/crossarb/internal/kafka"
	"github.com/hetulpatel/crossarb/internal/logging"
	"github.com/hetulpatel/crossarb/internal/queue"
	"github.com/hetulpatel/crossarb/internal/service"
)

const topN = 5

func main() {
	configPath := flag.String("config", "", "path to TOML config (default $ARB_CONFIG)")
	once := flag.Bool("once", false, "run a single scan and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Fatalf("[arb-engine] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logging.Fatalf("[arb-engine] %v", err)
	}
	logging.SetLevel(logging.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		logging.Fatalf("[arb-engine] %v", err)
	}
	defer a.Close()

	var publisher queue.Writer
	if cfg.Kafka.Enabled {
		if w := setupWriter(ctx, cfg.Kafka); w != nil {
			defer w.Close()
			publisher = w
		}
	}

	req := cfg.Request()
	scan(ctx, a.Runner, publisher, req)
	if *once {
		return
	}

	interval := cfg.Arb.ScanInterval.Duration
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	logging.Infof("[arb-engine] scanning every %s", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			scan(ctx, a.Runner, publisher, req)
		}
	}
}

func scan(ctx context.Context, runner *service.Runner, publisher queue.Writer, req service.Request) {
	runID := uuid.NewString()
	started := time.Now()
	ops, err := runner.Arb(ctx, req, func(msg string) {
		logging.Debugf("[arb-engine] run=%s %s", runID, msg)
	})
	switch {
	case errors.Is(err, service.ErrNoMatches), errors.Is(err, service.ErrNoOpportunities):
		logging.Infof("[arb-engine] run=%s %v (%s)", runID, err, time.Since(started).Round(time.Millisecond))
		return
	case err != nil:
		if ctx.Err() == nil {
			logging.Errorf("[arb-engine] run=%s scan failed: %v", runID, err)
		}
		return
	}

	logging.Infof("[arb-engine] run=%s found %d opportunities in %s", runID, len(ops), time.Since(started).Round(time.Millisecond))
	for i, op := range ops {
		if i == topN {
			break
		}
		logging.Infof("[arb-opportunity] pair=%s leg=%s spread=%.4f profit=%.4f pm=%q ks=%q",
			op.PairID(), op.BestLeg, op.Spread, op.Profit, op.Polymarket.Question, op.Kalshi.Question)
	}

	if publisher == nil {
		return
	}
	if err := queue.PublishOpportunities(ctx, publisher, runID, ops); err != nil {
		logging.Errorf("[arb-engine] run=%s publish error: %v", runID, err)
	}
}

// setupWriter returns nil when the broker never answers; scans still run.
func setupWriter(ctx context.Context, cfg config.KafkaConfig) *kafkago.Writer {
	waitCtx, cancel := context.WithTimeout(ctx, 45*time.Second)
	defer cancel()
	if err := kafka.WaitForBroker(waitCtx, cfg.Brokers); err != nil {
		logging.Errorf("[arb-engine] kafka unavailable, publishing disabled: %v", err)
		return nil
	}
	ensureCtx, cancelEnsure := context.WithTimeout(ctx, 30*time.Second)
	if err := kafka.EnsureTopic(ensureCtx, cfg.Brokers, cfg.Topic); err != nil {
		logging.Errorf("[arb-engine] ensure topic warning: %v", err)
	}
	cancelEnsure()
	logging.Infof("[arb-engine] publishing to %s", cfg.Topic)
	return kafka.NewWriter(cfg.Brokers, cfg.Topic)
}
