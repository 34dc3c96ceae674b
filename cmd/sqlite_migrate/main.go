package main

import (
	"context"
	"flag"

	"github.com/hetulpatel/crossarb/internal/config"
	"github.com/hetulpatel/crossarb/internal/logging"
	"github.com/hetulpatel/crossarb/internal/storage/sqlite"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config (default $ARB_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Fatalf("load config: %v", err)
	}
	// Open adds a missing score_unit column; this pass also relabels
	// mislabeled rows in tables that already had one.
	store, err := sqlite.Open(cfg.SQLite.Path)
	if err != nil {
		logging.Fatalf("open sqlite: %v", err)
	}
	defer store.Close()

	n, err := store.MigrateScoreUnits(context.Background())
	if err != nil {
		logging.Fatalf("migrate: %v", err)
	}
	logging.Infof("match cache at %s carries score units (%d rows relabeled)", store.Path(), n)
}
