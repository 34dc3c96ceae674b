package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/hetulpatel/crossarb/internal/logging"
)

const usage = `arbscan compares Polymarket and Kalshi markets.

Usage:
  arbscan list --source polymarket|kalshi [--limit N] [--category CAT] [--group-by-category]
  arbscan compare [--brackets] [--limit N] [--category CAT] [--min-score S] [--event-min-score S] [--no-embeddings] [--refresh-cache]
  arbscan arb [--limit N] [--min-score S] [--event-min-score S] [--min-profit CENTS] [--max-days N] [--no-embeddings] [--refresh-cache]
  arbscan cache [stats|clear|list]

Every command accepts --config PATH (default $ARB_CONFIG).
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "list":
		err = runList(ctx, args)
	case "compare":
		err = runCompare(ctx, args)
	case "arb":
		err = runArb(ctx, args)
	case "cache":
		err = runCache(ctx, args)
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		logging.Errorf("arbscan %s: %v", os.Args[1], err)
		os.Exit(1)
	}
}
