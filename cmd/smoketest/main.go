// Command smoketest exercises the trading pipeline offline and against the
// live exchange. Exit status is 0 when no case failed.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pooofdevelopment/clob-trader/pkg/config"
	"github.com/pooofdevelopment/clob-trader/pkg/logger"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("smoketest", flag.ContinueOnError)
	var (
		tests      = fs.String("test", "", "comma separated case ids to run")
		unit       = fs.Bool("unit", false, "run offline cases")
		e2e        = fs.Bool("e2e", false, "run cases against the exchange")
		dryRun     = fs.Bool("dry-run", false, "sign orders but never submit or send transactions")
		configPath = fs.String("config", "config.yaml", "path to the YAML config")
		list       = fs.Bool("list", false, "list cases and exit")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	all := allCases()
	if *list {
		List(os.Stdout, all)
		return 0
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 1
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	var ids []string
	if *tests != "" {
		ids = strings.Split(*tests, ",")
	}
	cases, err := Select(all, ids, *unit, *e2e)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	runID := uuid.NewString()
	log = log.With(zap.String("run_id", runID))
	log.Info("starting",
		zap.Int("cases", len(cases)),
		zap.Bool("dry_run", *dryRun),
		zap.Int64("chain_id", cfg.ChainID))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := NewEnv(cfg, log, runID, *dryRun)
	results := Run(ctx, env, cases)
	Render(os.Stdout, runID, results)
	return ExitCode(results)
}
