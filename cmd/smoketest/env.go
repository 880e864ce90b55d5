package main

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/pooofdevelopment/clob-trader/pkg/chain"
	"github.com/pooofdevelopment/clob-trader/pkg/client"
	"github.com/pooofdevelopment/clob-trader/pkg/config"
	"github.com/pooofdevelopment/clob-trader/pkg/gamma"
	"github.com/pooofdevelopment/clob-trader/pkg/keepers"
	"github.com/pooofdevelopment/clob-trader/pkg/types"
)

// Env carries configuration, lazily built clients and the state E2E cases
// hand to each other.
type Env struct {
	cfg     *config.Config
	logger  *zap.Logger
	dryRun  bool
	runID   string
	keepers *keepers.Store
	sleep   func(time.Duration)

	clientOnce sync.Once
	clob       *client.ClobClient
	clobErr    error

	chainOnce sync.Once
	chain     *chain.Client
	chainErr  error

	gamma *gamma.Client

	// set by earlier cases
	tokenID       string
	conditionID   string
	question      string
	negRisk       bool
	constraints   *types.MarketConstraints
	placedOrderID string
}

func NewEnv(cfg *config.Config, logger *zap.Logger, runID string, dryRun bool) *Env {
	return &Env{
		cfg:     cfg,
		logger:  logger,
		dryRun:  dryRun,
		runID:   runID,
		keepers: keepers.NewStore(cfg.Harness.KeepersFile),
		sleep:   time.Sleep,
		gamma:   gamma.NewClient(cfg.GammaHost, gamma.WithLogger(logger.Named("gamma"))),
	}
}

// Client returns the authenticated CLOB client. E2E cases need a key.
func (e *Env) Client() (*client.ClobClient, error) {
	e.clientOnce.Do(func() {
		if e.cfg.Wallet.PrivateKey == "" {
			e.clobErr = skipf("POLY_PRIVATE_KEY not set")
			return
		}
		e.clob, e.clobErr = client.NewFromConfig(e.cfg, e.logger.Named("clob"))
	})
	return e.clob, e.clobErr
}

// Chain returns the on-chain helper, or a skip when no RPC is configured
func (e *Env) Chain(ctx context.Context) (*chain.Client, error) {
	e.chainOnce.Do(func() {
		if e.cfg.RPCURL == "" {
			e.chainErr = skipf("RPC_URL not set")
			return
		}
		if e.cfg.Wallet.PrivateKey == "" {
			e.chainErr = skipf("POLY_PRIVATE_KEY not set")
			return
		}
		key, err := crypto.HexToECDSA(strings.TrimPrefix(e.cfg.Wallet.PrivateKey, "0x"))
		if err != nil {
			e.chainErr = err
			return
		}
		e.chain, e.chainErr = chain.Dial(ctx, e.cfg.RPCURL, e.cfg.ChainID, key, e.logger.Named("chain"))
	})
	return e.chain, e.chainErr
}

// settle waits for the exchange to index a state change
func (e *Env) settle(reason string) {
	d := e.cfg.Harness.SettleDelay
	if d <= 0 {
		return
	}
	e.logger.Debug("settling", zap.String("reason", reason), zap.Duration("delay", d))
	e.sleep(d)
}

// requireToken fails cases that depend on the market case
func (e *Env) requireToken() error {
	if e.tokenID == "" {
		return skipf("no market selected")
	}
	return nil
}

func isSkip(err error) bool {
	return errors.Is(err, errSkip)
}
