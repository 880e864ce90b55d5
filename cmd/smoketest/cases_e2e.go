package main

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/pooofdevelopment/clob-trader/pkg/gamma"
	"github.com/pooofdevelopment/clob-trader/pkg/orderbook"
	"github.com/pooofdevelopment/clob-trader/pkg/types"
	"github.com/pooofdevelopment/clob-trader/pkg/utilities"
	"github.com/pooofdevelopment/clob-trader/pkg/validation"
	"github.com/pooofdevelopment/clob-trader/pkg/websocket"
)

func e2eCases() []Case {
	return []Case{
		{ID: "server", Name: "health and clock", Kind: KindE2E, Run: e2eServer},
		{ID: "auth", Name: "derive L2 credentials", Kind: KindE2E, Run: e2eAuth},
		{ID: "market", Name: "select market, read book, estimate", Kind: KindE2E, Run: e2eMarket},
		{ID: "balance", Name: "collateral balance and allowance", Kind: KindE2E, Run: e2eBalance},
		{ID: "approve", Name: "on-chain trading approvals", Kind: KindE2E, Run: e2eApprove},
		{ID: "place-cancel", Name: "resting BUY placed then cancelled", Kind: KindE2E, Run: e2ePlaceCancel},
		{ID: "orders", Name: "list open orders", Kind: KindE2E, Run: e2eOrders},
		{ID: "ws-book", Name: "websocket book snapshot", Kind: KindE2E, Run: e2eWebsocketBook},
		{ID: "cleanup", Name: "cancel leftovers, redeem non-keepers", Kind: KindE2E, Run: e2eCleanup},
	}
}

func allCases() []Case {
	return append(unitCases(), e2eCases()...)
}

func e2eServer(ctx context.Context, env *Env) (string, error) {
	c, err := env.Client()
	if err != nil {
		return "", err
	}
	ok, err := c.GetOk(ctx)
	if err != nil {
		return "", err
	}
	serverTime, err := c.GetServerTime(ctx)
	if err != nil {
		return "", err
	}
	skew := time.Since(serverTime).Round(time.Second)
	if skew > 30*time.Second || skew < -30*time.Second {
		return "", fmt.Errorf("clock skew %s exceeds 30s, L1 signatures will be rejected", skew)
	}
	return fmt.Sprintf("%s, skew %s", ok, skew), nil
}

func e2eAuth(ctx context.Context, env *Env) (string, error) {
	c, err := env.Client()
	if err != nil {
		return "", err
	}
	creds, err := c.Session().Credentials(ctx)
	if err != nil {
		return "", err
	}
	if c.Mode() != types.L2 {
		return "", fmt.Errorf("mode %d after derivation", c.Mode())
	}
	keys, err := c.GetApiKeys(ctx)
	if err != nil {
		return "", err
	}
	found := false
	for _, k := range keys {
		found = found || k == creds.ApiKey
	}
	if !found {
		return "", fmt.Errorf("derived key not listed among %d keys", len(keys))
	}
	return fmt.Sprintf("key %s, %d keys", shortID(creds.ApiKey), len(keys)), nil
}

// pickMarket resolves the token the trading cases use: configured token,
// configured event slug, or the most liquid tradable market.
func pickMarket(ctx context.Context, env *Env) (*types.GammaMarket, string, error) {
	if tok := env.cfg.Harness.TokenID; tok != "" {
		m, err := env.gamma.GetMarketByToken(ctx, tok)
		if err != nil {
			return nil, "", err
		}
		return m, tok, nil
	}

	var candidates []types.GammaMarket
	if slug := env.cfg.Harness.MarketSlug; slug != "" {
		ev, err := env.gamma.GetEvent(ctx, slug)
		if err != nil {
			return nil, "", err
		}
		candidates = ev.Markets
	} else {
		active, closed, asc := true, false, false
		markets, err := env.gamma.ListMarkets(ctx, &types.GammaMarketsParams{
			Limit: 25, Active: &active, Closed: &closed, Order: "liquidityNum", Ascending: &asc,
		})
		if err != nil {
			return nil, "", err
		}
		candidates = markets
	}

	for i := range candidates {
		if gamma.Tradable(candidates[i]) {
			return &candidates[i], candidates[i].ClobTokenIDs[0], nil
		}
	}
	return nil, "", fmt.Errorf("no tradable market among %d candidates", len(candidates))
}

func e2eMarket(ctx context.Context, env *Env) (string, error) {
	c, err := env.Client()
	if err != nil {
		return "", err
	}
	m, token, err := pickMarket(ctx, env)
	if err != nil {
		return "", err
	}

	negRisk, err := c.GetNegRisk(ctx, token)
	if err != nil {
		return "", err
	}
	if negRisk != m.NegRisk {
		env.logger.Warn("gamma and clob disagree on neg risk",
			zap.String("token_id", token), zap.Bool("gamma", m.NegRisk), zap.Bool("clob", negRisk))
	}

	constraints, err := c.GetMarketConstraints(ctx, token)
	if err != nil {
		return "", err
	}
	book, err := c.GetOrderBook(ctx, token)
	if err != nil {
		return "", err
	}
	est, err := c.EstimateMarketOrder(ctx, token, types.BUY, env.cfg.Harness.TestSize)
	if err != nil {
		return "", err
	}

	env.tokenID = token
	env.conditionID = m.ConditionID
	env.question = m.Question
	env.negRisk = negRisk
	env.constraints = constraints

	mid, _ := orderbook.Midpoint(book)
	return fmt.Sprintf("%q tick %v min %v mid %.4g, buy %v ≈ %.2fc", truncate(m.Question, 40),
		constraints.TickSize, constraints.MinOrderSize, mid, env.cfg.Harness.TestSize, est.AvgPrice), nil
}

func e2eBalance(ctx context.Context, env *Env) (string, error) {
	c, err := env.Client()
	if err != nil {
		return "", err
	}
	ba, err := c.GetBalanceAllowance(ctx, &types.BalanceAllowanceParams{AssetType: types.AssetTypeCollateral, SignatureType: -1})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("balance %s USDC, %d allowances", utilities.FromTokenDecimals(ba.Balance).StringFixed(2), len(ba.Allowances)), nil
}

func e2eApprove(ctx context.Context, env *Env) (string, error) {
	if env.cfg.Harness.SkipApproval {
		return "", skipf("approvals disabled in config")
	}
	if env.dryRun {
		return "", skipf("dry run")
	}
	chainClient, err := env.Chain(ctx)
	if err != nil {
		return "", err
	}
	txs, err := chainClient.EnsureTradingApprovals(ctx, env.negRisk)
	if err != nil {
		return "", err
	}
	for _, tx := range txs {
		if _, err := chainClient.WaitMined(ctx, tx); err != nil {
			return "", err
		}
	}
	if len(txs) > 0 {
		c, err := env.Client()
		if err != nil {
			return "", err
		}
		if err := c.UpdateBalanceAllowance(ctx, &types.BalanceAllowanceParams{AssetType: types.AssetTypeCollateral, SignatureType: -1}); err != nil {
			return "", err
		}
		env.settle("allowance update")
	}
	return fmt.Sprintf("%d approvals sent", len(txs)), nil
}

// restingParams is a BUY far below the market at the minimum size
func restingParams(env *Env) types.OrderParams {
	constraints := env.constraints.WithDefaults()
	price := validation.SnapToTick(env.cfg.Harness.TestPrice, constraints.TickSize)
	tickCents := validation.TickSizeToCents(constraints.TickSize)
	if price < tickCents {
		price = tickCents
	}
	size := env.cfg.Harness.TestSize
	if size < constraints.MinOrderSize {
		size = constraints.MinOrderSize
	}
	return types.OrderParams{TokenID: env.tokenID, Side: types.BUY, Price: price, Size: size}
}

func e2ePlaceCancel(ctx context.Context, env *Env) (string, error) {
	if err := env.requireToken(); err != nil {
		return "", err
	}
	c, err := env.Client()
	if err != nil {
		return "", err
	}

	params := restingParams(env)
	negRisk := env.negRisk
	order, err := c.CreateOrder(ctx, params, &types.CreateOrderOptions{Constraints: env.constraints, NegRisk: &negRisk})
	if err != nil {
		return "", err
	}
	if env.dryRun {
		env.logger.Info("dry run, order signed but not posted",
			zap.String("token_id", order.TokenID),
			zap.String("maker_amount", order.MakerAmount),
			zap.String("taker_amount", order.TakerAmount),
			zap.Bool("neg_risk", order.NegRisk))
		return fmt.Sprintf("signed %s %v@%vc, not posted", order.SideLabel(), params.Size, params.Price), nil
	}

	resp, err := c.PostOrder(ctx, order, types.OrderTypeGTC)
	if err != nil {
		return "", err
	}
	if resp.OrderID == "" {
		return "", fmt.Errorf("exchange accepted the order without an id")
	}
	env.placedOrderID = resp.OrderID
	env.settle("order indexing")

	open, err := c.GetOrders(ctx, &types.OpenOrderParams{AssetID: env.tokenID})
	if err != nil {
		return "", err
	}
	if !containsOrder(open, resp.OrderID) {
		return "", fmt.Errorf("order %s not listed after settle", resp.OrderID)
	}

	cancel, err := c.Cancel(ctx, resp.OrderID)
	if err != nil {
		return "", err
	}
	if reason, ok := cancel.NotCanceled[resp.OrderID]; ok {
		return "", fmt.Errorf("cancel refused: %s", reason)
	}
	env.settle("cancel indexing")

	open, err = c.GetOrders(ctx, &types.OpenOrderParams{AssetID: env.tokenID})
	if err != nil {
		return "", err
	}
	if containsOrder(open, resp.OrderID) {
		return "", fmt.Errorf("order %s still open after cancel", resp.OrderID)
	}
	env.placedOrderID = ""
	return fmt.Sprintf("%s %v@%vc placed and cancelled", shortID(resp.OrderID), params.Size, params.Price), nil
}

func containsOrder(orders []types.OpenOrder, id string) bool {
	for _, o := range orders {
		if strings.EqualFold(o.ID, id) {
			return true
		}
	}
	return false
}

func e2eOrders(ctx context.Context, env *Env) (string, error) {
	c, err := env.Client()
	if err != nil {
		return "", err
	}
	orders, err := c.GetOrders(ctx, nil)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d open orders", len(orders)), nil
}

func e2eWebsocketBook(ctx context.Context, env *Env) (string, error) {
	if err := env.requireToken(); err != nil {
		return "", err
	}
	c, err := env.Client()
	if err != nil {
		return "", err
	}

	pool := c.NewMarketPool()
	defer pool.Close()

	ctx, cancel := context.WithTimeout(ctx, env.cfg.Harness.BookTimeout)
	defer cancel()

	sub, err := pool.Subscribe(ctx, env.tokenID)
	if err != nil {
		return "", err
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("no book snapshot within %s", env.cfg.Harness.BookTimeout)
		case ev, ok := <-sub.Events():
			if !ok {
				return "", fmt.Errorf("websocket closed before book snapshot")
			}
			if ev.Type != websocket.EventBook || ev.Book == nil {
				continue
			}
			return fmt.Sprintf("%d bids, %d asks", len(ev.Book.Bids), len(ev.Book.Asks)), nil
		}
	}
}

// e2eCleanup is best effort: every failure is logged and counted, and the
// case only fails when something could not be cleaned up.
func e2eCleanup(ctx context.Context, env *Env) (string, error) {
	c, err := env.Client()
	if err != nil {
		return "", err
	}
	if env.dryRun {
		return "", skipf("dry run")
	}

	failures := 0
	cancelled := 0
	if env.tokenID != "" {
		open, err := c.GetOrders(ctx, &types.OpenOrderParams{AssetID: env.tokenID})
		if err != nil {
			env.logger.Warn("cleanup: list orders", zap.Error(err))
			failures++
		} else if len(open) > 0 {
			ids := make([]string, 0, len(open))
			for _, o := range open {
				ids = append(ids, o.ID)
			}
			resp, err := c.CancelOrders(ctx, ids)
			if err != nil {
				env.logger.Warn("cleanup: cancel orders", zap.Error(err))
				failures++
			} else {
				cancelled = len(resp.Canceled)
				failures += len(resp.NotCanceled)
			}
		}
	}

	kept, err := env.keepers.TokenSet()
	if err != nil {
		env.logger.Warn("cleanup: keepers unreadable, not redeeming", zap.Error(err))
		return fmt.Sprintf("%d cancelled", cancelled), fmt.Errorf("keepers file: %w", err)
	}

	positions, err := c.GetPositions(ctx, nil)
	if err != nil {
		env.logger.Warn("cleanup: list positions", zap.Error(err))
		failures++
	}

	redeemed, keptCount, held := 0, 0, 0
	redeemedConditions := make(map[string]bool)
	for _, p := range positions {
		if _, ok := kept[p.AssetID]; ok {
			keptCount++
			continue
		}
		if p.CurPrice*100 >= env.cfg.Harness.KeeperAbove && !p.Redeemable {
			if err := env.keepers.Add(types.KeeperEntry{
				TokenID: p.AssetID, ConditionID: p.ConditionID, Question: p.Title,
				Size: p.Size, Price: p.CurPrice * 100, BoughtAt: time.Now().UTC(),
			}); err != nil {
				env.logger.Warn("cleanup: record keeper", zap.Error(err))
				failures++
			}
			keptCount++
			continue
		}
		if !p.Redeemable {
			held++
			continue
		}
		if redeemedConditions[p.ConditionID] {
			continue
		}
		if err := redeem(ctx, env, p); err != nil {
			if !isSkip(err) {
				env.logger.Warn("cleanup: redeem", zap.String("condition_id", p.ConditionID), zap.Error(err))
				failures++
			}
			continue
		}
		redeemedConditions[p.ConditionID] = true
		redeemed++
	}

	note := fmt.Sprintf("%d cancelled, %d redeemed, %d kept, %d held", cancelled, redeemed, keptCount, held)
	if failures > 0 {
		return note, fmt.Errorf("%d cleanup failures", failures)
	}
	return note, nil
}

func redeem(ctx context.Context, env *Env, p types.Position) error {
	chainClient, err := env.Chain(ctx)
	if err != nil {
		return err
	}
	if p.NegRisk {
		return skipf("neg-risk positions redeem through the adapter")
	}
	tx, err := chainClient.RedeemPositions(ctx, common.HexToHash(p.ConditionID), []*big.Int{big.NewInt(1), big.NewInt(2)})
	if err != nil {
		return err
	}
	_, err = chainClient.WaitMined(ctx, tx)
	return err
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func shortID(id string) string {
	if len(id) <= 10 {
		return id
	}
	return id[:10] + "…"
}
