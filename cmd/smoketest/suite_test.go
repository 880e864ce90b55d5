package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pooofdevelopment/clob-trader/pkg/config"
)

func testEnv(t *testing.T) *Env {
	t.Helper()
	cfg := config.Default()
	cfg.Harness.KeepersFile = filepath.Join(t.TempDir(), "keepers.json")
	cfg.Wallet.PrivateKey = ""
	cfg.RPCURL = ""
	env := NewEnv(cfg, zap.NewNop(), "test-run", true)
	env.sleep = func(time.Duration) {}
	return env
}

func ids(cases []Case) []string {
	out := make([]string, 0, len(cases))
	for _, c := range cases {
		out = append(out, c.ID)
	}
	return out
}

func TestSelect(t *testing.T) {
	all := allCases()

	got, err := Select(all, nil, false, false)
	require.NoError(t, err)
	assert.Equal(t, ids(unitCases()), ids(got))

	got, err = Select(all, nil, false, true)
	require.NoError(t, err)
	assert.Equal(t, ids(e2eCases()), ids(got))

	got, err = Select(all, nil, true, true)
	require.NoError(t, err)
	assert.Len(t, got, len(all))

	got, err = Select(all, []string{"depth", " HMAC ", ""}, false, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"hmac", "depth"}, ids(got))

	_, err = Select(all, []string{"nope"}, false, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "place-cancel")
}

func TestCaseIDsUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range allCases() {
		assert.False(t, seen[c.ID], "duplicate id %s", c.ID)
		seen[c.ID] = true
		assert.NotNil(t, c.Run, c.ID)
	}
}

func TestRunOutcomes(t *testing.T) {
	cases := []Case{
		{ID: "ok", Run: func(context.Context, *Env) (string, error) { return "fine", nil }},
		{ID: "bad", Run: func(context.Context, *Env) (string, error) { return "", errors.New("boom") }},
		{ID: "skip", Run: func(context.Context, *Env) (string, error) { return "", skipf("no key") }},
		{ID: "panic", Run: func(context.Context, *Env) (string, error) { panic("kaboom") }},
	}

	results := Run(context.Background(), testEnv(t), cases)
	require.Len(t, results, 4)

	assert.True(t, results[0].Passed())
	assert.Equal(t, "fine", results[0].Note)
	assert.True(t, results[1].Failed())
	assert.True(t, results[2].Skipped())
	assert.False(t, results[2].Failed())
	assert.True(t, results[3].Failed())
	assert.Contains(t, results[3].Err.Error(), "kaboom")

	assert.Equal(t, 1, ExitCode(results))
	assert.Equal(t, 0, ExitCode(results[:1]))
	assert.Equal(t, 0, ExitCode(results[2:3]))
}

func TestRunCancelledSkipsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	cases := []Case{
		{ID: "first", Run: func(context.Context, *Env) (string, error) { calls++; cancel(); return "", nil }},
		{ID: "second", Run: func(context.Context, *Env) (string, error) { calls++; return "", nil }},
	}

	results := Run(ctx, testEnv(t), cases)
	assert.Equal(t, 1, calls)
	assert.True(t, results[1].Skipped())
}

func TestUnitCasesPass(t *testing.T) {
	env := testEnv(t)
	for _, r := range Run(context.Background(), env, unitCases()) {
		assert.True(t, r.Passed(), "%s: %v", r.Case.ID, r.Err)
	}
}

func TestE2ECasesSkipWithoutKey(t *testing.T) {
	env := testEnv(t)
	for _, r := range Run(context.Background(), env, e2eCases()) {
		assert.True(t, r.Skipped(), "%s: %v", r.Case.ID, r.Err)
	}
}

func TestRender(t *testing.T) {
	results := []Result{
		{Case: Case{ID: "amounts"}, Note: "4 vectors", Duration: time.Millisecond},
		{Case: Case{ID: "auth"}, Err: skipf("no key")},
		{Case: Case{ID: "orders"}, Err: errors.New("HTTP 500")},
	}
	var buf bytes.Buffer
	Render(&buf, "run-1", results)

	out := buf.String()
	for _, want := range []string{"run-1", "amounts", "4 vectors", "auth", "orders", "HTTP 500", "1 passed", "1 failed", "1 skipped"} {
		assert.Contains(t, out, want)
	}
}

func TestRestingParamsSnapsToGrid(t *testing.T) {
	env := testEnv(t)
	env.tokenID = "123"
	env.cfg.Harness.TestPrice = 1.2345
	env.cfg.Harness.TestSize = 1

	p := restingParams(env)
	assert.Equal(t, 1.0, p.Price)
	assert.Equal(t, 5.0, p.Size)

	env.cfg.Harness.TestPrice = 0
	assert.Equal(t, 1.0, restingParams(env).Price)
}
