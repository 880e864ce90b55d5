package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Kind separates offline cases from cases that talk to the exchange
type Kind string

const (
	KindUnit Kind = "unit"
	KindE2E  Kind = "e2e"
)

// errSkip marks a case that could not run in this environment
var errSkip = errors.New("skipped")

func skipf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errSkip, fmt.Sprintf(format, args...))
}

// Case is one smoke test. E2E cases run in declaration order and may read
// state earlier cases left in the Env.
type Case struct {
	ID   string
	Name string
	Kind Kind
	Run  func(ctx context.Context, env *Env) (string, error)
}

// Result is the outcome of a case. Note is a one-line detail for the report.
type Result struct {
	Case     Case
	Err      error
	Note     string
	Duration time.Duration
}

func (r Result) Skipped() bool { return errors.Is(r.Err, errSkip) }
func (r Result) Passed() bool  { return r.Err == nil }
func (r Result) Failed() bool  { return r.Err != nil && !r.Skipped() }

// Select picks the cases to run. Explicit ids win over the kind flags;
// with nothing selected only unit cases run.
func Select(all []Case, ids []string, unit, e2e bool) ([]Case, error) {
	if len(ids) > 0 {
		byID := make(map[string]Case, len(all))
		for _, c := range all {
			byID[strings.ToLower(c.ID)] = c
		}
		want := make(map[string]bool, len(ids))
		for _, id := range ids {
			id = strings.ToLower(strings.TrimSpace(id))
			if id == "" {
				continue
			}
			if _, ok := byID[id]; !ok {
				return nil, fmt.Errorf("unknown test %q (known: %s)", id, knownIDs(all))
			}
			want[id] = true
		}
		var out []Case
		for _, c := range all {
			if want[strings.ToLower(c.ID)] {
				out = append(out, c)
			}
		}
		return out, nil
	}

	if !unit && !e2e {
		unit = true
	}
	var out []Case
	for _, c := range all {
		if (unit && c.Kind == KindUnit) || (e2e && c.Kind == KindE2E) {
			out = append(out, c)
		}
	}
	return out, nil
}

func knownIDs(all []Case) string {
	ids := make([]string, 0, len(all))
	for _, c := range all {
		ids = append(ids, c.ID)
	}
	sort.Strings(ids)
	return strings.Join(ids, ", ")
}

// Run executes cases in order. A panicking case fails without stopping the run.
func Run(ctx context.Context, env *Env, cases []Case) []Result {
	results := make([]Result, 0, len(cases))
	for _, c := range cases {
		if ctx.Err() != nil {
			results = append(results, Result{Case: c, Err: skipf("run cancelled")})
			continue
		}
		res := runOne(ctx, env, c)
		fields := []zap.Field{zap.String("id", c.ID), zap.Duration("took", res.Duration)}
		switch {
		case res.Passed():
			env.logger.Info("case passed", append(fields, zap.String("note", res.Note))...)
		case res.Skipped():
			env.logger.Info("case skipped", append(fields, zap.Error(res.Err))...)
		default:
			env.logger.Error("case failed", append(fields, zap.Error(res.Err))...)
		}
		results = append(results, res)
	}
	return results
}

func runOne(ctx context.Context, env *Env, c Case) (res Result) {
	res.Case = c
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("panic: %v", r)
		}
		res.Duration = time.Since(start)
	}()
	res.Note, res.Err = c.Run(ctx, env)
	return res
}

// ExitCode is 0 when nothing failed
func ExitCode(results []Result) int {
	for _, r := range results {
		if r.Failed() {
			return 1
		}
	}
	return 0
}
