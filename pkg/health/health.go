// Package health runs named dependency checks with per-check timeouts.
package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"
)

// CheckFunc is a health check function. It should return nil if the checked
// component is healthy, or an error describing the problem.
type CheckFunc func(ctx context.Context) error

// Result is the outcome of one check.
type Result struct {
	Name string
	Took time.Duration
	Err  error
}

// OK reports whether the check passed.
func (r Result) OK() bool { return r.Err == nil }

type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc
}

// Checker holds a set of checks.
type Checker struct {
	mu     sync.Mutex
	checks []check
}

// New creates an empty Checker.
func New() *Checker {
	return &Checker{}
}

// Add registers a check. A non-positive timeout means no per-check limit.
func (c *Checker) Add(name string, timeout time.Duration, fn CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks = append(c.checks, check{name: name, timeout: timeout, fn: fn})
}

// Run executes all checks concurrently and returns their results sorted by
// name. A failing check does not cancel the others.
func (c *Checker) Run(ctx context.Context) []Result {
	c.mu.Lock()
	checks := append([]check(nil), c.checks...)
	c.mu.Unlock()

	results := make([]Result, len(checks))
	var g errgroup.Group
	for i, ch := range checks {
		g.Go(func() error {
			results[i] = runCheck(ctx, ch)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results
}

func runCheck(ctx context.Context, ch check) (r Result) {
	r.Name = ch.name
	if ch.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ch.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		r.Took = time.Since(start)
		if rec := recover(); rec != nil {
			r.Err = errors.Errorf("check panicked: %v", rec)
		}
	}()

	r.Err = ch.fn(ctx)
	return r
}

// Healthy reports whether every result passed.
func Healthy(results []Result) bool {
	for _, r := range results {
		if !r.OK() {
			return false
		}
	}
	return true
}
