// Package sideeffect runs best-effort work that follows a primary write.
// Failures are logged and counted but never reach the caller.
package sideeffect

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"brokenweave/pkg/circuitbreaker"
	"brokenweave/pkg/logger"
	"brokenweave/pkg/metrics"
	"brokenweave/pkg/trace"
)

// Runner keeps one circuit breaker per side-effect name.
type Runner struct {
	logger  *zap.Logger
	cbCfg   circuitbreaker.Config
	timeout time.Duration
	wg      sync.WaitGroup

	mu       sync.Mutex
	breakers map[string]*circuitbreaker.CircuitBreaker
}

func NewRunner(log *zap.Logger, cbCfg circuitbreaker.Config, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Runner{
		logger:   log,
		cbCfg:    cbCfg,
		timeout:  timeout,
		breakers: make(map[string]*circuitbreaker.CircuitBreaker),
	}
}

func (r *Runner) breaker(name string) *circuitbreaker.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	cb, ok := r.breakers[name]
	if !ok {
		cb = circuitbreaker.NewCircuitBreaker(r.cbCfg)
		r.breakers[name] = cb
	}
	return cb
}

// Go runs fn in the background, detached from ctx's cancellation but keeping
// its trace id.
func (r *Runner) Go(ctx context.Context, name string, fn func(context.Context) error) {
	traceID := trace.FromContext(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		bg := context.Background()
		if traceID != "" {
			bg = trace.WithContext(bg, traceID)
		}
		r.Run(bg, name, fn)
	}()
}

// Run executes fn synchronously with the side-effect policy and reports
// whether it succeeded.
func (r *Runner) Run(ctx context.Context, name string, fn func(context.Context) error) bool {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	log := logger.WithTrace(ctx, r.logger)
	err := r.breaker(name).Execute(func() error { return fn(ctx) })
	if err != nil {
		status := "failed"
		if errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen) {
			status = "skipped"
		}
		log.Warn("Best-effort side effect failed",
			zap.String("side_effect", name),
			zap.String("status", status),
			zap.Error(err),
		)
		metrics.IncrementSideEffect(name, status)
		return false
	}
	metrics.IncrementSideEffect(name, "ok")
	return true
}

// Wait blocks until every background side effect has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}
