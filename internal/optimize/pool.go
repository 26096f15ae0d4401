package optimize

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Pool bounds the CPU-heavy strategy runs and enforces at most one in-flight
// run per scope: submitting for a scope cancels any run already in flight for
// it, so a superseded rebalance aborts cooperatively instead of racing.
type Pool struct {
	sem    chan struct{}
	budget time.Duration

	mu       sync.Mutex
	nextGen  uint64
	inflight map[string]poolEntry
	wg       sync.WaitGroup
	logger   *slog.Logger
}

type poolEntry struct {
	cancel context.CancelFunc
	gen    uint64
}

func NewPool(size int, budget time.Duration, logger *slog.Logger) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{
		sem:      make(chan struct{}, size),
		budget:   budget,
		inflight: make(map[string]poolEntry),
		logger:   logger,
	}
}

// Submit schedules fn for the scope under the pool's concurrency bound and
// hard time budget. The previous run for the same scope, if any, is
// cancelled first. fn must honor ctx cancellation.
func (p *Pool) Submit(ctx context.Context, scope string, fn func(context.Context)) {
	runCtx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	if prev, ok := p.inflight[scope]; ok {
		prev.cancel()
		if p.logger != nil {
			p.logger.Info("superseding in-flight optimization", "scope", scope)
		}
	}
	p.nextGen++
	gen := p.nextGen
	p.inflight[scope] = poolEntry{cancel: cancel, gen: gen}
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			p.mu.Lock()
			// Only clear our own registration; a newer submit may have
			// replaced it already.
			if cur, ok := p.inflight[scope]; ok && cur.gen == gen {
				delete(p.inflight, scope)
			}
			p.mu.Unlock()
			cancel()
		}()

		select {
		case p.sem <- struct{}{}:
			defer func() { <-p.sem }()
		case <-runCtx.Done():
			return
		}
		if runCtx.Err() != nil {
			return
		}
		if p.budget > 0 {
			var budgetCancel context.CancelFunc
			runCtx, budgetCancel = context.WithTimeout(runCtx, p.budget)
			defer budgetCancel()
		}
		fn(runCtx)
	}()
}

// Wait blocks until every submitted run has finished. Used by shutdown and
// tests.
func (p *Pool) Wait() { p.wg.Wait() }
