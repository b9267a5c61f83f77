// Package engine runs the aggregation pipeline end to end: it loads the
// source registry, aggregates candidates and hands them to the publisher.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IshaanNene/skatefeed/internal/aggregator"
	"github.com/IshaanNene/skatefeed/internal/config"
	"github.com/IshaanNene/skatefeed/internal/extract"
	"github.com/IshaanNene/skatefeed/internal/fetcher"
	"github.com/IshaanNene/skatefeed/internal/instagram"
	"github.com/IshaanNene/skatefeed/internal/notify"
	"github.com/IshaanNene/skatefeed/internal/observability"
	"github.com/IshaanNene/skatefeed/internal/publish"
	"github.com/IshaanNene/skatefeed/internal/scraper"
	"github.com/IshaanNene/skatefeed/internal/storage"
	"github.com/IshaanNene/skatefeed/internal/types"
	"github.com/IshaanNene/skatefeed/internal/youtube"
)

// State represents the engine's current lifecycle state.
type State int32

const (
	StateIdle    State = 0
	StateRunning State = 1
	StateStopped State = 2
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Deps are the long-lived collaborators of an Engine. Notifier, Metrics
// and Rewriter may be nil.
type Deps struct {
	Fetcher  fetcher.Fetcher
	Store    storage.PostStore
	Rewriter publish.Rewriter
	Notifier notify.Notifier
	Metrics  *observability.Metrics
}

// RunOptions tune a single run.
type RunOptions struct {
	DryRun bool

	// Registry replaces the registry file for this run.
	Registry *config.Registry
}

// RunResult is the outcome of one aggregation and publish pass.
type RunResult struct {
	StartedAt time.Time         `json:"startedAt"`
	Duration  time.Duration     `json:"duration"`
	Report    aggregator.Report `json:"report"`
	Summary   publish.Summary   `json:"summary"`
	Error     string            `json:"error,omitempty"`
}

// Engine is the pipeline orchestrator. Runs never overlap: a run requested
// while another is in progress fails with types.ErrRunInProgress.
type Engine struct {
	cfg    *config.Config
	deps   Deps
	logger *slog.Logger

	state atomic.Int32

	mu   sync.RWMutex
	last *RunResult
}

// New creates an Engine.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) *Engine {
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	return &Engine{
		cfg:    cfg,
		deps:   deps,
		logger: logger.With("component", "engine"),
	}
}

// Run loads the registry, aggregates every source and publishes the
// survivors. Registry and store failures are returned; source failures
// only show up in the report.
func (e *Engine) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	if !e.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return nil, types.ErrRunInProgress
	}
	defer e.state.CompareAndSwap(int32(StateRunning), int32(StateIdle))

	res := &RunResult{StartedAt: time.Now()}
	err := e.run(ctx, opts, res)
	res.Duration = time.Since(res.StartedAt)
	if err != nil {
		res.Error = err.Error()
	}
	e.deps.Metrics.RecordRun(res.Duration, err)

	e.mu.Lock()
	e.last = res
	e.mu.Unlock()

	if err != nil {
		e.logger.Error("run failed", "error", err, "duration", res.Duration)
		return res, err
	}
	e.logger.Info("run complete",
		"articles", res.Report.Articles,
		"failed_tasks", res.Report.Failed+res.Report.Panicked,
		"published", res.Summary.Published,
		"duration", res.Duration,
	)
	return res, nil
}

func (e *Engine) run(ctx context.Context, opts RunOptions, res *RunResult) error {
	reg, err := e.registry(opts)
	if err != nil {
		return err
	}

	articles, report := e.aggregator().AggregateAll(ctx, reg)
	res.Report = report
	if err := ctx.Err(); err != nil {
		return err
	}

	pub := publish.New(e.deps.Store, e.deps.Rewriter, e.deps.Notifier, e.deps.Metrics, publish.Options{
		MinTextLength: e.cfg.Scraper.MinTextLength,
		DryRun:        opts.DryRun,
	}, e.logger)
	summary, err := pub.Publish(ctx, articles)
	res.Summary = summary
	return err
}

// Scrape aggregates the registry without publishing anything.
func (e *Engine) Scrape(ctx context.Context, opts RunOptions) ([]types.Article, aggregator.Report, error) {
	reg, err := e.registry(opts)
	if err != nil {
		return nil, aggregator.Report{}, err
	}
	articles, report := e.aggregator().AggregateAll(ctx, reg)
	return articles, report, nil
}

// RunEvery runs the pipeline immediately and then on every tick until ctx
// is cancelled. Failed runs are logged and do not stop the loop.
func (e *Engine) RunEvery(ctx context.Context, interval time.Duration, opts RunOptions) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("scheduled runs started", "interval", interval)
	for {
		if _, err := e.Run(ctx, opts); err != nil && ctx.Err() == nil {
			e.logger.Warn("scheduled run failed", "error", err)
		}
		select {
		case <-ctx.Done():
			e.logger.Info("scheduled runs stopped")
			return
		case <-ticker.C:
		}
	}
}

// GetState returns the current engine state.
func (e *Engine) GetState() State {
	return State(e.state.Load())
}

// LastRun returns the most recent run result, or nil before the first run.
func (e *Engine) LastRun() *RunResult {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.last
}

// Posts returns the current store contents, newest first.
func (e *Engine) Posts(ctx context.Context) ([]types.Post, error) {
	return e.deps.Store.Posts(ctx)
}

// Close marks the engine stopped and releases the store, the notifier and
// the fetcher.
func (e *Engine) Close() error {
	e.state.Store(int32(StateStopped))
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	keep(e.deps.Notifier.Close())
	if e.deps.Store != nil {
		keep(e.deps.Store.Close())
	}
	if e.deps.Fetcher != nil {
		keep(e.deps.Fetcher.Close())
	}
	return firstErr
}

func (e *Engine) registry(opts RunOptions) (*config.Registry, error) {
	if opts.Registry != nil {
		return opts.Registry, nil
	}
	reg, err := config.LoadRegistry(e.cfg.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	if reg.Empty() {
		e.logger.Warn("registry has no sources", "path", e.cfg.RegistryPath)
	}
	return reg, nil
}

// aggregator wires the scrapers for one run.
func (e *Engine) aggregator() *aggregator.Aggregator {
	f := e.deps.Fetcher
	ex := extract.New(f, e.cfg.Scraper, e.logger)
	return aggregator.New(
		scraper.New(f, ex, e.cfg.Scraper, e.logger),
		youtube.New(f, e.cfg.YouTube, e.logger),
		instagram.New(f, e.cfg.Instagram, e.logger),
		e.cfg.Aggregator,
		e.cfg.Instagram.Top,
		e.deps.Metrics,
		e.logger,
	)
}
