// Package engine wires the store, parser, ingestion watcher, alert engine,
// analytics, comparison, and retention manager into one owner-controlled
// component with an explicit lifetime.
package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/loglens/loglens/pkg/alerts"
	"github.com/loglens/loglens/pkg/analytics"
	"github.com/loglens/loglens/pkg/compare"
	"github.com/loglens/loglens/pkg/config"
	"github.com/loglens/loglens/pkg/domain"
	"github.com/loglens/loglens/pkg/ingest"
	"github.com/loglens/loglens/pkg/logparse"
	"github.com/loglens/loglens/pkg/retention"
	"github.com/loglens/loglens/pkg/store"
)

// Engine is the log intelligence engine facade consumed by UIs, exporters,
// and the HTTP API.
type Engine struct {
	cfg    *config.Config
	logger *zap.Logger

	store     *store.Store
	parser    *logparse.Parser
	watcher   *ingest.Watcher
	alerts    *alerts.Engine
	analytics *analytics.Engine
	comparer  *compare.Comparer
	retention *retention.Manager

	cancel context.CancelFunc
}

// New builds an engine from configuration.
func New(cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("engine: nil config")
	}
	if cfg.Ingest.Directory == "" {
		return nil, fmt.Errorf("engine: ingest directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	st := store.New(cfg.Ingest.MaxEntries, logger)
	parser := logparse.New(logger)
	alertEngine := alerts.New(logger, st, cfg.Alerts.AlertFile)
	if cfg.Alerts.SeedDefaults {
		alertEngine.SeedDefaults()
	}

	watcher := ingest.NewWatcher(ingest.Config{
		Directory:      cfg.Ingest.Directory,
		PollInterval:   cfg.Ingest.PollInterval,
		Patterns:       cfg.Ingest.Patterns,
		RetentionDays:  cfg.Ingest.RetentionDays,
		HistoricalDays: cfg.Ingest.HistoricalDays,
		SignatureCache: cfg.Ingest.SignatureCache,
	}, parser, st, alertEngine, logger)

	return &Engine{
		cfg:       cfg,
		logger:    logger.Named("engine"),
		store:     st,
		parser:    parser,
		watcher:   watcher,
		alerts:    alertEngine,
		analytics: analytics.New(st, logger),
		comparer:  compare.New(logger),
		retention: retention.NewManager(cfg.Ingest.Directory, cfg.Retention, logger),
	}, nil
}

// Start applies startup policy (clear, delete-old), begins monitoring, and
// starts the auto-clean schedule when enabled.
func (e *Engine) Start(ctx context.Context) error {
	ctx, e.cancel = context.WithCancel(ctx)

	if e.cfg.Ingest.ClearOnStartup {
		e.store.Clear()
	}
	if e.cfg.Ingest.DeleteOldOnStartup {
		if _, err := e.retention.Cleanup(retention.CleanupOptions{Confirmed: true}); err != nil {
			e.logger.Warn("startup cleanup failed", zap.Error(err))
		}
	}
	if err := e.watcher.Start(ctx); err != nil {
		return fmt.Errorf("start monitoring: %w", err)
	}
	e.retention.StartAutoClean(ctx)
	return nil
}

// Stop shuts down monitoring and flushes persistent state.
func (e *Engine) Stop() error {
	if e.cancel != nil {
		e.cancel()
	}
	return e.watcher.Stop()
}

// Sync runs one synchronous ingestion pass. The analyze command and tests
// use it instead of waiting for poll ticks.
func (e *Engine) Sync() { e.watcher.Sync() }

// LoadHistorical bulk-loads files modified within the last horizonDays.
func (e *Engine) LoadHistorical(horizonDays int) { e.watcher.LoadHistorical(horizonDays) }

// Entries returns a full snapshot in insertion order.
func (e *Engine) Entries() []*domain.LogEntry { return e.store.Snapshot() }

// Recent returns the newest n entries.
func (e *Engine) Recent(n int) []*domain.LogEntry { return e.store.Recent(n) }

// Page returns a skip/take window ordered by timestamp descending.
func (e *Engine) Page(skip, take int) []*domain.LogEntry { return e.store.Page(skip, take) }

// ClearLogs empties the store.
func (e *Engine) ClearLogs() { e.store.Clear() }

// Store exposes the canonical store.
func (e *Engine) Store() *store.Store { return e.store }

// Analytics exposes the analytics engine.
func (e *Engine) Analytics() *analytics.Engine { return e.analytics }

// Alerts exposes the alert engine.
func (e *Engine) Alerts() *alerts.Engine { return e.alerts }

// Retention exposes the retention manager.
func (e *Engine) Retention() *retention.Manager { return e.retention }

// Compare fuzzy-diffs two entry sets.
func (e *Engine) Compare(left, right []*domain.LogEntry, threshold float64) *domain.ComparisonResult {
	return e.comparer.Compare(left, right, threshold)
}

// SubscribeEntries registers a store observer.
func (e *Engine) SubscribeEntries(o domain.EntryObserver) { e.store.Subscribe(o) }

// SubscribeAlerts registers an alert observer.
func (e *Engine) SubscribeAlerts(o domain.AlertObserver) { e.alerts.Subscribe(o) }
