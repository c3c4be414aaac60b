package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"reelsmith/internal/config"
	"reelsmith/internal/events"
	"reelsmith/internal/history"
	"reelsmith/internal/logging"
	"reelsmith/internal/registry"
	"reelsmith/internal/workflow"
)

// Daemon coordinates the workflow manager and the API server, and
// enforces single-instance execution via a lock file.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	bus     *events.Bus
	graphs  *registry.Registry
	manager *workflow.Manager
	store   *history.Store

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running         bool
	PID             int
	LockFilePath    string
	HistoryDBPath   string
	ActiveWorkflows int
	Crashes         int
	WorkflowTypes   []registry.WorkflowType
}

// New constructs a daemon with initialized dependencies. The history
// store may be nil when persistence is disabled.
func New(cfg *config.Config, logger *slog.Logger, bus *events.Bus, graphs *registry.Registry, manager *workflow.Manager, store *history.Store) (*Daemon, error) {
	if cfg == nil || bus == nil || graphs == nil || manager == nil {
		return nil, errors.New("daemon requires config, bus, registry, and workflow manager")
	}
	lockPath := filepath.Join(cfg.LogDir, "reelsmithd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "daemon"),
		bus:      bus,
		graphs:   graphs,
		manager:  manager,
		store:    store,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, starts the workflow manager, and brings
// the API server up.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another reelsmith daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.manager.Start(d.ctx)

	api, err := newAPIServer(d.cfg, d, d.logger)
	if err != nil {
		d.teardown()
		return err
	}
	d.api = api
	if err := d.api.start(d.ctx); err != nil {
		d.teardown()
		return err
	}

	d.running.Store(true)
	d.logger.Info("reelsmith daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
	}
	if d.api != nil {
		d.api.stop()
		d.api = nil
	}
	d.manager.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.cancel = nil
	d.running.Store(false)
	d.logger.Info("reelsmith daemon stopped")
}

// Close stops the daemon and releases the history store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

func (d *Daemon) teardown() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.manager.Stop()
	_ = d.lock.Unlock()
	d.ctx = nil
}

// APIAddr returns the address the API server is listening on. Useful
// when the configured bind requested an ephemeral port.
func (d *Daemon) APIAddr() string {
	if d.api == nil {
		return d.cfg.APIBind
	}
	return d.api.addr()
}

// Status reports daemon runtime information.
func (d *Daemon) Status() Status {
	status := Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		LockFilePath:  d.lockPath,
		Crashes:       len(d.manager.Crashes()),
		WorkflowTypes: d.graphs.Types(),
	}
	if d.store != nil {
		status.HistoryDBPath = d.store.Path()
	}
	status.ActiveWorkflows = len(d.manager.List().Active)
	return status
}

// Trigger starts a workflow from an API request, applying configured
// defaults for cost and timeout.
func (d *Daemon) Trigger(workflowType registry.WorkflowType, topic string, platforms []string, style, tone string) (string, error) {
	return d.manager.Trigger(workflow.Config{
		Topic:      topic,
		Type:       workflowType,
		Platforms:  platforms,
		Style:      style,
		Tone:       tone,
		MaxCostUSD: d.cfg.Workflow.MaxCostUSD,
		Timeout:    d.cfg.Workflow.PhaseTimeout(),
	})
}

// List returns active and recent executions, folding persisted history
// into the recent list when in-memory state has been pruned.
func (d *Daemon) List(ctx context.Context) (workflow.Listing, error) {
	listing := d.manager.List()
	if d.store == nil {
		return listing, nil
	}
	persisted, err := d.store.Recent(ctx, d.cfg.Workflow.HistoryLimit)
	if err != nil {
		return listing, err
	}
	seen := make(map[string]struct{}, len(listing.Recent)+len(listing.Active))
	for _, snapshot := range listing.Active {
		seen[snapshot.ID] = struct{}{}
	}
	for _, snapshot := range listing.Recent {
		seen[snapshot.ID] = struct{}{}
	}
	for _, snapshot := range persisted {
		if _, dup := seen[snapshot.ID]; dup {
			continue
		}
		listing.Recent = append(listing.Recent, snapshot)
	}
	if limit := d.cfg.Workflow.HistoryLimit; limit > 0 && len(listing.Recent) > limit {
		listing.Recent = listing.Recent[:limit]
	}
	return listing, nil
}

// StatusOf resolves one execution, consulting persisted history for
// workflows no longer in memory.
func (d *Daemon) StatusOf(ctx context.Context, id string) (workflow.Snapshot, bool, error) {
	if snapshot, ok := d.manager.StatusOf(id); ok {
		return snapshot, true, nil
	}
	if d.store == nil {
		return workflow.Snapshot{}, false, nil
	}
	return d.store.Get(ctx, id)
}

// Cancel requests cooperative cancellation of one execution.
func (d *Daemon) Cancel(id string) bool {
	return d.manager.Cancel(id)
}
