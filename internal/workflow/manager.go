package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"reelsmith/internal/logging"
)

// ErrManagerStopped reports a trigger against a manager that is not
// running.
var ErrManagerStopped = errors.New("workflow manager is not running")

// Manager is the daemon-facing facade over the engine: it fires
// executions without blocking the caller, answers status queries, and
// keeps a bounded view of recent completions.
type Manager struct {
	logger     *slog.Logger
	engine     *Engine
	supervisor *Supervisor
	recentCap  int

	mu      sync.Mutex
	baseCtx context.Context
	cancel  context.CancelFunc
}

// Listing partitions known executions for display.
type Listing struct {
	Active []Snapshot `json:"active"`
	Recent []Snapshot `json:"recent"`
}

// NewManager builds a manager over the engine. recentCap bounds how many
// terminal executions stay queryable in memory.
func NewManager(logger *slog.Logger, engine *Engine, recentCap int) *Manager {
	if recentCap <= 0 {
		recentCap = 10
	}
	return &Manager{
		logger:     logging.WithComponent(logger, "workflow-manager"),
		engine:     engine,
		supervisor: NewSupervisor(logger),
		recentCap:  recentCap,
	}
}

// Start makes the manager accept triggers. Executions inherit from ctx,
// so cancelling it during Stop shuts running phase bodies down.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.baseCtx != nil {
		return
	}
	m.baseCtx, m.cancel = context.WithCancel(ctx)
	m.logger.Info("workflow manager started")
}

// Stop refuses new triggers, cancels the execution context, and waits for
// in-flight executions to settle.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.baseCtx = nil
	m.cancel = nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	m.supervisor.Wait()
	m.logger.Info("workflow manager stopped")
}

// Trigger creates an execution and starts it in the background, returning
// immediately with the new workflow ID.
func (m *Manager) Trigger(cfg Config) (string, error) {
	m.mu.Lock()
	ctx := m.baseCtx
	m.mu.Unlock()
	if ctx == nil {
		return "", ErrManagerStopped
	}

	id, err := m.engine.Create(cfg)
	if err != nil {
		return "", err
	}
	m.supervisor.Go(id, func() error {
		defer m.engine.PruneTerminal(m.recentCap)
		return m.engine.Execute(ctx, id)
	})
	return id, nil
}

// StatusOf returns the snapshot of one execution.
func (m *Manager) StatusOf(id string) (Snapshot, bool) {
	return m.engine.StatusOf(id)
}

// Cancel requests cooperative cancellation of one execution.
func (m *Manager) Cancel(id string) bool {
	return m.engine.Cancel(id)
}

// Crashes exposes supervisor crash records for the status endpoint.
func (m *Manager) Crashes() []Crash {
	return m.supervisor.Crashes()
}

// List returns active executions in creation order and up to recentCap
// terminal ones, most recently finished first.
func (m *Manager) List() Listing {
	var listing Listing
	for _, snapshot := range m.engine.Snapshots() {
		if snapshot.Status.Terminal() {
			listing.Recent = append(listing.Recent, snapshot)
		} else {
			listing.Active = append(listing.Active, snapshot)
		}
	}
	sort.SliceStable(listing.Recent, func(i, j int) bool {
		a, b := listing.Recent[i].CompletedAt, listing.Recent[j].CompletedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	if len(listing.Recent) > m.recentCap {
		listing.Recent = listing.Recent[:m.recentCap]
	}
	return listing
}
