package workflow

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"reelsmith/internal/events"
	"reelsmith/internal/logging"
	"reelsmith/internal/phase"
	"reelsmith/internal/registry"
)

var (
	// ErrUnknownWorkflow reports an execution ID the engine has never seen.
	ErrUnknownWorkflow = errors.New("unknown workflow")
	// ErrAlreadyStarted reports a second Execute call for the same execution.
	ErrAlreadyStarted = errors.New("workflow already started")
	// ErrMissingPhaseBody reports a graph phase with no registered body.
	ErrMissingPhaseBody = errors.New("no body registered for phase")
)

// Engine creates and runs workflow executions. All execution state is
// guarded by mu; phase bodies run on their own goroutines and report back
// through the per-execution scheduler.
type Engine struct {
	logger  *slog.Logger
	bus     *events.Bus
	graphs  *registry.Registry
	bodies  phase.Set
	history HistorySink

	mu     sync.Mutex
	states map[string]*execState
	order  []string
}

type execState struct {
	exec         *Execution
	cancelled    bool
	started      bool
	budgetWarned bool
	dispatched   int
}

// NewEngine wires the engine to its collaborators. The history sink may
// be nil when no persistence is wanted.
func NewEngine(logger *slog.Logger, bus *events.Bus, graphs *registry.Registry, bodies phase.Set, history HistorySink) *Engine {
	return &Engine{
		logger:  logging.WithComponent(logger, "workflow-engine"),
		bus:     bus,
		graphs:  graphs,
		bodies:  bodies,
		history: history,
		states:  make(map[string]*execState),
	}
}

// Create registers a new execution in Pending state and returns its ID.
// Every phase of the graph must have a registered body.
func (e *Engine) Create(cfg Config) (string, error) {
	specs, err := e.graphs.PhasesFor(cfg.Type)
	if err != nil {
		return "", err
	}
	phases := make([]*Phase, len(specs))
	for i, spec := range specs {
		if _, ok := e.bodies[spec.Name]; !ok {
			return "", fmt.Errorf("%w: %s", ErrMissingPhaseBody, spec.Name)
		}
		phases[i] = &Phase{
			Name:      spec.Name,
			Status:    StatusPending,
			Barrier:   spec.Barrier,
			DependsOn: append([]string(nil), spec.DependsOn...),
		}
	}

	exec := &Execution{
		ID:        uuid.NewString(),
		Config:    cfg,
		Status:    StatusPending,
		Phases:    phases,
		Result:    Result{Fields: make(map[string]any)},
		CreatedAt: time.Now().UTC(),
	}

	e.mu.Lock()
	e.states[exec.ID] = &execState{exec: exec}
	e.order = append(e.order, exec.ID)
	e.mu.Unlock()

	e.logger.Info("workflow created",
		logging.String(logging.FieldWorkflowID, exec.ID),
		logging.String("workflow_type", string(cfg.Type)),
		logging.String("topic", cfg.Topic),
		logging.Int("total_phases", len(phases)),
	)
	return exec.ID, nil
}

// StatusOf returns a snapshot of the execution, if known.
func (e *Engine) StatusOf(id string) (Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.states[id]
	if !ok {
		return Snapshot{}, false
	}
	return snapshotOf(st.exec), true
}

// Snapshots returns every known execution in creation order.
func (e *Engine) Snapshots() []Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Snapshot, 0, len(e.order))
	for _, id := range e.order {
		if st, ok := e.states[id]; ok {
			out = append(out, snapshotOf(st.exec))
		}
	}
	return out
}

// Cancel requests cooperative cancellation of a Starting or Running
// execution. Phases already running finish and record their results; no
// new phases dispatch. The first call returns true and emits a single
// cancellation event; calls on executions in any other state, including
// Pending ones that never began executing, return false.
func (e *Engine) Cancel(id string) bool {
	e.mu.Lock()
	st, ok := e.states[id]
	if !ok || (st.exec.Status != StatusStarting && st.exec.Status != StatusRunning) {
		e.mu.Unlock()
		return false
	}
	st.cancelled = true
	st.exec.Status = StatusCancelled
	now := time.Now().UTC()
	st.exec.CompletedAt = &now
	e.mu.Unlock()

	e.bus.Publish(events.Event{
		Kind:       events.KindWorkflowCancelled,
		WorkflowID: id,
		Message:    "workflow cancelled",
	})
	e.logger.Info("workflow cancelled", logging.String(logging.FieldWorkflowID, id))
	return true
}

// PruneTerminal drops the oldest terminal executions beyond keep, freeing
// their in-memory state. Event history on the bus is kept separately.
func (e *Engine) PruneTerminal(keep int) {
	if keep < 0 {
		keep = 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	terminal := make([]string, 0, len(e.order))
	for _, id := range e.order {
		if st, ok := e.states[id]; ok && st.exec.Status.Terminal() {
			terminal = append(terminal, id)
		}
	}
	if len(terminal) <= keep {
		return
	}
	drop := make(map[string]struct{}, len(terminal)-keep)
	for _, id := range terminal[:len(terminal)-keep] {
		drop[id] = struct{}{}
		delete(e.states, id)
	}
	kept := e.order[:0]
	for _, id := range e.order {
		if _, gone := drop[id]; !gone {
			kept = append(kept, id)
		}
	}
	e.order = kept
}

func (e *Engine) recordHistory(snapshot Snapshot) {
	if e.history == nil {
		return
	}
	if err := e.history.Record(snapshot); err != nil {
		e.logger.Warn("failed to record workflow history",
			logging.String(logging.FieldWorkflowID, snapshot.ID),
			logging.Error(err),
		)
	}
}
