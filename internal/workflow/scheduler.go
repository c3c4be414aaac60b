package workflow

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"reelsmith/internal/events"
	"reelsmith/internal/logging"
	"reelsmith/internal/phase"
)

type phaseResult struct {
	name   string
	output phase.Output
	err    error
}

// Execute runs the execution to a terminal state and blocks until it gets
// there. The scheduler dispatches every eligible phase concurrently, waits
// for at least one to terminate, then re-evaluates eligibility; a failed
// predecessor unblocks its dependents rather than wedging the graph.
// Execute returns an error only when the workflow itself ends Failed or
// cannot start.
func (e *Engine) Execute(ctx context.Context, id string) (err error) {
	e.mu.Lock()
	st, ok := e.states[id]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownWorkflow, id)
	}
	if st.started {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyStarted, id)
	}
	st.started = true
	exec := st.exec
	exec.Status = StatusStarting
	now := time.Now().UTC()
	exec.StartedAt = &now
	total := len(exec.Phases)
	e.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err = e.failFromPanic(st, r)
		}
	}()

	e.bus.Publish(events.Event{
		Kind:       events.KindWorkflowStarted,
		WorkflowID: id,
		Progress:   events.Percent(0),
		Message:    fmt.Sprintf("workflow started: %s", exec.Config.Topic),
		Data: map[string]any{
			"workflow_type": string(exec.Config.Type),
			"total_phases":  total,
		},
	})
	e.logger.Info("workflow started",
		logging.String(logging.FieldWorkflowID, id),
		logging.String("workflow_type", string(exec.Config.Type)),
	)

	// Starting lasts for the started announcement; a Cancel landing in
	// that window wins and the loop below dispatches nothing.
	e.mu.Lock()
	if !st.cancelled {
		exec.Status = StatusRunning
	}
	e.mu.Unlock()

	results := make(chan phaseResult, total)
	running := 0
	for {
		e.mu.Lock()
		if st.cancelled {
			e.mu.Unlock()
			break
		}
		eligible := eligiblePhases(exec)
		if len(eligible) == 0 && running == 0 {
			e.mu.Unlock()
			break
		}
		startedAt := time.Now().UTC()
		indices := make([]int, len(eligible))
		for i, p := range eligible {
			p.Status = StatusRunning
			p.StartedAt = &startedAt
			st.dispatched++
			indices[i] = st.dispatched
		}
		completed := exec.PhasesCompleted()
		e.mu.Unlock()

		for i, p := range eligible {
			e.bus.Publish(events.Event{
				Kind:       events.KindPhaseStarted,
				WorkflowID: id,
				PhaseName:  p.Name,
				Progress:   events.Percent(percentOf(completed, total)),
				Message:    fmt.Sprintf("phase %d/%d: %s", indices[i], total, p.Name),
				Data: map[string]any{
					"phase_index":  indices[i],
					"total_phases": total,
				},
			})
			running++
			go e.runPhase(ctx, st, p.Name, results)
		}

		res := <-results
		running--
		e.finishPhase(st, res)
		for drained := false; !drained; {
			select {
			case res := <-results:
				running--
				e.finishPhase(st, res)
			default:
				drained = true
			}
		}
	}

	// On cancellation, phases already dispatched run to completion and
	// their outcomes are still recorded.
	for running > 0 {
		res := <-results
		running--
		e.finishPhase(st, res)
	}

	return e.finalize(st)
}

// eligiblePhases returns pending phases whose predecessors have all
// terminated. Completion status of a predecessor does not matter: a
// barrier over a partially failed fan-out still proceeds and inspects the
// failures itself.
func eligiblePhases(exec *Execution) []*Phase {
	var eligible []*Phase
	for _, p := range exec.Phases {
		if p.Status != StatusPending {
			continue
		}
		ready := true
		for _, dep := range p.DependsOn {
			if upstream := exec.PhaseByName(dep); upstream == nil || !upstream.Terminated() {
				ready = false
				break
			}
		}
		if ready {
			eligible = append(eligible, p)
		}
	}
	return eligible
}

// runPhase invokes one phase body with the per-phase deadline and reports
// the outcome. A panicking body fails its phase only.
func (e *Engine) runPhase(ctx context.Context, st *execState, name string, results chan<- phaseResult) {
	body := e.bodies[name]
	view := &outputsView{engine: e, exec: st.exec}
	timeout := st.exec.Config.Timeout

	runCtx := ctx
	cancel := func() {}
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	done := make(chan phaseResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- phaseResult{name: name, err: fmt.Errorf("phase panicked: %v", r)}
			}
		}()
		out, bodyErr := body(runCtx, view)
		done <- phaseResult{name: name, output: out, err: bodyErr}
	}()

	select {
	case res := <-done:
		results <- res
	case <-runCtx.Done():
		cause := runCtx.Err()
		if errors.Is(cause, context.DeadlineExceeded) {
			cause = fmt.Errorf("timed out after %s", timeout)
		}
		results <- phaseResult{name: name, err: cause}
	}
}

func (e *Engine) finishPhase(st *execState, res phaseResult) {
	exec := st.exec
	now := time.Now().UTC()

	e.mu.Lock()
	p := exec.PhaseByName(res.name)
	p.CompletedAt = &now
	if res.err != nil {
		p.Status = StatusFailed
		p.Error = res.err.Error()
		exec.Result.Errors = append(exec.Result.Errors, fmt.Sprintf("%s: %s", res.name, res.err))
	} else {
		p.Status = StatusCompleted
		p.Result = res.output.Payload
		p.CostUSD = res.output.CostUSD
		exec.CostUSD += res.output.CostUSD
		exec.Result.Artifacts.Merge(res.output.Artifacts)
		if res.output.Payload != nil {
			exec.Result.Fields[res.name] = res.output.Payload
		}
	}
	completed := exec.PhasesCompleted()
	total := len(exec.Phases)
	totalCost := exec.CostUSD
	budget := exec.Config.MaxCostUSD
	warnBudget := budget > 0 && totalCost > budget && !st.budgetWarned
	if warnBudget {
		st.budgetWarned = true
	}
	e.mu.Unlock()

	progress := events.Percent(percentOf(completed, total))
	if res.err != nil {
		e.bus.Publish(events.Event{
			Kind:       events.KindPhaseFailed,
			WorkflowID: exec.ID,
			PhaseName:  res.name,
			Progress:   progress,
			Message:    res.err.Error(),
		})
		e.logger.Warn("phase failed",
			logging.String(logging.FieldWorkflowID, exec.ID),
			logging.String(logging.FieldPhase, res.name),
			logging.Error(res.err),
		)
		return
	}

	e.bus.Publish(events.Event{
		Kind:       events.KindPhaseCompleted,
		WorkflowID: exec.ID,
		PhaseName:  res.name,
		Progress:   progress,
		Message:    fmt.Sprintf("%s completed", res.name),
	})
	// Every completed phase folds its cost, so every completed phase gets
	// a cost event, even a free one.
	e.bus.Publish(events.Event{
		Kind:       events.KindCostUpdate,
		WorkflowID: exec.ID,
		PhaseName:  res.name,
		CostDelta:  events.Cost(res.output.CostUSD),
		Data:       map[string]any{"total_cost_usd": totalCost},
	})
	if warnBudget {
		e.bus.Publish(events.Event{
			Kind:       events.KindLogMessage,
			WorkflowID: exec.ID,
			Message:    fmt.Sprintf("cost budget exceeded: $%.2f spent of $%.2f", totalCost, budget),
		})
		e.logger.Warn("cost budget exceeded",
			logging.String(logging.FieldWorkflowID, exec.ID),
			logging.Float64("cost_usd", totalCost),
			logging.Float64("max_cost_usd", budget),
		)
	}
	e.logger.Info("phase completed",
		logging.String(logging.FieldWorkflowID, exec.ID),
		logging.String(logging.FieldPhase, res.name),
		logging.Float64("cost_usd", res.output.CostUSD),
	)
}

// finalize settles the terminal status. A workflow is Failed only when
// every phase failed; partial failure still yields Completed with the
// failures listed in the result.
func (e *Engine) finalize(st *execState) error {
	exec := st.exec

	e.mu.Lock()
	if st.cancelled {
		snapshot := snapshotOf(exec)
		e.mu.Unlock()
		e.recordHistory(snapshot)
		return nil
	}
	allFailed := len(exec.Phases) > 0
	for _, p := range exec.Phases {
		if p.Status != StatusFailed {
			allFailed = false
			break
		}
	}
	now := time.Now().UTC()
	exec.CompletedAt = &now
	if allFailed {
		exec.Status = StatusFailed
	} else {
		exec.Status = StatusCompleted
	}
	failures := append([]string(nil), exec.Result.Errors...)
	totalCost := exec.CostUSD
	snapshot := snapshotOf(exec)
	e.mu.Unlock()

	if allFailed {
		message := strings.Join(failures, "; ")
		e.bus.Publish(events.Event{
			Kind:       events.KindWorkflowFailed,
			WorkflowID: exec.ID,
			Message:    message,
		})
		e.logger.Error("workflow failed",
			logging.String(logging.FieldWorkflowID, exec.ID),
			logging.Int("failed_phases", len(failures)),
		)
		e.recordHistory(snapshot)
		return fmt.Errorf("workflow %s failed: %s", exec.ID, message)
	}

	e.bus.Publish(events.Event{
		Kind:       events.KindWorkflowCompleted,
		WorkflowID: exec.ID,
		Progress:   events.Percent(100),
		Message:    "workflow completed",
		Data: map[string]any{
			"cost_usd":      totalCost,
			"failed_phases": len(failures),
		},
	})
	e.logger.Info("workflow completed",
		logging.String(logging.FieldWorkflowID, exec.ID),
		logging.Float64("cost_usd", totalCost),
		logging.Int("failed_phases", len(failures)),
	)
	e.recordHistory(snapshot)
	return nil
}

// failFromPanic marks the workflow Failed after a scheduler panic. Phase
// body panics never reach here; they fail their own phase.
func (e *Engine) failFromPanic(st *execState, value any) error {
	exec := st.exec
	e.logger.Error("workflow scheduler panicked",
		logging.String(logging.FieldWorkflowID, exec.ID),
		logging.Any("panic", value),
		logging.String("stack", string(debug.Stack())),
	)

	e.mu.Lock()
	now := time.Now().UTC()
	exec.Status = StatusFailed
	exec.CompletedAt = &now
	exec.Result.Errors = append(exec.Result.Errors, fmt.Sprintf("internal error: %v", value))
	snapshot := snapshotOf(exec)
	e.mu.Unlock()

	e.bus.Publish(events.Event{
		Kind:       events.KindWorkflowFailed,
		WorkflowID: exec.ID,
		Message:    fmt.Sprintf("internal error: %v", value),
	})
	e.recordHistory(snapshot)
	return fmt.Errorf("workflow %s: internal error: %v", exec.ID, value)
}

func percentOf(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}

// outputsView gives phase bodies locked read access to upstream results.
type outputsView struct {
	engine *Engine
	exec   *Execution
}

func (v *outputsView) Request() phase.Request {
	cfg := v.exec.Config
	return phase.Request{
		WorkflowID: v.exec.ID,
		Topic:      cfg.Topic,
		Platforms:  append([]string(nil), cfg.Platforms...),
		Style:      cfg.Style,
		Tone:       cfg.Tone,
	}
}

func (v *outputsView) Payload(name string) (any, bool) {
	v.engine.mu.Lock()
	defer v.engine.mu.Unlock()
	p := v.exec.PhaseByName(name)
	if p == nil || p.Status != StatusCompleted {
		return nil, false
	}
	return p.Result, true
}

func (v *outputsView) Completed(name string) bool {
	v.engine.mu.Lock()
	defer v.engine.mu.Unlock()
	p := v.exec.PhaseByName(name)
	return p != nil && p.Status == StatusCompleted
}

func (v *outputsView) Failed(name string) (string, bool) {
	v.engine.mu.Lock()
	defer v.engine.mu.Unlock()
	p := v.exec.PhaseByName(name)
	if p == nil || p.Status != StatusFailed {
		return "", false
	}
	return p.Error, true
}
