package workflow_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"reelsmith/internal/events"
	"reelsmith/internal/logging"
	"reelsmith/internal/phase"
	"reelsmith/internal/registry"
	"reelsmith/internal/workflow"
)

const testType registry.WorkflowType = "quick_generate"

func newEngine(t *testing.T, specs []registry.PhaseSpec, bodies phase.Set, sink workflow.HistorySink) (*workflow.Engine, *events.Bus) {
	t.Helper()
	graphs, err := registry.New(map[registry.WorkflowType][]registry.PhaseSpec{testType: specs})
	if err != nil {
		t.Fatalf("registry.New failed: %v", err)
	}
	bus := events.NewBus(logging.NewNop())
	return workflow.NewEngine(logging.NewNop(), bus, graphs, bodies, sink), bus
}

func succeed(payload any, cost float64, artifacts phase.Artifacts) phase.Func {
	return func(context.Context, phase.Outputs) (phase.Output, error) {
		return phase.Output{Payload: payload, CostUSD: cost, Artifacts: artifacts}, nil
	}
}

func fail(message string) phase.Func {
	return func(context.Context, phase.Outputs) (phase.Output, error) {
		return phase.Output{}, errors.New(message)
	}
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) record(evt events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *eventRecorder) ofKind(kind events.Kind) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []events.Event
	for _, evt := range r.events {
		if evt.Kind == kind {
			matched = append(matched, evt)
		}
	}
	return matched
}

type memorySink struct {
	mu        sync.Mutex
	snapshots []workflow.Snapshot
}

func (s *memorySink) Record(snapshot workflow.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, snapshot)
	return nil
}

func phaseByName(t *testing.T, snapshot workflow.Snapshot, name string) workflow.PhaseSnapshot {
	t.Helper()
	for _, p := range snapshot.Phases {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("phase %s not found in snapshot", name)
	return workflow.PhaseSnapshot{}
}

func TestExecuteRunsPhasesInDependencyOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	observe := func(name string) phase.Func {
		return func(context.Context, phase.Outputs) (phase.Output, error) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return phase.Output{}, nil
		}
	}
	engine, _ := newEngine(t, []registry.PhaseSpec{
		{Name: "a"},
		{Name: "b", DependsOn: []string{"a"}},
		{Name: "c", DependsOn: []string{"b"}},
	}, phase.Set{"a": observe("a"), "b": observe("b"), "c": observe("c")}, nil)

	id, err := engine.Create(workflow.Config{Topic: "ordering", Type: testType})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := engine.Execute(context.Background(), id); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if strings.Join(order, ",") != "a,b,c" {
		t.Fatalf("expected a,b,c execution order, got %v", order)
	}
	snapshot, _ := engine.StatusOf(id)
	if snapshot.Status != workflow.StatusCompleted {
		t.Fatalf("expected completed, got %s", snapshot.Status)
	}
}

func TestParallelPhasesMergeArtifacts(t *testing.T) {
	release := make(chan struct{})
	blocking := func(paths phase.Artifacts) phase.Func {
		return func(ctx context.Context, _ phase.Outputs) (phase.Output, error) {
			<-release
			return phase.Output{Artifacts: paths}, nil
		}
	}
	engine, _ := newEngine(t, []registry.PhaseSpec{
		{Name: "root"},
		{Name: "left", DependsOn: []string{"root"}},
		{Name: "right", DependsOn: []string{"root"}},
		{Name: "join", DependsOn: []string{"left", "right"}, Barrier: true},
	}, phase.Set{
		"root":  succeed(nil, 0, phase.Artifacts{}),
		"left":  blocking(phase.Artifacts{ImagePaths: []string{"left.png"}}),
		"right": blocking(phase.Artifacts{ImagePaths: []string{"right.png"}, StockPaths: []string{"clip.mp4"}}),
		"join":  succeed(nil, 0, phase.Artifacts{}),
	}, nil)

	id, err := engine.Create(workflow.Config{Topic: "merge", Type: testType})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	close(release)
	if err := engine.Execute(context.Background(), id); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	snapshot, _ := engine.StatusOf(id)
	images := snapshot.Result.Artifacts.ImagePaths
	if len(images) != 2 {
		t.Fatalf("expected both image paths merged, got %v", images)
	}
	found := map[string]bool{}
	for _, path := range images {
		found[path] = true
	}
	if !found["left.png"] || !found["right.png"] {
		t.Fatalf("concurrent artifact lost: %v", images)
	}
	if len(snapshot.Result.Artifacts.StockPaths) != 1 {
		t.Fatalf("expected stock path preserved, got %v", snapshot.Result.Artifacts.StockPaths)
	}
}

func TestFailedDependencyDoesNotBlockDownstream(t *testing.T) {
	var sawFailure string
	engine, _ := newEngine(t, []registry.PhaseSpec{
		{Name: "flaky"},
		{Name: "after", DependsOn: []string{"flaky"}},
	}, phase.Set{
		"flaky": fail("upstream broke"),
		"after": func(_ context.Context, outputs phase.Outputs) (phase.Output, error) {
			if message, failed := outputs.Failed("flaky"); failed {
				sawFailure = message
			}
			return phase.Output{Payload: "ran"}, nil
		},
	}, nil)

	id, err := engine.Create(workflow.Config{Topic: "resilience", Type: testType})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := engine.Execute(context.Background(), id); err != nil {
		t.Fatalf("Execute should not fail on partial failure: %v", err)
	}

	snapshot, _ := engine.StatusOf(id)
	if snapshot.Status != workflow.StatusCompleted {
		t.Fatalf("expected completed with partial failure, got %s", snapshot.Status)
	}
	if phaseByName(t, snapshot, "after").Status != workflow.StatusCompleted {
		t.Error("downstream phase should have run after upstream failure")
	}
	if sawFailure != "upstream broke" {
		t.Errorf("downstream should observe upstream failure, got %q", sawFailure)
	}
	if len(snapshot.Result.Errors) != 1 || !strings.Contains(snapshot.Result.Errors[0], "upstream broke") {
		t.Errorf("expected failure recorded in result, got %v", snapshot.Result.Errors)
	}
}

func TestAllPhasesFailedMarksWorkflowFailed(t *testing.T) {
	engine, bus := newEngine(t, []registry.PhaseSpec{
		{Name: "one"},
		{Name: "two", DependsOn: []string{"one"}},
	}, phase.Set{
		"one": fail("first error"),
		"two": fail("second error"),
	}, nil)

	recorder := &eventRecorder{}
	bus.SubscribeGlobal(recorder.record)

	id, err := engine.Create(workflow.Config{Topic: "doomed", Type: testType})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	execErr := engine.Execute(context.Background(), id)
	if execErr == nil {
		t.Fatal("expected Execute to return an error when all phases fail")
	}
	if !strings.Contains(execErr.Error(), "first error") || !strings.Contains(execErr.Error(), "second error") {
		t.Errorf("expected both failures in error, got %v", execErr)
	}

	snapshot, _ := engine.StatusOf(id)
	if snapshot.Status != workflow.StatusFailed {
		t.Fatalf("expected failed, got %s", snapshot.Status)
	}
	if got := recorder.ofKind(events.KindWorkflowFailed); len(got) != 1 {
		t.Errorf("expected one workflow_failed event, got %d", len(got))
	}
}

func TestOutputsPayloadVisibleDownstream(t *testing.T) {
	engine, _ := newEngine(t, []registry.PhaseSpec{
		{Name: "producer"},
		{Name: "consumer", DependsOn: []string{"producer"}},
	}, phase.Set{
		"producer": succeed("the goods", 0, phase.Artifacts{}),
		"consumer": func(_ context.Context, outputs phase.Outputs) (phase.Output, error) {
			payload, ok := outputs.Payload("producer")
			if !ok {
				return phase.Output{}, errors.New("producer payload missing")
			}
			if !outputs.Completed("producer") {
				return phase.Output{}, errors.New("producer not marked completed")
			}
			return phase.Output{Payload: payload.(string) + " consumed"}, nil
		},
	}, nil)

	id, err := engine.Create(workflow.Config{Topic: "handoff", Type: testType})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := engine.Execute(context.Background(), id); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	snapshot, _ := engine.StatusOf(id)
	if snapshot.Result.Fields["consumer"] != "the goods consumed" {
		t.Fatalf("unexpected consumer payload: %v", snapshot.Result.Fields["consumer"])
	}
}

func TestCancelStopsPendingDispatch(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	engine, bus := newEngine(t, []registry.PhaseSpec{
		{Name: "slow"},
		{Name: "never", DependsOn: []string{"slow"}},
	}, phase.Set{
		"slow": func(context.Context, phase.Outputs) (phase.Output, error) {
			close(started)
			<-release
			return phase.Output{Payload: "slow done"}, nil
		},
		"never": succeed(nil, 0, phase.Artifacts{}),
	}, nil)

	recorder := &eventRecorder{}
	bus.SubscribeGlobal(recorder.record)

	id, err := engine.Create(workflow.Config{Topic: "cancel me", Type: testType})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- engine.Execute(context.Background(), id) }()

	<-started
	if !engine.Cancel(id) {
		t.Fatal("first cancel should succeed")
	}
	if engine.Cancel(id) {
		t.Error("second cancel should report false")
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Execute after cancel returned error: %v", err)
	}

	snapshot, _ := engine.StatusOf(id)
	if snapshot.Status != workflow.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", snapshot.Status)
	}
	if phaseByName(t, snapshot, "slow").Status != workflow.StatusCompleted {
		t.Error("running phase should finish after cancellation")
	}
	if phaseByName(t, snapshot, "never").Status != workflow.StatusPending {
		t.Error("pending phase should not dispatch after cancellation")
	}
	if got := recorder.ofKind(events.KindWorkflowCancelled); len(got) != 1 {
		t.Errorf("expected exactly one workflow_cancelled event, got %d", len(got))
	}
	if got := recorder.ofKind(events.KindWorkflowCompleted); len(got) != 0 {
		t.Errorf("cancelled workflow must not also complete, got %d completion events", len(got))
	}
}

func TestCancelUnknownAndTerminal(t *testing.T) {
	engine, _ := newEngine(t, []registry.PhaseSpec{{Name: "only"}},
		phase.Set{"only": succeed(nil, 0, phase.Artifacts{})}, nil)

	if engine.Cancel("nope") {
		t.Error("cancel of unknown workflow should report false")
	}
	id, err := engine.Create(workflow.Config{Topic: "done", Type: testType})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := engine.Execute(context.Background(), id); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if engine.Cancel(id) {
		t.Error("cancel of terminal workflow should report false")
	}
}

func TestCancelPendingReturnsFalse(t *testing.T) {
	engine, bus := newEngine(t, []registry.PhaseSpec{{Name: "only"}},
		phase.Set{"only": succeed(nil, 0, phase.Artifacts{})}, nil)

	recorder := &eventRecorder{}
	bus.SubscribeGlobal(recorder.record)

	id, err := engine.Create(workflow.Config{Topic: "not yet", Type: testType})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if engine.Cancel(id) {
		t.Fatal("cancel of a pending execution should report false")
	}
	snapshot, _ := engine.StatusOf(id)
	if snapshot.Status != workflow.StatusPending {
		t.Fatalf("pending execution should stay pending, got %s", snapshot.Status)
	}
	if got := recorder.ofKind(events.KindWorkflowCancelled); len(got) != 0 {
		t.Errorf("rejected cancel must not emit events, got %d", len(got))
	}

	// The execution is untouched and still runs normally.
	if err := engine.Execute(context.Background(), id); err != nil {
		t.Fatalf("Execute after rejected cancel failed: %v", err)
	}
	snapshot, _ = engine.StatusOf(id)
	if snapshot.Status != workflow.StatusCompleted {
		t.Fatalf("expected completed, got %s", snapshot.Status)
	}
}

func TestCancelDuringStartingWindow(t *testing.T) {
	engine, bus := newEngine(t, []registry.PhaseSpec{{Name: "only"}},
		phase.Set{"only": succeed(nil, 0, phase.Artifacts{})}, nil)

	id, err := engine.Create(workflow.Config{Topic: "early cancel", Type: testType})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// The started announcement is published while the execution is still
	// Starting, so a subscriber reacting to it cancels inside that window.
	recorder := &eventRecorder{}
	var statusAtStart workflow.Status
	var cancelled bool
	bus.SubscribeGlobal(func(evt events.Event) {
		recorder.record(evt)
		if evt.Kind == events.KindWorkflowStarted {
			snapshot, _ := engine.StatusOf(id)
			statusAtStart = snapshot.Status
			cancelled = engine.Cancel(id)
		}
	})

	if err := engine.Execute(context.Background(), id); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if statusAtStart != workflow.StatusStarting {
		t.Errorf("expected starting status at announcement, got %s", statusAtStart)
	}
	if !cancelled {
		t.Error("cancel during the starting window should succeed")
	}
	snapshot, _ := engine.StatusOf(id)
	if snapshot.Status != workflow.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", snapshot.Status)
	}
	if phaseByName(t, snapshot, "only").Status != workflow.StatusPending {
		t.Error("no phase should dispatch after a starting-window cancel")
	}
	if got := recorder.ofKind(events.KindWorkflowCancelled); len(got) != 1 {
		t.Errorf("expected exactly one workflow_cancelled event, got %d", len(got))
	}
}

func TestZeroCostPhaseEmitsCostUpdate(t *testing.T) {
	engine, bus := newEngine(t, []registry.PhaseSpec{{Name: "free"}},
		phase.Set{"free": succeed(nil, 0, phase.Artifacts{})}, nil)

	recorder := &eventRecorder{}
	bus.SubscribeGlobal(recorder.record)

	id, err := engine.Create(workflow.Config{Topic: "free lunch", Type: testType})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := engine.Execute(context.Background(), id); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	costEvents := recorder.ofKind(events.KindCostUpdate)
	if len(costEvents) != 1 {
		t.Fatalf("expected one cost_update event, got %d", len(costEvents))
	}
	if delta := costEvents[0].CostDelta; delta == nil || *delta != 0 {
		t.Errorf("expected zero cost delta, got %v", delta)
	}
}

func TestPhaseTimeoutFailsPhase(t *testing.T) {
	engine, _ := newEngine(t, []registry.PhaseSpec{{Name: "stuck"}},
		phase.Set{
			"stuck": func(ctx context.Context, _ phase.Outputs) (phase.Output, error) {
				<-ctx.Done()
				return phase.Output{}, ctx.Err()
			},
		}, nil)

	id, err := engine.Create(workflow.Config{Topic: "timeout", Type: testType, Timeout: 25 * time.Millisecond})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	// The only phase fails, so the workflow fails.
	if err := engine.Execute(context.Background(), id); err == nil {
		t.Fatal("expected timeout failure")
	}
	snapshot, _ := engine.StatusOf(id)
	stuck := phaseByName(t, snapshot, "stuck")
	if stuck.Status != workflow.StatusFailed {
		t.Fatalf("expected failed phase, got %s", stuck.Status)
	}
	if !strings.Contains(stuck.Error, "timed out") {
		t.Errorf("expected timeout error, got %q", stuck.Error)
	}
}

func TestPanickingBodyFailsOnlyItsPhase(t *testing.T) {
	engine, _ := newEngine(t, []registry.PhaseSpec{
		{Name: "bomb"},
		{Name: "steady"},
	}, phase.Set{
		"bomb": func(context.Context, phase.Outputs) (phase.Output, error) {
			panic("kaboom")
		},
		"steady": succeed("fine", 0, phase.Artifacts{}),
	}, nil)

	id, err := engine.Create(workflow.Config{Topic: "panic", Type: testType})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := engine.Execute(context.Background(), id); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	snapshot, _ := engine.StatusOf(id)
	if snapshot.Status != workflow.StatusCompleted {
		t.Fatalf("expected completed, got %s", snapshot.Status)
	}
	bomb := phaseByName(t, snapshot, "bomb")
	if bomb.Status != workflow.StatusFailed || !strings.Contains(bomb.Error, "kaboom") {
		t.Errorf("expected panic recorded on phase, got %+v", bomb)
	}
}

func TestCostAccumulationAndEvents(t *testing.T) {
	engine, bus := newEngine(t, []registry.PhaseSpec{
		{Name: "cheap"},
		{Name: "pricey", DependsOn: []string{"cheap"}},
	}, phase.Set{
		"cheap":  succeed(nil, 0.25, phase.Artifacts{}),
		"pricey": succeed(nil, 1.75, phase.Artifacts{}),
	}, nil)

	recorder := &eventRecorder{}
	bus.SubscribeGlobal(recorder.record)

	id, err := engine.Create(workflow.Config{Topic: "spend", Type: testType, MaxCostUSD: 1})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := engine.Execute(context.Background(), id); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	snapshot, _ := engine.StatusOf(id)
	if snapshot.CostUSD != 2.0 {
		t.Errorf("expected total cost 2.0, got %f", snapshot.CostUSD)
	}
	costEvents := recorder.ofKind(events.KindCostUpdate)
	if len(costEvents) != 2 {
		t.Fatalf("expected two cost_update events, got %d", len(costEvents))
	}
	if delta := costEvents[0].CostDelta; delta == nil || *delta != 0.25 {
		t.Errorf("unexpected first cost delta: %v", delta)
	}
	var budgetWarned bool
	for _, evt := range recorder.ofKind(events.KindLogMessage) {
		if strings.Contains(evt.Message, "budget") {
			budgetWarned = true
		}
	}
	if !budgetWarned {
		t.Error("expected a budget warning after exceeding max cost")
	}
}

func TestProgressEventsAdvance(t *testing.T) {
	engine, bus := newEngine(t, []registry.PhaseSpec{
		{Name: "a"},
		{Name: "b", DependsOn: []string{"a"}},
	}, phase.Set{
		"a": succeed(nil, 0, phase.Artifacts{}),
		"b": succeed(nil, 0, phase.Artifacts{}),
	}, nil)

	recorder := &eventRecorder{}
	bus.SubscribeGlobal(recorder.record)

	id, err := engine.Create(workflow.Config{Topic: "progress", Type: testType})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := engine.Execute(context.Background(), id); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	completions := recorder.ofKind(events.KindPhaseCompleted)
	if len(completions) != 2 {
		t.Fatalf("expected two phase_completed events, got %d", len(completions))
	}
	first, second := completions[0].Progress, completions[1].Progress
	if first == nil || second == nil || *first != 50 || *second != 100 {
		t.Errorf("expected progress 50 then 100, got %v %v", first, second)
	}
	finished := recorder.ofKind(events.KindWorkflowCompleted)
	if len(finished) != 1 || finished[0].Progress == nil || *finished[0].Progress != 100 {
		t.Errorf("expected workflow_completed at 100%%, got %+v", finished)
	}
}

func TestHistorySinkReceivesTerminalSnapshot(t *testing.T) {
	sink := &memorySink{}
	engine, _ := newEngine(t, []registry.PhaseSpec{{Name: "only"}},
		phase.Set{"only": succeed("payload", 0.5, phase.Artifacts{})}, sink)

	id, err := engine.Create(workflow.Config{Topic: "persist", Type: testType})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := engine.Execute(context.Background(), id); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if len(sink.snapshots) != 1 {
		t.Fatalf("expected one recorded snapshot, got %d", len(sink.snapshots))
	}
	recorded := sink.snapshots[0]
	if recorded.ID != id || recorded.Status != workflow.StatusCompleted {
		t.Errorf("unexpected recorded snapshot: %+v", recorded)
	}
	if recorded.PhasesCompleted != 1 || recorded.TotalPhases != 1 {
		t.Errorf("unexpected phase counts: %d/%d", recorded.PhasesCompleted, recorded.TotalPhases)
	}
}

func TestCreateErrors(t *testing.T) {
	engine, _ := newEngine(t, []registry.PhaseSpec{{Name: "only"}},
		phase.Set{"only": succeed(nil, 0, phase.Artifacts{})}, nil)

	if _, err := engine.Create(workflow.Config{Type: "unknown_type"}); !errors.Is(err, registry.ErrUnknownWorkflowType) {
		t.Errorf("expected ErrUnknownWorkflowType, got %v", err)
	}

	empty, _ := newEngine(t, []registry.PhaseSpec{{Name: "only"}}, phase.Set{}, nil)
	if _, err := empty.Create(workflow.Config{Type: testType}); !errors.Is(err, workflow.ErrMissingPhaseBody) {
		t.Errorf("expected ErrMissingPhaseBody, got %v", err)
	}
}

func TestExecuteTwiceFails(t *testing.T) {
	engine, _ := newEngine(t, []registry.PhaseSpec{{Name: "only"}},
		phase.Set{"only": succeed(nil, 0, phase.Artifacts{})}, nil)
	id, err := engine.Create(workflow.Config{Topic: "twice", Type: testType})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := engine.Execute(context.Background(), id); err != nil {
		t.Fatalf("first Execute failed: %v", err)
	}
	if err := engine.Execute(context.Background(), id); !errors.Is(err, workflow.ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestPruneTerminalKeepsNewest(t *testing.T) {
	engine, _ := newEngine(t, []registry.PhaseSpec{{Name: "only"}},
		phase.Set{"only": succeed(nil, 0, phase.Artifacts{})}, nil)

	var ids []string
	for i := 0; i < 5; i++ {
		id, err := engine.Create(workflow.Config{Topic: "prune", Type: testType})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if err := engine.Execute(context.Background(), id); err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		ids = append(ids, id)
	}

	engine.PruneTerminal(2)
	if _, ok := engine.StatusOf(ids[0]); ok {
		t.Error("oldest terminal execution should be pruned")
	}
	for _, id := range ids[3:] {
		if _, ok := engine.StatusOf(id); !ok {
			t.Errorf("execution %s should survive pruning", id)
		}
	}
	if got := len(engine.Snapshots()); got != 2 {
		t.Errorf("expected 2 snapshots after prune, got %d", got)
	}
}
