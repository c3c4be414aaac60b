package events

import (
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"reelsmith/internal/logging"
)

const (
	// historyCap bounds the per-workflow ring buffer.
	historyCap = 100
	// replayCount is how many buffered events a new workflow-scoped
	// subscriber receives before live delivery begins.
	replayCount = 10
)

// Callback receives published events. Callbacks run on the publisher's
// goroutine and should hand off quickly; a panicking callback is isolated
// and never affects other subscribers or the publisher.
type Callback func(Event)

// Subscription identifies a registered callback for later removal.
type Subscription struct {
	id         uint64
	workflowID string
	global     bool
}

// Bus is the in-process progress event broadcaster.
type Bus struct {
	logger *slog.Logger

	mu      sync.Mutex
	nextID  uint64
	history map[string][]Event
	scoped  map[string]map[uint64]Callback
	global  map[uint64]Callback
}

// NewBus constructs an empty bus. A nil logger disables callback-failure
// logging.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		logger:  logging.WithComponent(logger, "event-bus"),
		history: make(map[string][]Event),
		scoped:  make(map[string]map[uint64]Callback),
		global:  make(map[uint64]Callback),
	}
}

// Subscribe registers a callback for one workflow and synchronously
// replays up to the last 10 buffered events for it before returning.
// Registration and replay share the bus lock, so a Publish racing the
// subscription is delivered after the replayed history, never before or
// interleaved with it. Callbacks must not call back into the bus during
// replay.
func (b *Bus) Subscribe(workflowID string, cb Callback) *Subscription {
	if cb == nil {
		return &Subscription{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscription{id: b.nextID, workflowID: workflowID}
	set, ok := b.scoped[workflowID]
	if !ok {
		set = make(map[uint64]Callback)
		b.scoped[workflowID] = set
	}
	set[sub.id] = cb

	if buffered := b.history[workflowID]; len(buffered) > 0 {
		start := len(buffered) - replayCount
		if start < 0 {
			start = 0
		}
		for _, evt := range buffered[start:] {
			b.invoke(cb, evt)
		}
	}
	return sub
}

// SubscribeGlobal registers a callback for every workflow. Global
// subscribers receive no replay, only events from this point forward.
func (b *Bus) SubscribeGlobal(cb Callback) *Subscription {
	if cb == nil {
		return &Subscription{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscription{id: b.nextID, global: true}
	b.global[sub.id] = cb
	return sub
}

// Unsubscribe removes a subscription. Unknown or already-removed
// subscriptions are a no-op.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil || sub.id == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub.global {
		delete(b.global, sub.id)
		return
	}
	if set, ok := b.scoped[sub.workflowID]; ok {
		delete(set, sub.id)
		if len(set) == 0 {
			delete(b.scoped, sub.workflowID)
		}
	}
}

// Publish appends the event to the workflow's ring buffer, evicting the
// oldest entry past capacity, then delivers it to every matching scoped
// callback and every global callback.
//
// Per-workflow FIFO ordering holds because each workflow's events are
// published from its single scheduler goroutine.
func (b *Bus) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	b.mu.Lock()
	buffered := b.history[evt.WorkflowID]
	if len(buffered) == historyCap {
		copy(buffered, buffered[1:])
		buffered = buffered[:historyCap-1]
	}
	b.history[evt.WorkflowID] = append(buffered, evt)

	callbacks := make([]Callback, 0, len(b.scoped[evt.WorkflowID])+len(b.global))
	for _, cb := range b.scoped[evt.WorkflowID] {
		callbacks = append(callbacks, cb)
	}
	for _, cb := range b.global {
		callbacks = append(callbacks, cb)
	}
	b.mu.Unlock()

	for _, cb := range callbacks {
		b.invoke(cb, evt)
	}
}

// HistoryOf returns up to limit buffered events for a workflow in
// chronological order. An unknown workflow yields an empty slice.
func (b *Bus) HistoryOf(workflowID string, limit int) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	buffered := b.history[workflowID]
	if len(buffered) == 0 {
		return nil
	}
	if limit <= 0 || limit > len(buffered) {
		limit = len(buffered)
	}
	out := make([]Event, limit)
	copy(out, buffered[len(buffered)-limit:])
	return out
}

// SubscriberCount reports registered callbacks for a workflow plus globals.
func (b *Bus) SubscriberCount(workflowID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.scoped[workflowID]) + len(b.global)
}

func (b *Bus) invoke(cb Callback, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("subscriber callback panicked",
				logging.String(logging.FieldWorkflowID, evt.WorkflowID),
				logging.String(logging.FieldEventKind, string(evt.Kind)),
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
			)
		}
	}()
	cb(evt)
}
