package events_test

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"reelsmith/internal/events"
	"reelsmith/internal/logging"
)

func publishN(bus *events.Bus, workflowID string, n int) {
	for i := 0; i < n; i++ {
		bus.Publish(events.Event{
			Kind:       events.KindProgressUpdate,
			WorkflowID: workflowID,
			Message:    fmt.Sprintf("event-%d", i),
		})
	}
}

func TestSubscribeReplaysRecentHistory(t *testing.T) {
	bus := events.NewBus(logging.NewNop())
	publishN(bus, "wf-1", 25)

	var got []events.Event
	bus.Subscribe("wf-1", func(evt events.Event) {
		got = append(got, evt)
	})

	if len(got) != 10 {
		t.Fatalf("expected 10 replayed events, got %d", len(got))
	}
	if got[0].Message != "event-15" || got[9].Message != "event-24" {
		t.Fatalf("unexpected replay window: first=%s last=%s", got[0].Message, got[9].Message)
	}
}

func TestSubscribeReplaysFewerWhenHistoryShort(t *testing.T) {
	bus := events.NewBus(logging.NewNop())
	publishN(bus, "wf-1", 5)

	var got []events.Event
	bus.Subscribe("wf-1", func(evt events.Event) {
		got = append(got, evt)
	})
	if len(got) != 5 {
		t.Fatalf("expected 5 replayed events, got %d", len(got))
	}
	bus.Publish(events.Event{Kind: events.KindProgressUpdate, WorkflowID: "wf-1", Message: "live"})
	if len(got) != 6 || got[5].Message != "live" {
		t.Fatalf("expected live delivery after replay, got %d events", len(got))
	}
}

func TestReplayNotOvertakenByConcurrentPublish(t *testing.T) {
	bus := events.NewBus(logging.NewNop())
	publishN(bus, "wf-1", 5)

	var mu sync.Mutex
	var order []string
	started := make(chan struct{})
	gate := make(chan struct{})
	published := make(chan struct{})
	var once sync.Once

	// The publisher fires as soon as the first replayed event is being
	// handled, while the callback stalls mid-replay.
	go func() {
		<-started
		bus.Publish(events.Event{
			Kind:       events.KindProgressUpdate,
			WorkflowID: "wf-1",
			Message:    "event-5",
		})
		close(published)
	}()
	go func() {
		<-started
		time.Sleep(20 * time.Millisecond)
		close(gate)
	}()

	bus.Subscribe("wf-1", func(evt events.Event) {
		mu.Lock()
		order = append(order, evt.Message)
		mu.Unlock()
		once.Do(func() {
			close(started)
			<-gate
		})
	})
	<-published

	mu.Lock()
	defer mu.Unlock()
	want := []string{"event-0", "event-1", "event-2", "event-3", "event-4", "event-5"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Fatalf("live event overtook replay: got %v, want %v", order, want)
	}
}

func TestHistoryCapEvictsOldest(t *testing.T) {
	bus := events.NewBus(logging.NewNop())
	publishN(bus, "wf-1", 150)

	history := bus.HistoryOf("wf-1", 0)
	if len(history) != 100 {
		t.Fatalf("expected history capped at 100, got %d", len(history))
	}
	if history[0].Message != "event-50" {
		t.Errorf("expected oldest retained event-50, got %s", history[0].Message)
	}
	if history[99].Message != "event-149" {
		t.Errorf("expected newest event-149, got %s", history[99].Message)
	}
}

func TestHistoryOfUnknownWorkflow(t *testing.T) {
	bus := events.NewBus(logging.NewNop())
	if history := bus.HistoryOf("missing", 10); len(history) != 0 {
		t.Fatalf("expected empty history, got %d events", len(history))
	}
}

func TestHistoryOfLimit(t *testing.T) {
	bus := events.NewBus(logging.NewNop())
	publishN(bus, "wf-1", 20)
	history := bus.HistoryOf("wf-1", 3)
	if len(history) != 3 {
		t.Fatalf("expected 3 events, got %d", len(history))
	}
	if history[2].Message != "event-19" {
		t.Errorf("expected newest event last, got %s", history[2].Message)
	}
}

func TestGlobalSubscriberGetsNoReplay(t *testing.T) {
	bus := events.NewBus(logging.NewNop())
	publishN(bus, "wf-1", 5)

	var got []events.Event
	bus.SubscribeGlobal(func(evt events.Event) {
		got = append(got, evt)
	})
	if len(got) != 0 {
		t.Fatalf("expected no replay for global subscriber, got %d", len(got))
	}

	bus.Publish(events.Event{Kind: events.KindLogMessage, WorkflowID: "wf-2", Message: "hello"})
	if len(got) != 1 || got[0].WorkflowID != "wf-2" {
		t.Fatalf("expected live event for global subscriber, got %#v", got)
	}
}

func TestScopedSubscriberOnlySeesItsWorkflow(t *testing.T) {
	bus := events.NewBus(logging.NewNop())

	var got []events.Event
	bus.Subscribe("wf-1", func(evt events.Event) {
		got = append(got, evt)
	})
	bus.Publish(events.Event{Kind: events.KindLogMessage, WorkflowID: "wf-2"})
	bus.Publish(events.Event{Kind: events.KindLogMessage, WorkflowID: "wf-1"})
	if len(got) != 1 || got[0].WorkflowID != "wf-1" {
		t.Fatalf("expected only wf-1 events, got %#v", got)
	}
}

func TestPanickingSubscriberIsIsolated(t *testing.T) {
	bus := events.NewBus(logging.NewNop())

	var healthy int
	bus.Subscribe("wf-1", func(events.Event) {
		panic("boom")
	})
	bus.Subscribe("wf-1", func(events.Event) {
		healthy++
	})

	publishN(bus, "wf-1", 10)
	if healthy != 10 {
		t.Fatalf("healthy subscriber received %d of 10 events", healthy)
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	bus := events.NewBus(logging.NewNop())

	var count int
	sub := bus.Subscribe("wf-1", func(events.Event) { count++ })
	bus.Unsubscribe(sub)
	bus.Unsubscribe(sub)
	bus.Unsubscribe(nil)

	bus.Publish(events.Event{Kind: events.KindLogMessage, WorkflowID: "wf-1"})
	if count != 0 {
		t.Fatalf("expected no delivery after unsubscribe, got %d", count)
	}
}

func TestSubscriberCount(t *testing.T) {
	bus := events.NewBus(logging.NewNop())
	bus.Subscribe("wf-1", func(events.Event) {})
	bus.Subscribe("wf-1", func(events.Event) {})
	bus.SubscribeGlobal(func(events.Event) {})
	if got := bus.SubscriberCount("wf-1"); got != 3 {
		t.Fatalf("expected 3 subscribers, got %d", got)
	}
	if got := bus.SubscriberCount("wf-2"); got != 1 {
		t.Fatalf("expected 1 subscriber for other workflow, got %d", got)
	}
}

func TestPublishStampsTimestamp(t *testing.T) {
	bus := events.NewBus(logging.NewNop())
	bus.Publish(events.Event{Kind: events.KindLogMessage, WorkflowID: "wf-1"})
	history := bus.HistoryOf("wf-1", 1)
	if len(history) != 1 || history[0].Timestamp.IsZero() {
		t.Fatal("expected publish to stamp a timestamp")
	}
}
