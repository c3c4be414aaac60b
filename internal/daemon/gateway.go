package daemon

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"reelsmith/internal/events"
	"reelsmith/internal/logging"
)

// streamBuffer bounds how many events a slow client can fall behind
// before the gateway drops events for it.
const streamBuffer = 64

const keepaliveInterval = 15 * time.Second

// eventGateway exposes the in-process event bus over server-sent events.
// Workflow-scoped streams replay buffered history before going live;
// the global stream starts at the present.
type eventGateway struct {
	bus    *events.Bus
	logger *slog.Logger
}

func newEventGateway(bus *events.Bus, logger *slog.Logger) *eventGateway {
	return &eventGateway{
		bus:    bus,
		logger: logging.WithComponent(logger, "event-gateway"),
	}
}

func (g *eventGateway) handleGlobal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	g.stream(w, r, "")
}

func (g *eventGateway) handleWorkflow(w http.ResponseWriter, r *http.Request, workflowID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	g.stream(w, r, workflowID)
}

func (g *eventGateway) stream(w http.ResponseWriter, r *http.Request, workflowID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := make(chan events.Event, streamBuffer)
	callback := func(evt events.Event) {
		select {
		case ch <- evt:
		default:
			// Dropping beats blocking the publisher on a stalled client.
		}
	}
	var sub *events.Subscription
	if workflowID == "" {
		sub = g.bus.SubscribeGlobal(callback)
	} else {
		sub = g.bus.Subscribe(workflowID, callback)
	}
	defer g.bus.Unsubscribe(sub)

	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-ch:
			if err := writeEvent(w, evt); err != nil {
				g.logger.Debug("event stream write failed",
					logging.String(logging.FieldWorkflowID, workflowID),
					logging.Error(err),
				)
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, evt events.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Kind, data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}
