package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"reelsmith/internal/api"
	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/registry"
)

type apiServer struct {
	bind    string
	logger  *slog.Logger
	daemon  *Daemon
	gateway *eventGateway

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	bind := strings.TrimSpace(cfg.APIBind)
	if bind == "" {
		return nil, errors.New("api bind address is empty")
	}

	srv := &apiServer{
		bind:    bind,
		logger:  logging.WithComponent(logger, "api-server"),
		daemon:  d,
		gateway: newEventGateway(d.bus, logger),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/workflows", srv.handleWorkflows)
	mux.HandleFunc("/api/workflows/", srv.handleWorkflow)
	mux.HandleFunc("/api/events", srv.gateway.handleGlobal)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		// No WriteTimeout: the event stream endpoints hold their
		// connections open indefinitely.
		IdleTimeout: 60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// addr returns the bound address, useful when the config asked for port 0.
func (s *apiServer) addr() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status()
	types := make([]string, len(status.WorkflowTypes))
	for i, workflowType := range status.WorkflowTypes {
		types[i] = string(workflowType)
	}
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:         status.Running,
		PID:             status.PID,
		LockFilePath:    status.LockFilePath,
		HistoryDBPath:   status.HistoryDBPath,
		ActiveWorkflows: status.ActiveWorkflows,
		Crashes:         status.Crashes,
		WorkflowTypes:   types,
	})
}

func (s *apiServer) handleWorkflows(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		listing, err := s.daemon.List(r.Context())
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, api.WorkflowListResponse{
			Active: listing.Active,
			Recent: listing.Recent,
		})
	case http.MethodPost:
		var req api.TriggerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.Topic) == "" {
			s.writeError(w, http.StatusBadRequest, "topic is required")
			return
		}
		workflowType, ok := registry.ParseWorkflowType(req.WorkflowType)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown workflow type %q", req.WorkflowType))
			return
		}
		id, err := s.daemon.Trigger(workflowType, req.Topic, req.Platforms, req.Style, req.Tone)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusAccepted, api.TriggerResponse{ID: id})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleWorkflow routes /api/workflows/{id} and /api/workflows/{id}/events.
func (s *apiServer) handleWorkflow(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/workflows/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		s.writeError(w, http.StatusNotFound, "workflow id required")
		return
	}
	if sub == "events" {
		s.gateway.handleWorkflow(w, r, id)
		return
	}
	if sub != "" {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		snapshot, found, err := s.daemon.StatusOf(r.Context(), id)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !found {
			s.writeError(w, http.StatusNotFound, fmt.Sprintf("workflow %s not found", id))
			return
		}
		s.writeJSON(w, http.StatusOK, snapshot)
	case http.MethodDelete:
		if cancelled := s.daemon.Cancel(id); !cancelled {
			s.writeError(w, http.StatusConflict, "workflow is not running")
			return
		}
		s.writeJSON(w, http.StatusOK, api.CancelResponse{Cancelled: true})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
