package workflow

import (
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"reelsmith/internal/logging"
)

// Crash records an execution goroutine that panicked past the engine's
// own recovery.
type Crash struct {
	WorkflowID string
	Value      any
	Stack      string
	At         time.Time
}

// Supervisor runs fire-and-forget execution goroutines, recovers their
// panics, and keeps the crash records queryable. Triggering a workflow
// must never take the daemon down with it.
type Supervisor struct {
	logger *slog.Logger
	wg     sync.WaitGroup

	mu      sync.Mutex
	crashes []Crash
}

func NewSupervisor(logger *slog.Logger) *Supervisor {
	return &Supervisor{logger: logging.WithComponent(logger, "supervisor")}
}

// Go runs fn on its own goroutine. A returned error is logged; a panic is
// recovered and recorded.
func (s *Supervisor) Go(workflowID string, fn func() error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				crash := Crash{
					WorkflowID: workflowID,
					Value:      r,
					Stack:      string(debug.Stack()),
					At:         time.Now().UTC(),
				}
				s.mu.Lock()
				s.crashes = append(s.crashes, crash)
				s.mu.Unlock()
				s.logger.Error("execution goroutine crashed",
					logging.String(logging.FieldWorkflowID, workflowID),
					logging.Any("panic", r),
					logging.String("stack", crash.Stack),
				)
			}
		}()
		if err := fn(); err != nil {
			s.logger.Warn("execution finished with error",
				logging.String(logging.FieldWorkflowID, workflowID),
				logging.Error(err),
			)
		}
	}()
}

// Crashes returns a copy of all recorded crashes.
func (s *Supervisor) Crashes() []Crash {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Crash(nil), s.crashes...)
}

// Wait blocks until every goroutine started via Go has returned.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}
