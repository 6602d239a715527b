package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grading-api/internal/observability"
)

const compensationTimeout = 30 * time.Second

type compensation struct {
	name string
	run  func(ctx context.Context) error
}

// compensationScope holds undo actions for side effects that must not outlive a
// failed operation. Actions run in reverse registration order, at most once,
// unless the scope was committed.
type compensationScope struct {
	mu        sync.Mutex
	actions   []compensation
	committed bool
	finished  bool
	logger    zerolog.Logger
}

func newCompensationScope(logger zerolog.Logger) *compensationScope {
	return &compensationScope{logger: logger}
}

// Register adds an undo action.
func (s *compensationScope) Register(name string, run func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = append(s.actions, compensation{name: name, run: run})
}

// Commit marks the guarded side effects as owned by a durable record.
func (s *compensationScope) Commit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed = true
}

// Close runs the undo actions unless the scope was committed. Failures are
// logged and never returned. Request cancellation does not stop compensation.
func (s *compensationScope) Close(ctx context.Context, reason string) {
	s.mu.Lock()
	if s.committed || s.finished {
		s.mu.Unlock()
		return
	}
	s.finished = true
	actions := s.actions
	s.mu.Unlock()

	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	for i := len(actions) - 1; i >= 0; i-- {
		action := actions[i]
		if err := action.run(detached); err != nil {
			observability.Compensations().WithLabelValues(reason, "error").Inc()
			s.logger.Error().Err(err).Str("action", action.name).Str("reason", reason).Msg("compensation failed")
			continue
		}
		observability.Compensations().WithLabelValues(reason, "ok").Inc()
		s.logger.Info().Str("action", action.name).Str("reason", reason).Msg("compensation applied")
	}
}
