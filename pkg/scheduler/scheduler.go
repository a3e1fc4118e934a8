// pkg/scheduler/scheduler.go
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/geodir/ingress/pkg/importer"
	"github.com/geodir/ingress/pkg/model"
	"github.com/geodir/ingress/pkg/store"
)

// State represents what the scheduler is currently doing.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateStopped State = "stopped"
)

// RefreshResult records the outcome of one scheduled import run.
type RefreshResult struct {
	ImportID   string
	SourceName string
	State      model.ImportState
	Err        error
	Duration   time.Duration
}

// Scheduler periodically refreshes dynamic imports whose next refresh date
// has passed. Runs execute one at a time: import runs share the store's
// staged working set, so two concurrent runs would flush and clear each
// other's writes.
type Scheduler struct {
	store        store.Store
	orchestrator *importer.Orchestrator
	logger       *zap.Logger
	interval     time.Duration

	stateMu sync.RWMutex
	state   State
}

// NewScheduler creates a scheduler polling at the default interval.
func NewScheduler(st store.Store, orch *importer.Orchestrator, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		store:        st,
		orchestrator: orch,
		logger:       logger,
		interval:     5 * time.Minute,
		state:        StateIdle,
	}
}

// WithInterval sets the polling interval.
func (s *Scheduler) WithInterval(d time.Duration) *Scheduler {
	if d > 0 {
		s.interval = d
	}
	return s
}

// State returns the scheduler's current state.
func (s *Scheduler) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

func (s *Scheduler) setState(state State) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.state = state
}

// Start polls until the context is cancelled, running every due import on
// each tick. One sweep runs immediately on startup.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("Starting refresh scheduler",
		zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if _, err := s.RunDue(ctx); err != nil {
		s.logger.Error("Refresh sweep failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			s.setState(StateStopped)
			s.logger.Info("Refresh scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.RunDue(ctx); err != nil {
				s.logger.Error("Refresh sweep failed", zap.Error(err))
			}
		}
	}
}

// RunDue refreshes every import that is due right now and returns the
// per-import outcomes. A failing import does not stop the sweep; its error
// lands in the result list.
func (s *Scheduler) RunDue(ctx context.Context) ([]RefreshResult, error) {
	due, err := s.store.Imports().FindDue(ctx, time.Now())
	if err != nil {
		return nil, err
	}
	if len(due) == 0 {
		return nil, nil
	}

	s.setState(StateRunning)
	defer s.setState(StateIdle)

	s.logger.Info("Refreshing due imports", zap.Int("count", len(due)))

	results := make([]RefreshResult, 0, len(due))
	for _, imp := range due {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		started := time.Now()
		summary, runErr := s.orchestrator.Run(ctx, imp)

		result := RefreshResult{
			ImportID:   imp.ID,
			SourceName: imp.SourceName,
			Err:        runErr,
			Duration:   time.Since(started),
		}
		if summary != nil {
			result.State = summary.State
		} else {
			result.State = model.StateFailed
		}
		results = append(results, result)

		if runErr != nil {
			s.logger.Error("Scheduled refresh failed",
				zap.String("source", imp.SourceName),
				zap.Duration("duration", result.Duration),
				zap.Error(runErr))
			continue
		}
		s.logger.Info("Scheduled refresh finished",
			zap.String("source", imp.SourceName),
			zap.String("state", string(result.State)),
			zap.Duration("duration", result.Duration))
	}
	return results, nil
}
