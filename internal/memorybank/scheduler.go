package memorybank

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DecayScheduler runs periodic confidence decay in the background for
// configured projects.
//
// Thread Safety: all public methods are thread-safe. The running state
// is protected by a mutex to prevent races between Start and Stop.
type DecayScheduler struct {
	interval   time.Duration
	factor     float64
	lifecycle  *Lifecycle
	projectIDs []string

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}

	logger *zap.Logger
}

// SchedulerOption configures a DecayScheduler.
type SchedulerOption func(*DecayScheduler)

// WithInterval sets the time between decay passes. Defaults to 24 hours.
func WithInterval(interval time.Duration) SchedulerOption {
	return func(s *DecayScheduler) {
		s.interval = interval
	}
}

// WithDecayFactor sets the multiplier applied to each observation's
// confidence per pass. Defaults to 0.95.
func WithDecayFactor(factor float64) SchedulerOption {
	return func(s *DecayScheduler) {
		s.factor = factor
	}
}

// WithProjectIDs sets the projects decayed on each pass. With no
// projects configured the scheduler ticks but does nothing.
func WithProjectIDs(projectIDs []string) SchedulerOption {
	return func(s *DecayScheduler) {
		s.projectIDs = projectIDs
	}
}

// NewDecayScheduler creates a decay scheduler. It does not start
// automatically - call Start to begin scheduled passes.
func NewDecayScheduler(lifecycle *Lifecycle, logger *zap.Logger, opts ...SchedulerOption) (*DecayScheduler, error) {
	if lifecycle == nil {
		return nil, fmt.Errorf("lifecycle cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	s := &DecayScheduler{
		lifecycle:  lifecycle,
		logger:     logger,
		interval:   24 * time.Hour,
		factor:     0.95,
		projectIDs: []string{},
		stopCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.factor < 0 || s.factor > 1 {
		return nil, fmt.Errorf("%w: decay factor %v", ErrInvalidConfidence, s.factor)
	}
	return s, nil
}

// Start begins the background decay loop. Calling Start on a running
// scheduler returns an error without starting a second goroutine.
func (s *DecayScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	// Fresh stop channel for this run
	s.stopCh = make(chan struct{})
	s.running = true

	s.logger.Info("decay scheduler started",
		zap.Duration("interval", s.interval),
		zap.Float64("factor", s.factor),
		zap.Int("projects", len(s.projectIDs)),
	)

	go s.run()
	return nil
}

// Stop signals the background goroutine to exit. Stopping an already
// stopped scheduler is a no-op.
func (s *DecayScheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		s.logger.Debug("scheduler stop called but not running")
		return nil
	}

	s.logger.Info("stopping decay scheduler")
	s.running = false
	close(s.stopCh)
	return nil
}

func (s *DecayScheduler) run() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduler goroutine panicked, recovering",
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.safeRunDecay()
		case <-s.stopCh:
			s.logger.Debug("scheduler received stop signal")
			return
		}
	}
}

// safeRunDecay wraps a decay pass with panic recovery so one bad pass
// does not kill the scheduler.
func (s *DecayScheduler) safeRunDecay() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("decay pass panicked, continuing scheduler",
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
		}
	}()
	s.runDecay()
}

func (s *DecayScheduler) runDecay() {
	if len(s.projectIDs) == 0 {
		s.logger.Debug("no projects configured for decay, skipping")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var total int64
	for _, projectID := range s.projectIDs {
		n, err := s.lifecycle.Decay(ctx, projectID, s.factor)
		if err != nil {
			// Errors are logged but do not stop the scheduler.
			s.logger.Error("scheduled decay failed",
				zap.String("project_id", projectID),
				zap.Error(err),
			)
			continue
		}
		total += n
	}

	s.logger.Info("scheduled decay completed",
		zap.Int("projects", len(s.projectIDs)),
		zap.Int64("rows", total),
	)
}
