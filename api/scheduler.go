/*
scheduler.go - Automated expiration sweep scheduler

PURPOSE:
  Periodically sweeps every account so lapsed credit batches are zeroed
  out close to their expiry time instead of waiting for the customer's
  next login.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Each pass is idempotent; a pass that finds nothing writes nothing
  - Per-account failures are logged and skipped, the pass continues

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewSweepScheduler(program, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: AdminSweepAll endpoint (manual pass)
  - loyalty/program.go: SweepAll
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/points-engine/loyalty"
)

// SweepScheduler runs periodic expiration sweeps across all accounts.
type SweepScheduler struct {
	Program       *loyalty.Program
	Metrics       *Metrics
	CheckInterval time.Duration
	Enabled       bool

	logger *zap.Logger
	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewSweepScheduler creates a new scheduler.
func NewSweepScheduler(program *loyalty.Program, metrics *Metrics, logger *zap.Logger) *SweepScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SweepScheduler{
		Program:       program,
		Metrics:       metrics,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		logger:        logger,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (s *SweepScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.logger.Info("sweep scheduler disabled, not starting")
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.wg.Add(1)

	go s.run()

	s.logger.Info("sweep scheduler started", zap.Duration("interval", s.CheckInterval))
}

// Stop stops the scheduler.
func (s *SweepScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.logger.Info("sweep scheduler stopped")
	}
}

func (s *SweepScheduler) run() {
	defer s.wg.Done()

	// Run immediately on start
	s.sweepPass()

	for {
		select {
		case <-s.ticker.C:
			s.sweepPass()
		case <-s.stop:
			return
		}
	}
}

func (s *SweepScheduler) sweepPass() {
	ctx := context.Background()
	start := time.Now()

	summary, err := s.Program.SweepAll(ctx)
	if err != nil {
		s.logger.Error("sweep pass failed", zap.Error(err))
		return
	}

	if s.Metrics != nil && summary.PointsExpired.IsPositive() {
		s.Metrics.Expired.Add(float64(summary.PointsExpired))
	}
	for _, f := range summary.Failures {
		s.logger.Warn("sweep failed for account",
			zap.String("account", string(f.AccountID)), zap.Error(f.Err))
	}

	s.logger.Info("sweep pass complete",
		zap.Int("accounts", summary.Accounts),
		zap.Int("accounts_expired", summary.AccountsExpired),
		zap.Int64("points_expired", int64(summary.PointsExpired)),
		zap.Int("failures", len(summary.Failures)),
		zap.Duration("took", time.Since(start)))
}
