package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	appauction "github.com/freightbid/backend/internal/application/auction"
	"github.com/freightbid/backend/internal/domain/auction"
	"github.com/freightbid/backend/internal/domain/shared"
	"github.com/freightbid/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Transition names used in logs and metrics
const (
	TransitionStart = "start"
	TransitionEnd   = "end"
)

// DueAuctionLister finds auctions whose start or end time has passed
type DueAuctionLister interface {
	ListDueToStart(ctx context.Context, now time.Time, limit int) ([]*auction.Auction, error)
	ListDueToEnd(ctx context.Context, now time.Time, limit int) ([]*auction.Auction, error)
}

// LifecycleTransitioner applies start and end transitions.
// Implemented by appauction.BiddingService. EndDueAuction must refuse with
// INVALID_STATE when the stored end time is still ahead.
type LifecycleTransitioner interface {
	StartAuction(ctx context.Context, auctionID uuid.UUID) (*appauction.AuctionResponse, error)
	EndDueAuction(ctx context.Context, auctionID uuid.UUID) (*appauction.AuctionResponse, error)
}

// LifecycleSweeperConfig holds configuration for the lifecycle sweeper
type LifecycleSweeperConfig struct {
	Enabled bool

	// Interval between sweeps
	Interval time.Duration

	// BatchSize caps how many due auctions are loaded per transition per sweep
	BatchSize int

	// Concurrency bounds parallel transitions within one sweep
	Concurrency int

	// SweepTimeout is the maximum time for a single sweep
	SweepTimeout time.Duration
}

// DefaultLifecycleSweeperConfig returns default configuration
func DefaultLifecycleSweeperConfig() LifecycleSweeperConfig {
	return LifecycleSweeperConfig{
		Enabled:      true,
		Interval:     5 * time.Second,
		BatchSize:    100,
		Concurrency:  4,
		SweepTimeout: time.Minute,
	}
}

// Validate checks the configuration
func (c LifecycleSweeperConfig) Validate() error {
	if c.Interval <= 0 || c.BatchSize <= 0 || c.Concurrency <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// SweepResult summarizes one sweep
type SweepResult struct {
	Started int
	Ended   int
	Skipped int
	Failed  int
}

// LifecycleSweeper periodically starts PUBLISHED auctions whose start time has
// come and ends ACTIVE auctions whose end time has passed. Transitions run
// through the bidding service, so they take the same optimistic path as bids.
// An auction that loses a race is skipped and picked up by the next sweep.
type LifecycleSweeper struct {
	auctions    DueAuctionLister
	transitions LifecycleTransitioner
	metrics     *telemetry.AuctionMetrics
	logger      *zap.Logger
	config      LifecycleSweeperConfig
	now         func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewLifecycleSweeper creates a new lifecycle sweeper
func NewLifecycleSweeper(
	auctions DueAuctionLister,
	transitions LifecycleTransitioner,
	logger *zap.Logger,
	config LifecycleSweeperConfig,
) *LifecycleSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LifecycleSweeper{
		auctions:    auctions,
		transitions: transitions,
		logger:      logger.Named("sweeper"),
		config:      config,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetMetrics sets the auction metrics collector
func (s *LifecycleSweeper) SetMetrics(m *telemetry.AuctionMetrics) {
	s.metrics = m
}

// Start runs a sweep immediately and then every Interval until Stop
func (s *LifecycleSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Lifecycle sweeper is disabled")
		return nil
	}
	if err := s.config.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("Lifecycle sweeper started",
		zap.Duration("interval", s.config.Interval),
		zap.Int("batch_size", s.config.BatchSize),
		zap.Int("concurrency", s.config.Concurrency),
	)
	return nil
}

// Stop gracefully stops the sweeper, waiting for an in-flight sweep
func (s *LifecycleSweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Lifecycle sweeper stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Lifecycle sweeper stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the sweep loop is active
func (s *LifecycleSweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

func (s *LifecycleSweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		s.sweepOnce(ctx)
		select {
		case <-ctx.Done():
			s.logger.Debug("Lifecycle sweep loop stopping")
			return
		case <-ticker.C:
		}
	}
}

func (s *LifecycleSweeper) sweepOnce(ctx context.Context) {
	if s.config.SweepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.SweepTimeout)
		defer cancel()
	}
	if _, err := s.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("Lifecycle sweep failed", zap.Error(err))
	}
}

// Sweep performs one pass: due starts first, then due ends. Individual
// transition failures are logged and counted, not returned; the error is
// reserved for failures to list due auctions.
func (s *LifecycleSweeper) Sweep(ctx context.Context) (SweepResult, error) {
	begin := time.Now()
	now := s.now()
	var result SweepResult

	toStart, err := s.auctions.ListDueToStart(ctx, now, s.config.BatchSize)
	if err != nil {
		return result, err
	}
	started, skipped, failed := s.apply(ctx, TransitionStart, toStart, s.transitions.StartAuction)
	result.Started, result.Skipped, result.Failed = started, skipped, failed

	// an auction started above may already be due to end
	toEnd, err := s.auctions.ListDueToEnd(ctx, now, s.config.BatchSize)
	if err != nil {
		return result, err
	}
	ended, skipped, failed := s.apply(ctx, TransitionEnd, toEnd, s.transitions.EndDueAuction)
	result.Ended = ended
	result.Skipped += skipped
	result.Failed += failed

	if s.metrics != nil {
		s.metrics.RecordSweep(ctx, time.Since(begin))
	}
	if result.Started+result.Ended+result.Failed > 0 {
		s.logger.Info("Lifecycle sweep completed",
			zap.Int("started", result.Started),
			zap.Int("ended", result.Ended),
			zap.Int("skipped", result.Skipped),
			zap.Int("failed", result.Failed),
			zap.Duration("duration", time.Since(begin)),
		)
	}
	return result, nil
}

type transitionFunc func(ctx context.Context, auctionID uuid.UUID) (*appauction.AuctionResponse, error)

// apply runs fn for every auction with bounded parallelism
func (s *LifecycleSweeper) apply(ctx context.Context, transition string, due []*auction.Auction, fn transitionFunc) (ok, skipped, failed int) {
	if len(due) == 0 {
		return 0, 0, 0
	}
	var nOK, nSkipped, nFailed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Concurrency)
	for _, a := range due {
		id := a.ID
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			_, err := fn(gctx, id)
			if s.metrics != nil {
				s.metrics.RecordTransition(gctx, transition, err)
			}
			switch {
			case err == nil:
				nOK.Add(1)
			case errors.Is(err, shared.ErrConcurrencyConflict), errors.Is(err, shared.ErrInvalidState):
				// lost a race with a bid or another sweeper; next sweep re-evaluates
				nSkipped.Add(1)
				s.logger.Info("Lifecycle transition skipped",
					zap.String("transition", transition),
					zap.String("auction_id", id.String()),
					zap.Error(err),
				)
			default:
				nFailed.Add(1)
				s.logger.Error("Lifecycle transition failed",
					zap.String("transition", transition),
					zap.String("auction_id", id.String()),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(nOK.Load()), int(nSkipped.Load()), int(nFailed.Load())
}

var _ LifecycleTransitioner = (*appauction.BiddingService)(nil)
