package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when no meter is supplied.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// BidOutcome labels a bid attempt result.
type BidOutcome string

const (
	BidOutcomeAccepted BidOutcome = "accepted"
	BidOutcomeRejected BidOutcome = "rejected"
	BidOutcomeConflict BidOutcome = "conflict"
	BidOutcomeError    BidOutcome = "error"
)

// CloseOutcome labels how an auction left the open states.
type CloseOutcome string

const (
	CloseOutcomeWon       CloseOutcome = "won"
	CloseOutcomeFailed    CloseOutcome = "failed"
	CloseOutcomeCancelled CloseOutcome = "cancelled"
)

// AuctionStatusCounter reports how many auctions sit in each status.
type AuctionStatusCounter interface {
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// AuctionMetrics records bidding and lifecycle metrics.
type AuctionMetrics struct {
	logger *zap.Logger

	bidsTotal          *Counter
	bidAttempts        *Histogram
	bidDuration        *Histogram
	versionConflicts   *Counter
	auctionsClosed     *Counter
	transitionsTotal   *Counter
	sweepDuration      *Histogram
	auctionsByStatus   *Gauge
	statusCounter      AuctionStatusCounter
	stopCh             chan struct{}
	stopOnce           sync.Once
	collectOnce        sync.Once
	collectorWaitGroup sync.WaitGroup
}

// NewAuctionMetrics registers all instruments on meter. statusCounter may be
// nil, in which case the per-status gauge is never collected.
func NewAuctionMetrics(meter metric.Meter, statusCounter AuctionStatusCounter, logger *zap.Logger) (*AuctionMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &AuctionMetrics{
		logger:        logger,
		statusCounter: statusCounter,
		stopCh:        make(chan struct{}),
	}

	var err error
	if m.bidsTotal, err = NewCounter(meter, "auction_bids_total",
		"Bid submissions by outcome", "{bid}"); err != nil {
		return nil, err
	}
	if m.bidAttempts, err = NewHistogram(meter, HistogramOpts{
		Name:        "auction_bid_attempts",
		Description: "Optimistic concurrency attempts needed per bid",
		Unit:        "{attempt}",
		Boundaries:  []float64{1, 2, 3, 4, 5, 8},
	}); err != nil {
		return nil, err
	}
	if m.bidDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "auction_bid_duration_seconds",
		Description: "End to end latency of PlaceBid",
		Unit:        "s",
		Boundaries:  BidDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.versionConflicts, err = NewCounter(meter, "auction_version_conflicts_total",
		"Saves rejected by a stale aggregate version", "{conflict}"); err != nil {
		return nil, err
	}
	if m.auctionsClosed, err = NewCounter(meter, "auction_closed_total",
		"Auctions that reached a terminal status", "{auction}"); err != nil {
		return nil, err
	}
	if m.transitionsTotal, err = NewCounter(meter, "auction_lifecycle_transitions_total",
		"Scheduled start and end transitions", "{transition}"); err != nil {
		return nil, err
	}
	if m.sweepDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "auction_sweep_duration_seconds",
		Description: "Duration of one lifecycle sweep",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.auctionsByStatus, err = NewGauge(meter, "auction_auctions",
		"Auctions currently in each status", "{auction}"); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordBid records one PlaceBid call. reason is the rejection code, empty
// for accepted bids.
func (m *AuctionMetrics) RecordBid(ctx context.Context, auctionType string, outcome BidOutcome, reason string, attempts int, elapsed time.Duration) {
	attrs := []attribute.KeyValue{AttrAuctionType.String(auctionType), AttrOutcome.String(string(outcome))}
	if reason != "" {
		attrs = append(attrs, AttrReason.String(reason))
	}
	m.bidsTotal.Inc(ctx, attrs...)
	if attempts > 0 {
		m.bidAttempts.Record(ctx, float64(attempts), AttrAuctionType.String(auctionType))
	}
	m.bidDuration.RecordDuration(ctx, elapsed, AttrAuctionType.String(auctionType), AttrOutcome.String(string(outcome)))
}

func (m *AuctionMetrics) RecordVersionConflict(ctx context.Context, auctionType string) {
	m.versionConflicts.Inc(ctx, AttrAuctionType.String(auctionType))
}

func (m *AuctionMetrics) RecordAuctionClosed(ctx context.Context, auctionType string, outcome CloseOutcome) {
	m.auctionsClosed.Inc(ctx, AttrAuctionType.String(auctionType), AttrOutcome.String(string(outcome)))
}

// RecordTransition counts a sweeper start or end attempt.
func (m *AuctionMetrics) RecordTransition(ctx context.Context, transition string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.transitionsTotal.Inc(ctx, AttrTransition.String(transition), AttrOutcome.String(outcome))
}

func (m *AuctionMetrics) RecordSweep(ctx context.Context, elapsed time.Duration) {
	m.sweepDuration.RecordDuration(ctx, elapsed)
}

// StartPeriodicCollection samples auction counts per status every interval
// until Stop or ctx cancellation. Only the first call starts a collector.
func (m *AuctionMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	if m.statusCounter == nil {
		return
	}
	m.collectOnce.Do(func() {
		if interval <= 0 {
			interval = time.Minute
		}
		m.collectorWaitGroup.Add(1)
		go func() {
			defer m.collectorWaitGroup.Done()
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			m.collectStatusCounts(ctx)
			for {
				select {
				case <-m.stopCh:
					return
				case <-ctx.Done():
					return
				case <-ticker.C:
					m.collectStatusCounts(ctx)
				}
			}
		}()
	})
}

func (m *AuctionMetrics) collectStatusCounts(ctx context.Context) {
	counts, err := m.statusCounter.CountByStatus(ctx)
	if err != nil {
		m.logger.Warn("Failed to count auctions by status", zap.Error(err))
		return
	}
	for status, n := range counts {
		m.auctionsByStatus.Record(ctx, n, AttrAuctionStatus.String(status))
	}
}

// Stop ends periodic collection. Safe to call more than once.
func (m *AuctionMetrics) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.collectorWaitGroup.Wait()
	})
}
