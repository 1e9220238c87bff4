package telemetry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

type fakeStatusCounter struct {
	calls  atomic.Int32
	counts map[string]int64
	err    error
}

func (f *fakeStatusCounter) CountByStatus(context.Context) (map[string]int64, error) {
	f.calls.Add(1)
	return f.counts, f.err
}

func newTestAuctionMetrics(t *testing.T, counter AuctionStatusCounter) (*AuctionMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := NewMeterProviderWithReader(reader, zap.NewNop())
	m, err := NewAuctionMetrics(mp.Meter("auction"), counter, zap.NewNop())
	require.NoError(t, err)
	return m, reader
}

func TestNewAuctionMetrics_NilMeter(t *testing.T) {
	_, err := NewAuctionMetrics(nil, nil, nil)
	assert.ErrorIs(t, err, ErrMeterNil)
}

func TestAuctionMetrics_RecordBid(t *testing.T) {
	m, reader := newTestAuctionMetrics(t, nil)
	ctx := context.Background()

	m.RecordBid(ctx, "FORWARD", BidOutcomeAccepted, "", 1, 3*time.Millisecond)
	m.RecordBid(ctx, "FORWARD", BidOutcomeAccepted, "", 3, 9*time.Millisecond)
	m.RecordBid(ctx, "REVERSE", BidOutcomeRejected, "VALIDATION_ERROR", 1, time.Millisecond)

	rm := collect(t, reader)
	assert.Equal(t, int64(2), sumWhere(t, rm, "auction_bids_total",
		AttrAuctionType.String("FORWARD"), AttrOutcome.String("accepted")))
	assert.Equal(t, int64(1), sumWhere(t, rm, "auction_bids_total",
		AttrOutcome.String("rejected"), AttrReason.String("VALIDATION_ERROR")))

	attempts, ok := findMetric(rm, "auction_bid_attempts")
	require.True(t, ok)
	hist := attempts.Data.(metricdata.Histogram[float64])
	var count uint64
	var total float64
	for _, dp := range hist.DataPoints {
		count += dp.Count
		total += dp.Sum
	}
	assert.Equal(t, uint64(3), count)
	assert.Equal(t, 5.0, total)
}

func TestAuctionMetrics_Counters(t *testing.T) {
	m, reader := newTestAuctionMetrics(t, nil)
	ctx := context.Background()

	m.RecordVersionConflict(ctx, "DUTCH")
	m.RecordVersionConflict(ctx, "DUTCH")
	m.RecordAuctionClosed(ctx, "SEALED", CloseOutcomeWon)
	m.RecordAuctionClosed(ctx, "SEALED", CloseOutcomeFailed)
	m.RecordTransition(ctx, "start", nil)
	m.RecordTransition(ctx, "end", errors.New("db down"))
	m.RecordSweep(ctx, 20*time.Millisecond)

	rm := collect(t, reader)
	assert.Equal(t, int64(2), sumWhere(t, rm, "auction_version_conflicts_total", AttrAuctionType.String("DUTCH")))
	assert.Equal(t, int64(1), sumWhere(t, rm, "auction_closed_total", AttrOutcome.String("won")))
	assert.Equal(t, int64(1), sumWhere(t, rm, "auction_closed_total", AttrOutcome.String("failed")))
	assert.Equal(t, int64(1), sumWhere(t, rm, "auction_lifecycle_transitions_total",
		AttrTransition.String("end"), AttrOutcome.String("error")))

	_, ok := findMetric(rm, "auction_sweep_duration_seconds")
	assert.True(t, ok)
}

func TestAuctionMetrics_PeriodicCollection(t *testing.T) {
	counter := &fakeStatusCounter{counts: map[string]int64{"ACTIVE": 4, "PUBLISHED": 2}}
	m, reader := newTestAuctionMetrics(t, counter)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartPeriodicCollection(ctx, time.Hour)
	m.StartPeriodicCollection(ctx, time.Hour)

	require.Eventually(t, func() bool { return counter.calls.Load() >= 1 }, time.Second, 5*time.Millisecond)
	m.Stop()
	m.Stop()

	rm := collect(t, reader)
	g, ok := findMetric(rm, "auction_auctions")
	require.True(t, ok)
	gauge := g.Data.(metricdata.Gauge[int64])
	values := map[string]int64{}
	for _, dp := range gauge.DataPoints {
		status, _ := dp.Attributes.Value(AttrAuctionStatus)
		values[status.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"ACTIVE": 4, "PUBLISHED": 2}, values)
	assert.Equal(t, int32(1), counter.calls.Load())
}

func TestAuctionMetrics_NoCounterIsNoop(t *testing.T) {
	m, _ := newTestAuctionMetrics(t, nil)
	m.StartPeriodicCollection(context.Background(), time.Millisecond)
	m.Stop()
}
