package telemetry

import (
	"context"
	"sort"
	"strings"

	"github.com/grafana/pyroscope-go"
)

const (
	ProfilingLabelOperation   = "operation"
	ProfilingLabelAuctionType = "auction_type"
	ProfilingLabelComponent   = "component"
)

// MaxLabelValueLength caps label values.
const MaxLabelValueLength = 128

// highCardinalityLabels are dropped; per-entity ids would explode the
// profile series count.
var highCardinalityLabels = map[string]bool{
	"auction_id": true,
	"bid_id":     true,
	"bidder_id":  true,
	"user_id":    true,
	"request_id": true,
	"trace_id":   true,
}

// WithProfilingLabels runs fn with pprof labels attached so profiles can be
// sliced by operation in Pyroscope.
//
//	telemetry.WithProfilingLabels(ctx, map[string]string{"operation": "place_bid"}, func(ctx context.Context) { ... })
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := sanitizeLabels(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// OperationLabels builds the label set for a named operation.
func OperationLabels(component, operation, auctionType string) map[string]string {
	return map[string]string{
		ProfilingLabelComponent:   component,
		ProfilingLabelOperation:   operation,
		ProfilingLabelAuctionType: auctionType,
	}
}

// sanitizeLabels returns sorted key/value pairs, skipping empty and
// high-cardinality entries and truncating long values.
func sanitizeLabels(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(labels)*2)
	for _, k := range keys {
		v := labels[k]
		key := sanitizeLabelKey(k)
		if key == "" || v == "" || highCardinalityLabels[key] {
			continue
		}
		if len(v) > MaxLabelValueLength {
			v = v[:MaxLabelValueLength]
		}
		pairs = append(pairs, key, v)
	}
	return pairs
}

func sanitizeLabelKey(key string) string {
	key = strings.ToLower(key)
	var b strings.Builder
	for _, c := range key {
		switch {
		case c == ' ' || c == '-':
			b.WriteByte('_')
		case (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_':
			b.WriteRune(c)
		}
	}
	return b.String()
}
