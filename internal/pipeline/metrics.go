package pipeline

import (
	"sort"
	"time"

	"github.com/albapepper/prekick-data/internal/queue"
)

// metricSet accumulates run counters per (league, day) in memory. Flushed to
// the metrics table once at the end of a run.
type metricSet struct {
	buckets map[string]*queue.MetricRow // date|league
}

func newMetricSet() *metricSet {
	return &metricSet{buckets: make(map[string]*queue.MetricRow)}
}

func (s *metricSet) add(league string, at time.Time, fn func(*queue.MetricRow)) {
	date := at.UTC().Format("2006-01-02")
	key := date + "|" + league
	row, ok := s.buckets[key]
	if !ok {
		row = &queue.MetricRow{Date: date, League: league}
		s.buckets[key] = row
	}
	fn(row)
}

// rows returns the accumulated buckets in a stable order.
func (s *metricSet) rows() []queue.MetricRow {
	keys := make([]string, 0, len(s.buckets))
	for k := range s.buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]queue.MetricRow, 0, len(keys))
	for _, k := range keys {
		out = append(out, *s.buckets[k])
	}
	return out
}
