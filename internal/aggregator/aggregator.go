package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/atikulmunna/logsieve/internal/model"
)

const window = 5 * time.Second

// Stats holds a point-in-time snapshot of aggregated metrics.
type Stats struct {
	Uptime        string           `json:"uptime"`
	TotalScored   int64            `json:"total_scored"`
	LPS           float64          `json:"lines_per_sec"`
	Counts        map[string]int64 `json:"counts"`
	Flagged       int64            `json:"flagged"`
	MeanScore     float64          `json:"mean_score"`
	DroppedScores int64            `json:"dropped"`
	Offset        int              `json:"offset"`
}

// Aggregator consumes verdicts and computes time-windowed metrics.
type Aggregator struct {
	mu        sync.RWMutex
	startTime time.Time
	total     int64
	scoreSum  float64
	counts    map[model.Criticality]int64
	window    []time.Time // timestamps for the lines/sec rate
	dropped   func() int64
	offset    func() int
	verdicts  <-chan model.Verdict
}

// New creates an Aggregator reading from a hub subscription.
// droppedFn and offsetFn provide live values from the hub and the ingestor.
func New(verdicts <-chan model.Verdict, droppedFn func() int64, offsetFn func() int) *Aggregator {
	if droppedFn == nil {
		droppedFn = func() int64 { return 0 }
	}
	if offsetFn == nil {
		offsetFn = func() int { return 0 }
	}
	return &Aggregator{
		startTime: time.Now(),
		counts:    make(map[model.Criticality]int64),
		dropped:   droppedFn,
		offset:    offsetFn,
		verdicts:  verdicts,
	}
}

// Snapshot returns the current metrics.
func (a *Aggregator) Snapshot() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	counts := map[string]int64{
		model.Low.String():    a.counts[model.Low],
		model.Medium.String(): a.counts[model.Medium],
		model.High.String():   a.counts[model.High],
	}

	cutoff := time.Now().Add(-window)
	var recent int
	for _, t := range a.window {
		if t.After(cutoff) {
			recent++
		}
	}

	var mean float64
	if a.total > 0 {
		mean = a.scoreSum / float64(a.total)
	}

	return Stats{
		Uptime:        time.Since(a.startTime).Truncate(time.Second).String(),
		TotalScored:   a.total,
		LPS:           float64(recent) / window.Seconds(),
		Counts:        counts,
		Flagged:       a.counts[model.High],
		MeanScore:     mean,
		DroppedScores: a.dropped(),
		Offset:        a.offset(),
	}
}

// Start begins consuming verdicts. Blocks until the context is cancelled or
// the channel is closed.
func (a *Aggregator) Start(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-a.verdicts:
			if !ok {
				return
			}
			a.record(v)
		case <-ticker.C:
			a.prune()
		}
	}
}

func (a *Aggregator) record(v model.Verdict) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	a.scoreSum += v.Score
	a.counts[v.Criticality]++
	a.window = append(a.window, time.Now())
}

// prune removes timestamps that fell out of the rate window.
func (a *Aggregator) prune() {
	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := time.Now().Add(-window)
	i := 0
	for _, t := range a.window {
		if t.After(cutoff) {
			a.window[i] = t
			i++
		}
	}
	a.window = a.window[:i]
}
