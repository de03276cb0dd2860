package msgloop

import (
	"sync"
	"time"
)

// latencyPercentiles are the quantiles tracked for both task and handler
// dispatch latency: median, and the long tail.
var latencyPercentiles = []float64{0.50, 0.90, 0.95, 0.99}

// latencySnapshot is a point-in-time read of a latencyTracker.
type latencySnapshot struct {
	Count int
	Mean  time.Duration
	Max   time.Duration
	P50   time.Duration
	P90   time.Duration
	P95   time.Duration
	P99   time.Duration
}

// latencyTracker accumulates a stream of durations into streaming
// percentile estimates via pSquareMultiQuantile, avoiding the cost of
// retaining and sorting samples.
type latencyTracker struct {
	mu   sync.Mutex
	psq  *pSquareMultiQuantile
	enabled bool
}

func newLatencyTracker(enabled bool) *latencyTracker {
	t := &latencyTracker{enabled: enabled}
	if enabled {
		t.psq = newPSquareMultiQuantile(latencyPercentiles...)
	}
	return t
}

func (t *latencyTracker) observe(d time.Duration) {
	if t == nil || !t.enabled {
		return
	}
	t.mu.Lock()
	t.psq.Update(float64(d))
	t.mu.Unlock()
}

func (t *latencyTracker) snapshot() latencySnapshot {
	if t == nil || !t.enabled {
		return latencySnapshot{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return latencySnapshot{
		Count: t.psq.Count(),
		Mean:  time.Duration(t.psq.Mean()),
		Max:   time.Duration(t.psq.Max()),
		P50:   time.Duration(t.psq.Quantile(0)),
		P90:   time.Duration(t.psq.Quantile(1)),
		P95:   time.Duration(t.psq.Quantile(2)),
		P99:   time.Duration(t.psq.Quantile(3)),
	}
}

// Metrics is a point-in-time snapshot of a Loop's dispatch latency,
// available when the loop was constructed with WithMetrics(true).
type Metrics struct {
	TaskLatency    latencySnapshot
	HandlerLatency latencySnapshot
}

// dispatchMetrics holds the two latency trackers a running Loop feeds on
// every dispatched task and handler callback.
type dispatchMetrics struct {
	task    *latencyTracker
	handler *latencyTracker
}

func newDispatchMetrics(enabled bool) *dispatchMetrics {
	return &dispatchMetrics{
		task:    newLatencyTracker(enabled),
		handler: newLatencyTracker(enabled),
	}
}

func (m *dispatchMetrics) observeTask(d time.Duration)    { m.task.observe(d) }
func (m *dispatchMetrics) observeHandler(d time.Duration) { m.handler.observe(d) }

// Metrics returns a snapshot of the loop's dispatch latency distributions.
// If the loop was constructed without WithMetrics(true), the returned
// value's counts are zero.
func (l *Loop) Metrics() Metrics {
	return Metrics{
		TaskLatency:    l.metrics.task.snapshot(),
		HandlerLatency: l.metrics.handler.snapshot(),
	}
}
