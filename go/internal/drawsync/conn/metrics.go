package conn

import (
	"sync"
	"time"

	"github.com/mcdev12/drawsync/go/internal/drawsync/protocol"
)

// MetricsCollector receives connection lifecycle measurements.
type MetricsCollector interface {
	RecordStateChange(from, to State)
	RecordFrameSent(size int)
	RecordFrameQueued(size int)
	RecordFrameReceived(kind protocol.Kind)
	RecordFrameDropped(reason string)
	RecordReconnectScheduled(attempt int, delay time.Duration)
}

// NoOpMetricsCollector is a no-op implementation for when metrics aren't needed
type NoOpMetricsCollector struct{}

func (n *NoOpMetricsCollector) RecordStateChange(from, to State)                          {}
func (n *NoOpMetricsCollector) RecordFrameSent(size int)                                  {}
func (n *NoOpMetricsCollector) RecordFrameQueued(size int)                                {}
func (n *NoOpMetricsCollector) RecordFrameReceived(kind protocol.Kind)                    {}
func (n *NoOpMetricsCollector) RecordFrameDropped(reason string)                          {}
func (n *NoOpMetricsCollector) RecordReconnectScheduled(attempt int, delay time.Duration) {}

// CounterMetrics keeps in-memory counters, keyed by metric name.
type CounterMetrics struct {
	mu       sync.Mutex
	counters map[string]uint64
}

func NewCounterMetrics() *CounterMetrics {
	return &CounterMetrics{counters: make(map[string]uint64)}
}

func (c *CounterMetrics) add(name string, delta uint64) {
	c.mu.Lock()
	c.counters[name] += delta
	c.mu.Unlock()
}

func (c *CounterMetrics) RecordStateChange(from, to State) {
	c.add("state."+to.String(), 1)
}

func (c *CounterMetrics) RecordFrameSent(size int) {
	c.add("frames.sent", 1)
	c.add("bytes.sent", uint64(size))
}

func (c *CounterMetrics) RecordFrameQueued(size int) {
	c.add("frames.queued", 1)
}

func (c *CounterMetrics) RecordFrameReceived(kind protocol.Kind) {
	c.add("frames.received", 1)
	c.add("received."+string(kind), 1)
}

func (c *CounterMetrics) RecordFrameDropped(reason string) {
	c.add("frames.dropped", 1)
	c.add("dropped."+reason, 1)
}

func (c *CounterMetrics) RecordReconnectScheduled(attempt int, delay time.Duration) {
	c.add("reconnects.scheduled", 1)
}

// Snapshot returns a copy of every counter.
func (c *CounterMetrics) Snapshot() map[string]uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]uint64, len(c.counters))
	for k, v := range c.counters {
		out[k] = v
	}
	return out
}
