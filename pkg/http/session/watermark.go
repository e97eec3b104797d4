package session

import "fmt"

// WatermarkCounter tracks the total number of unconsumed ingress body bytes
// buffered across all in-flight transactions on a session, against a fixed
// limit.
//
// Crossing detection is edge-triggered: RecordIngress reports true only on
// the transition from at-or-below the limit to above it, and RecordConsumed
// reports true only on the transition back. Repeated increments that stay
// above the limit, or repeated decrements that stay below it, report
// nothing, so each backpressure signal fires exactly once per threshold
// traversal.
//
// The limit is fixed at construction. A session is owned by a single
// goroutine, so the counter performs no internal locking.
type WatermarkCounter struct {
	current uint32
	limit   uint32
}

// NewWatermarkCounter creates a counter with the given byte limit.
func NewWatermarkCounter(limit uint32) WatermarkCounter {
	return WatermarkCounter{limit: limit}
}

// RecordIngress adds length+padding buffered bytes and reports whether this
// call moved the counter from at-or-below the limit to above it.
func (w *WatermarkCounter) RecordIngress(length, padding uint32) bool {
	old := w.current
	w.current += length + padding
	return old <= w.limit && w.current > w.limit
}

// RecordConsumed subtracts consumed bytes and reports whether this call
// moved the counter from above the limit to at-or-below it.
//
// Consuming more bytes than are buffered indicates a caller accounting bug
// that would otherwise mask data loss; it panics rather than clamping.
func (w *WatermarkCounter) RecordConsumed(bytes uint32) bool {
	if bytes > w.current {
		panic(fmt.Sprintf(
			"session: consumed %d ingress bytes with only %d buffered", bytes, w.current))
	}
	old := w.current
	w.current -= bytes
	return old > w.limit && w.current <= w.limit
}

// Current returns the buffered byte count.
func (w *WatermarkCounter) Current() uint32 {
	return w.current
}

// Limit returns the configured byte limit.
func (w *WatermarkCounter) Limit() uint32 {
	return w.limit
}

// AboveLimit reports whether the counter is currently above the limit.
func (w *WatermarkCounter) AboveLimit() bool {
	return w.current > w.limit
}
