package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Crossing Edge Tests
// ============================================================================

func TestWatermarkCrossingEdges(t *testing.T) {
	t.Run("IncrementBelowLimitDoesNotSignal", func(t *testing.T) {
		w := NewWatermarkCounter(100)

		assert.False(t, w.RecordIngress(60, 0))
		assert.Equal(t, uint32(60), w.Current())
		assert.False(t, w.AboveLimit())
	})

	t.Run("IncrementCrossingLimitSignalsOnce", func(t *testing.T) {
		w := NewWatermarkCounter(100)

		assert.False(t, w.RecordIngress(60, 0))
		assert.True(t, w.RecordIngress(50, 0), "crossing 100 -> 110 must signal")
		assert.Equal(t, uint32(110), w.Current())
		assert.True(t, w.AboveLimit())
	})

	t.Run("IncrementAlreadyAboveLimitStaysSilent", func(t *testing.T) {
		w := NewWatermarkCounter(100)
		w.RecordIngress(110, 0)

		assert.False(t, w.RecordIngress(5, 0))
		assert.Equal(t, uint32(115), w.Current())
	})

	t.Run("DecrementCrossingBackSignalsOnce", func(t *testing.T) {
		w := NewWatermarkCounter(100)
		w.RecordIngress(115, 0)

		assert.True(t, w.RecordConsumed(20), "crossing 115 -> 95 must signal")
		assert.Equal(t, uint32(95), w.Current())
		assert.False(t, w.AboveLimit())
	})

	t.Run("DecrementAlreadyBelowLimitStaysSilent", func(t *testing.T) {
		w := NewWatermarkCounter(100)
		w.RecordIngress(115, 0)
		w.RecordConsumed(20)

		assert.False(t, w.RecordConsumed(10))
		assert.Equal(t, uint32(85), w.Current())
	})

	t.Run("LandingExactlyOnLimitSignalsBelow", func(t *testing.T) {
		w := NewWatermarkCounter(100)
		w.RecordIngress(120, 0)

		// The limit itself counts as at-or-below.
		assert.True(t, w.RecordConsumed(20))
		assert.Equal(t, uint32(100), w.Current())
		assert.False(t, w.AboveLimit())
	})

	t.Run("FillingExactlyToLimitDoesNotSignal", func(t *testing.T) {
		w := NewWatermarkCounter(100)

		assert.False(t, w.RecordIngress(100, 0))
		assert.True(t, w.RecordIngress(1, 0))
	})
}

func TestWatermarkRepeatedTraversals(t *testing.T) {
	w := NewWatermarkCounter(100)

	for i := 0; i < 3; i++ {
		require.True(t, w.RecordIngress(150, 0), "traversal %d above", i)
		require.True(t, w.RecordConsumed(150), "traversal %d below", i)
	}
	assert.Equal(t, uint32(0), w.Current())
}

// ============================================================================
// Padding Tests
// ============================================================================

func TestWatermarkPadding(t *testing.T) {
	t.Run("PaddingCountsTowardLimit", func(t *testing.T) {
		w := NewWatermarkCounter(100)

		assert.False(t, w.RecordIngress(90, 5))
		assert.True(t, w.RecordIngress(0, 10), "padding alone can cross the limit")
		assert.Equal(t, uint32(105), w.Current())
	})

	t.Run("PaddingMustBeConsumedToo", func(t *testing.T) {
		w := NewWatermarkCounter(100)
		w.RecordIngress(90, 20)

		assert.True(t, w.RecordConsumed(110))
		assert.Equal(t, uint32(0), w.Current())
	})
}

// ============================================================================
// Underflow Tests
// ============================================================================

func TestWatermarkOverConsumePanics(t *testing.T) {
	t.Run("ConsumeWithNothingBuffered", func(t *testing.T) {
		w := NewWatermarkCounter(100)

		assert.Panics(t, func() { w.RecordConsumed(1) })
	})

	t.Run("ConsumeMoreThanBuffered", func(t *testing.T) {
		w := NewWatermarkCounter(100)
		w.RecordIngress(40, 0)

		assert.Panics(t, func() { w.RecordConsumed(41) })
	})

	t.Run("ConsumeExactlyBufferedSucceeds", func(t *testing.T) {
		w := NewWatermarkCounter(100)
		w.RecordIngress(40, 0)

		assert.NotPanics(t, func() { w.RecordConsumed(40) })
		assert.Equal(t, uint32(0), w.Current())
	})

	t.Run("ConsumeZeroIsNoop", func(t *testing.T) {
		w := NewWatermarkCounter(100)

		assert.NotPanics(t, func() { w.RecordConsumed(0) })
	})
}

// ============================================================================
// Limit Tests
// ============================================================================

func TestWatermarkZeroLimit(t *testing.T) {
	w := NewWatermarkCounter(0)

	assert.True(t, w.RecordIngress(1, 0), "any byte exceeds a zero limit")
	assert.True(t, w.RecordConsumed(1))
	assert.False(t, w.RecordIngress(0, 0), "zero bytes never cross")
}

func TestWatermarkLimitIsFixed(t *testing.T) {
	w := NewWatermarkCounter(4096)

	assert.Equal(t, uint32(4096), w.Limit())
	w.RecordIngress(5000, 0)
	assert.Equal(t, uint32(4096), w.Limit())
}
