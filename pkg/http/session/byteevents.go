package session

import (
	"time"

	"github.com/sepcity/proxygen/internal/logger"
)

// ByteEventKind classifies a tracked byte offset.
type ByteEventKind int

const (
	// ByteEventFirstByte fires when the first byte of a message reaches
	// the transport.
	ByteEventFirstByte ByteEventKind = iota

	// ByteEventLastByte fires when the last byte of a message is
	// acknowledged, closing the time-to-last-byte measurement.
	ByteEventLastByte

	// ByteEventTrackedByte fires for explicitly requested offsets.
	ByteEventTrackedByte
)

func (k ByteEventKind) String() string {
	switch k {
	case ByteEventFirstByte:
		return "first_byte"
	case ByteEventLastByte:
		return "last_byte"
	case ByteEventTrackedByte:
		return "tracked_byte"
	default:
		return "unknown"
	}
}

// ByteEvent is a pending byte-level timing event: when the session's egress
// byte offset passes Offset, the event fires on the tracker's callback.
type ByteEvent struct {
	Offset       uint64
	Kind         ByteEventKind
	Txn          Transaction
	RegisteredAt time.Time
}

// ByteEventCallback receives fired byte events. The callback may outlive any
// particular tracker: when a tracker is replaced, the session rewires the
// callback onto the replacement.
type ByteEventCallback interface {
	OnByteEvent(ev ByteEvent)
}

// ByteEventTracker records per-byte timing events for observability,
// independent of flow control.
//
// Ownership is shared between the session and the transport callback
// machinery, so replacing a session's tracker must not drop in-flight
// events: the replacement absorbs the old tracker's pending state first.
type ByteEventTracker interface {
	// SetCallback installs the sink fired events are delivered to.
	SetCallback(cb ByteEventCallback)

	// SetStats installs the stats sink for time-to-last-byte recording.
	// A nil sink disables recording.
	SetStats(stats Stats)

	// RegisterByteEvent arms an event for the given egress byte offset.
	RegisterByteEvent(offset uint64, kind ByteEventKind, txn Transaction)

	// ProcessByteEvents fires every pending event whose offset is at or
	// below ackedOffset, in registration order, and returns how many fired.
	ProcessByteEvents(ackedOffset uint64) int

	// PendingByteEvents returns the number of armed, unfired events.
	PendingByteEvents() int

	// DrainPendingEvents removes and returns all pending events in
	// registration order. Used by Absorb.
	DrainPendingEvents() []ByteEvent

	// Absorb merges another tracker's pending events into this one so that
	// no event is lost across a tracker replacement.
	Absorb(other ByteEventTracker)
}

// StdByteEventTracker is the default ByteEventTracker. Events are kept in
// registration order; sessions are single-owner, so there is no locking.
type StdByteEventTracker struct {
	callback ByteEventCallback
	stats    Stats
	pending  []ByteEvent
}

// NewStdByteEventTracker creates an empty tracker with the given callback.
func NewStdByteEventTracker(cb ByteEventCallback) *StdByteEventTracker {
	return &StdByteEventTracker{callback: cb}
}

// SetCallback implements ByteEventTracker.
func (t *StdByteEventTracker) SetCallback(cb ByteEventCallback) {
	t.callback = cb
}

// SetStats implements ByteEventTracker.
func (t *StdByteEventTracker) SetStats(stats Stats) {
	t.stats = stats
}

// RegisterByteEvent implements ByteEventTracker.
func (t *StdByteEventTracker) RegisterByteEvent(offset uint64, kind ByteEventKind, txn Transaction) {
	t.pending = append(t.pending, ByteEvent{
		Offset:       offset,
		Kind:         kind,
		Txn:          txn,
		RegisteredAt: time.Now(),
	})
}

// ProcessByteEvents implements ByteEventTracker. The callback may register
// follow-up events re-entrantly; they stay pending for a later call.
func (t *StdByteEventTracker) ProcessByteEvents(ackedOffset uint64) int {
	fired := 0
	snapshot := t.pending
	remaining := make([]ByteEvent, 0, len(snapshot))
	for _, ev := range snapshot {
		if ev.Offset > ackedOffset {
			remaining = append(remaining, ev)
			continue
		}
		fired++
		if ev.Kind == ByteEventLastByte && t.stats != nil {
			t.stats.RecordTTLB(time.Since(ev.RegisteredAt))
		}
		if t.callback != nil {
			t.callback.OnByteEvent(ev)
		}
	}
	// Events armed from inside the callback landed past the snapshot.
	if len(t.pending) > len(snapshot) {
		remaining = append(remaining, t.pending[len(snapshot):]...)
	}
	t.pending = remaining
	if fired > 0 {
		logger.Debug("processed byte events",
			logger.KeyByteEvents, fired,
			logger.KeyOffset, ackedOffset)
	}
	return fired
}

// PendingByteEvents implements ByteEventTracker.
func (t *StdByteEventTracker) PendingByteEvents() int {
	return len(t.pending)
}

// DrainPendingEvents implements ByteEventTracker.
func (t *StdByteEventTracker) DrainPendingEvents() []ByteEvent {
	drained := t.pending
	t.pending = nil
	return drained
}

// Absorb implements ByteEventTracker. Absorbed events keep their original
// registration timestamps so TTLB measurements survive the replacement.
func (t *StdByteEventTracker) Absorb(other ByteEventTracker) {
	if other == nil {
		return
	}
	t.pending = append(t.pending, other.DrainPendingEvents()...)
}
