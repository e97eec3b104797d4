// Package session implements the accounting and delegation core shared by
// every HTTP protocol session (HTTP/1.x and HTTP/2) in the server.
//
// # Architecture
//
// The package provides:
//   - Base: per-session state shared by all protocol implementations -
//     ingress flow-control accounting, byte-event tracker ownership, the
//     controller binding, error dispatch, and normalized addresses
//   - WatermarkCounter: edge-triggered threshold detection over the total
//     unconsumed ingress bytes buffered across a session's transactions
//   - ByteEventTracker: shared-ownership byte timing tracker with
//     absorb-on-replace semantics, plus the default StdByteEventTracker
//   - Controller, Transaction, Handler, InfoCallback: the delegation
//     contracts concrete servers plug into
//
// # Flow control
//
// Ingress body bytes enter through Base.OnBody and leave through
// Base.NotifyBodyProcessed. Both return a boolean that is true only on a
// threshold edge: OnBody when buffered bytes first exceed the session
// limit, NotifyBodyProcessed when they drop back to at-or-below it. Read
// loops pause on the first edge and resume on the second; intermediate
// calls that stay on one side of the limit signal nothing.
//
// # Ownership
//
// A session exclusively owns its codec, counters, and addresses. The
// byte-event tracker is shared with transport callback machinery, so
// replacing it merges (absorbs) pending events into the replacement. The
// controller reference is non-owning and is detached exactly once during
// teardown.
//
// # Concurrency
//
// A session is mutated only by its owning connection goroutine; nothing in
// this package blocks. Callbacks run synchronously and may destroy the
// session re-entrantly - public entry points hold a lifetime guard that
// defers teardown until the call returns.
package session
