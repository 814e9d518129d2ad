// Package notify implements async event dispatching for session lifecycle
// notifications.
//
// # Components
//
//   - [Sink] — interface for event consumers (callback, channel, JSON writer, no-op).
//   - [Dispatcher] — buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event] — structured record with timestamp, type, endpoint, status, error.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which
// events to emit — that responsibility belongs to the Manager.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on session state.
//   - Import silosession or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package notify
