// Package silosession implements the session token lifecycle shared by the
// silo inventory clients: bearer-token storage, a 401-triggered
// refresh-and-retry HTTP transport, and a refresh coordinator with
// single-flight deduplication.
//
// The package is the client side of the /auth contract. It never mints or
// inspects tokens — access and refresh tokens are opaque strings issued by
// the backend and echoed back as Authorization: Bearer headers or refresh
// bodies.
//
// # Architecture boundaries
//
// silosession is the public surface. It exposes [Manager], [Builder],
// [Config], [Transport], the [Store] adapters, and value types. Event
// dispatch lives under internal/ and is re-exported through type aliases.
// Platform adapters build on top: the middleware package turns the Manager
// into an edge gatekeeper, the silo package into a typed inventory API
// client, and authtest provides an in-process backend double.
//
// # What this package must NOT do
//
//   - Parse, validate, or create tokens (they are opaque to every call site).
//   - Perform network I/O before a request is sent: the transport only reads
//     the local store when attaching credentials.
//   - Retry a request more than once, or retry the refresh call itself.
//
// # Concurrency contract
//
// Manager methods are safe to call from multiple goroutines after
// [Builder.Build]. Concurrent 401s collapse into a single in-flight refresh
// whose result all waiting requests share; see
// Config.Refresh.DisableSingleFlight for the fan-out behavior some
// deployments rely on.
package silosession
