// Package middleware implements the edge gatekeeper: an http.Handler wrapper
// that classifies each request as public or protected, verifies or refreshes
// the cookie-held session against the backend, and redirects accordingly.
//
// # Guards
//
//   - [Gate] — cookie-based route protection with transparent refresh.
//   - [SessionFromContext] — access token of the request that passed the gate.
//
// The gate reads the access_token and refresh_token cookies, calls
// Manager.VerifyAccess and Manager.Exchange, and rewrites the access cookie
// when a refresh produced a new token.
//
// # Architecture boundaries
//
// This package translates HTTP and cookie semantics into Manager calls. It
// does NOT implement session logic itself — validity and refresh decisions
// are delegated to the Manager.
//
// # What this package must NOT do
//
//   - Parse or inspect token contents (tokens are opaque strings).
//   - Persist tokens anywhere but response cookies.
//   - Call the backend when no session cookie exists at all.
package middleware
