// Package silo is a typed client for the grain-silo inventory API. It
// covers warehouses, grains, contracts, and stock movements, speaking the
// backend's wire format (Portuguese field names, skip/limit pagination,
// PATCH partial updates).
//
// # Architecture boundaries
//
// The client is session-agnostic: it sends whatever requests it is given
// through the *http.Client it was constructed with. Pass it the client from
// Manager.Client() and authentication, refresh, and retry happen below it in
// the transport.
//
// # What this package must NOT do
//
//   - Read, write, or refresh tokens.
//   - Inspect Authorization headers or 401 bodies beyond surfacing them.
package silo
