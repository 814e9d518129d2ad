// Package authtest is an in-process stand-in for the inventory backend's
// auth surface. Tests, the probe command, and the examples run against it
// instead of a live server.
//
// It issues real HS256 JWTs, honors the login / registro / refresh_token /
// verify contract, and serves a small guarded slice of the inventory API.
// Fault injection hooks let tests force expiry ([Server.InvalidateAccessTokens])
// and refresh rejection ([Server.SetRejectRefresh]); call counters expose how
// many refreshes actually reached the backend.
package authtest
