package silosession

import "errors"

var (
	// ErrNotAuthenticated is returned when an operation requires a stored
	// access token and none is present.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNoRefreshToken is returned when a refresh is attempted without a
	// stored refresh token. No network call is made.
	ErrNoRefreshToken = errors.New("no refresh token stored")
	// ErrRefreshRejected is returned when the refresh endpoint rejects the
	// refresh token or cannot be reached. When Refresh returns it, the store
	// has already been cleared; Exchange leaves the caller's cookies alone.
	ErrRefreshRejected = errors.New("refresh token rejected")
	// ErrInvalidCredentials is returned by Login when the backend answers 401.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRegistrationRejected is returned by Register on a non-2xx response,
	// typically a duplicate email.
	ErrRegistrationRejected = errors.New("registration rejected")
	// ErrAccessRejected is returned by Verify when the backend does not
	// accept the access token.
	ErrAccessRejected = errors.New("access token rejected")
	// ErrUnexpectedStatus wraps responses outside the contract (neither
	// success nor 401) on auth endpoints.
	ErrUnexpectedStatus = errors.New("unexpected response status")
)
