package silosession

import (
	"context"
	"io"
	"time"

	internalnotify "github.com/silotrack/silosession/internal/notify"
)

// Store is the persistence adapter for the token pair. Implementations are
// platform-specific: [MemoryStore] for in-process callers, [FileStore] for
// devices with a local data directory, [RedisStore] for server-side
// deployments that share one session across processes.
//
// Invariants every implementation must keep:
//
//   - SaveTokens writes both tokens in one operation; a reader never observes
//     an access token without its refresh token.
//   - Clear removes all keys atomically from the caller's perspective and is
//     idempotent.
//   - Absent values are returned as zero values, not errors. Errors mean the
//     underlying storage failed, and callers treat that as logged out.
type Store interface {
	AccessToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (string, error)

	// SaveTokens persists the pair. A zero expiresAt means the server did not
	// announce a lifetime and expiry is discovered through 401s only.
	SaveTokens(ctx context.Context, access, refresh string, expiresAt time.Time) error

	// ExpiresAt returns the recorded absolute expiry, or the zero time when
	// none was recorded.
	ExpiresAt(ctx context.Context) (time.Time, error)

	Clear(ctx context.Context) error
}

// State is the observable session state of a [Manager].
type State uint8

const (
	// StateUnauthenticated means no usable tokens are stored.
	StateUnauthenticated State = iota
	// StateUnverified means an access token is stored but its validity is
	// unknown until the next request (no expiry recorded, or expiry passed).
	StateUnverified
	// StateRefreshing means a refresh call is in flight.
	StateRefreshing
	// StateAuthenticated means an access token is stored and its recorded
	// expiry is in the future.
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateUnverified:
		return "unverified"
	case StateRefreshing:
		return "refreshing"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// TokenPair is the credential pair issued by login, registration, and
// refresh. Both tokens are opaque strings.
type TokenPair struct {
	AccessToken  string
	RefreshToken string

	// ExpiresIn is the server-announced access token lifetime; zero when the
	// server did not announce one.
	ExpiresIn time.Duration
}

// LoginResult is returned by [Manager.Login].
type LoginResult struct {
	TokenPair
}

// RegisterRequest is the input for [Manager.Register]. Field names follow
// the backend contract (Portuguese wire names).
type RegisterRequest struct {
	Nome       string
	Email      string
	Senha      string
	FotoPerfil string
}

// RegisterResult is returned by [Manager.Register]. Registration logs the
// new account in: the issued pair is persisted before this is returned.
type RegisterResult struct {
	TokenPair

	UserID int64
	Nome   string
	Email  string
}

// Event is a session lifecycle notification delivered to the configured
// [Sink]: login outcomes, refresh outcomes, and forced logouts.
type Event = internalnotify.Event

// Event types carried in [Event].Type.
const (
	EventLoginSuccess   = internalnotify.EventLoginSuccess
	EventLoginFailure   = internalnotify.EventLoginFailure
	EventRefreshSuccess = internalnotify.EventRefreshSuccess
	EventRefreshFailure = internalnotify.EventRefreshFailure
	EventAuthFailure    = internalnotify.EventAuthFailure
	EventLogout         = internalnotify.EventLogout
)

// Sink receives [Event] values from the manager's dispatcher.
type Sink = internalnotify.Sink

// NoOpSink is a [Sink] that silently discards all events.
type NoOpSink = internalnotify.NoOpSink

// CallbackSink invokes a function per event. This is the mobile call-site
// adapter: register the app's onAuthFail handler and filter on
// [EventAuthFailure] to drop the UI to the login screen.
type CallbackSink = internalnotify.CallbackSink

// ChannelSink is a buffered channel-based [Sink].
type ChannelSink = internalnotify.ChannelSink

// JSONWriterSink writes one JSON-encoded event per line to an [io.Writer].
type JSONWriterSink = internalnotify.JSONWriterSink

// NewCallbackSink creates a [CallbackSink] invoking fn for every event.
func NewCallbackSink(fn func(Event)) *CallbackSink {
	return internalnotify.NewCallbackSink(fn)
}

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalnotify.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalnotify.NewJSONWriterSink(w)
}
