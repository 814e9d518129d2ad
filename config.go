package silosession

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Config holds the manager's settings. Configure it before [Builder.Build];
// the manager works on an immutable clone afterwards.
type Config struct {
	Endpoints EndpointsConfig
	Refresh   RefreshConfig
	Expiry    ExpiryConfig
	Events    EventsConfig
	Metrics   MetricsConfig
	HTTP      HTTPConfig
}

/*
====================================
ENDPOINTS CONFIG
====================================
*/

// EndpointsConfig names the backend auth endpoints. Paths are matched by the
// transport to exempt auth calls from the 401 retry loop, so they must be
// kept in sync with the backend's routing.
type EndpointsConfig struct {
	// BaseURL is the backend origin, e.g. "https://api.example.com".
	BaseURL string

	LoginPath    string // default "/auth/login"
	RegisterPath string // default "/auth/registro"
	RefreshPath  string // default "/auth/refresh_token"
	VerifyPath   string // default "/auth/verify"
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig controls the refresh coordinator.
type RefreshConfig struct {
	// DisableSingleFlight restores the original per-request fan-out: every
	// concurrent 401 triggers its own refresh call. Leave false unless a
	// deployment depends on redundant refresh traffic.
	DisableSingleFlight bool

	// Timeout bounds the refresh network call. Zero means the HTTP client's
	// default behavior.
	Timeout time.Duration
}

/*
====================================
EXPIRY CONFIG
====================================
*/

// ExpiryConfig carries the cookie lifetimes used by the edge middleware when
// the server does not announce expires_in.
type ExpiryConfig struct {
	// AccessFallbackTTL is the access cookie max-age when the refresh
	// response carries no expires_in.
	AccessFallbackTTL time.Duration
	// RefreshTTL is the refresh cookie max-age.
	RefreshTTL time.Duration
}

/*
====================================
EVENTS / METRICS / HTTP
====================================
*/

// EventsConfig controls the async event dispatcher.
type EventsConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// HTTPConfig controls the bare HTTP client used for auth endpoint calls.
type HTTPConfig struct {
	Timeout   time.Duration
	UserAgent string
}

// DefaultConfig returns the browser-client preset: single-flight refresh,
// metrics on, events off.
func DefaultConfig() Config {
	return defaultConfig()
}

// MobileConfig returns the mobile preset: events enabled with a small buffer
// so an onAuthFail callback sink can transition the UI.
func MobileConfig() Config {
	cfg := defaultConfig()
	cfg.Events.Enabled = true
	cfg.Events.BufferSize = 16
	return cfg
}

// EdgeConfig returns the edge middleware preset: a tight refresh timeout so
// a slow backend cannot stall page navigation indefinitely.
func EdgeConfig() Config {
	cfg := defaultConfig()
	cfg.Refresh.Timeout = 5 * time.Second
	cfg.HTTP.Timeout = 5 * time.Second
	return cfg
}

func defaultConfig() Config {
	return Config{
		Endpoints: EndpointsConfig{
			LoginPath:    "/auth/login",
			RegisterPath: "/auth/registro",
			RefreshPath:  "/auth/refresh_token",
			VerifyPath:   "/auth/verify",
		},
		Refresh: RefreshConfig{
			Timeout: 10 * time.Second,
		},
		Expiry: ExpiryConfig{
			AccessFallbackTTL: 7 * 24 * time.Hour,
			RefreshTTL:        30 * 24 * time.Hour,
		},
		Events: EventsConfig{
			BufferSize: 16,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		HTTP: HTTPConfig{
			Timeout: 15 * time.Second,
		},
	}
}

func cloneConfig(cfg Config) Config {
	// All fields are value types; a shallow copy is a deep copy.
	return cfg
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	if c.Endpoints.BaseURL == "" {
		return errors.New("Endpoints BaseURL is required")
	}
	u, err := url.Parse(c.Endpoints.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("Endpoints BaseURL must be an absolute URL")
	}

	for _, p := range []struct {
		name, value string
	}{
		{"LoginPath", c.Endpoints.LoginPath},
		{"RegisterPath", c.Endpoints.RegisterPath},
		{"RefreshPath", c.Endpoints.RefreshPath},
		{"VerifyPath", c.Endpoints.VerifyPath},
	} {
		if p.value == "" {
			return errors.New("Endpoints " + p.name + " is required")
		}
		if !strings.HasPrefix(p.value, "/") {
			return errors.New("Endpoints " + p.name + " must start with /")
		}
	}

	if c.Refresh.Timeout < 0 {
		return errors.New("Refresh Timeout must be >= 0")
	}
	if c.Expiry.AccessFallbackTTL <= 0 {
		return errors.New("Expiry AccessFallbackTTL must be > 0")
	}
	if c.Expiry.RefreshTTL <= 0 {
		return errors.New("Expiry RefreshTTL must be > 0")
	}
	if c.Events.Enabled && c.Events.BufferSize <= 0 {
		return errors.New("Events BufferSize must be > 0 when events are enabled")
	}
	if c.HTTP.Timeout < 0 {
		return errors.New("HTTP Timeout must be >= 0")
	}

	return nil
}
