package silosession

import (
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/silotrack/silosession/internal/notify"
)

// Builder assembles a [Manager]. Configure it once, call [Builder.Build],
// and discard it; a builder cannot be reused.
type Builder struct {
	config Config

	store      Store
	httpClient *http.Client
	notifier   Sink
	logger     logrus.FieldLogger
	clock      clockwork.Clock

	built bool
}

// New returns a Builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBaseURL sets the backend origin.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.Endpoints.BaseURL = baseURL
	return b
}

// WithStore sets the token store adapter.
func (b *Builder) WithStore(store Store) *Builder {
	b.store = store
	return b
}

// WithRedis is shorthand for WithStore(NewRedisStore(client, prefix)).
func (b *Builder) WithRedis(client redis.UniversalClient, prefix string) *Builder {
	b.store = NewRedisStore(client, prefix)
	return b
}

// WithHTTPClient sets the client used for direct auth endpoint calls
// (login, register, refresh, verify). Its transport also serves as the base
// for [Manager.Client]. When unset, a client with Config.HTTP.Timeout is used.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithNotifier sets the sink receiving session lifecycle events and enables
// event dispatch.
func (b *Builder) WithNotifier(sink Sink) *Builder {
	b.notifier = sink
	b.config.Events.Enabled = true
	return b
}

// WithLogger sets the structured logger. When unset, log output is discarded.
func (b *Builder) WithLogger(logger logrus.FieldLogger) *Builder {
	b.logger = logger
	return b
}

// WithClock sets the time source, used to compute and compare token expiry.
func (b *Builder) WithClock(clock clockwork.Clock) *Builder {
	b.clock = clock
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and wires the Manager.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.store == nil {
		return nil, errors.New("token store required (WithStore, WithRedis, or NewMemoryStore)")
	}

	baseURL, err := url.Parse(cfg.Endpoints.BaseURL)
	if err != nil {
		return nil, err
	}

	bare := b.httpClient
	if bare == nil {
		bare = &http.Client{Timeout: cfg.HTTP.Timeout}
	}

	logger := b.logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}

	clock := b.clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	m := &Manager{
		config:  cfg,
		baseURL: baseURL,
		store:   b.store,
		bare:    bare,
		metrics: NewMetrics(cfg.Metrics),
		clock:   clock,
		log:     logger,
		events: notify.NewDispatcher(notify.Config{
			Enabled:    cfg.Events.Enabled,
			BufferSize: cfg.Events.BufferSize,
			DropIfFull: cfg.Events.DropIfFull,
		}, b.notifier),
	}

	b.built = true

	return m, nil
}
