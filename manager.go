package silosession

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/silotrack/silosession/internal/notify"
)

// Manager owns the session token lifecycle: it persists the pair through a
// [Store], exchanges refresh tokens for access tokens, and signals forced
// logouts. Construct it with [Builder.Build].
type Manager struct {
	config  Config
	baseURL *url.URL
	store   Store
	bare    *http.Client
	events  *notify.Dispatcher
	metrics *Metrics
	clock   clockwork.Clock
	log     logrus.FieldLogger

	group      singleflight.Group
	refreshing atomic.Int32
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type registerResponse struct {
	ID           int64  `json:"id"`
	Nome         string `json:"nome"`
	Email        string `json:"email"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Store returns the configured token store.
func (m *Manager) Store() Store {
	return m.store
}

// Metrics returns the manager's counters.
func (m *Manager) Metrics() *Metrics {
	return m.metrics
}

// Config returns a copy of the active configuration.
func (m *Manager) Config() Config {
	return cloneConfig(m.config)
}

// Close flushes and stops the event dispatcher. The Manager must not be
// used afterwards.
func (m *Manager) Close() {
	m.events.Close()
}

// Login exchanges credentials for a token pair and persists it.
func (m *Manager) Login(ctx context.Context, email, senha string) (LoginResult, error) {
	body := map[string]string{"email": email, "senha": senha}

	resp, err := m.postJSON(ctx, m.config.Endpoints.LoginPath, body, "")
	if err != nil {
		m.metrics.Inc(MetricLoginFailure)
		return LoginResult{}, fmt.Errorf("login: %w", err)
	}
	defer drain(resp)

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized:
		m.metrics.Inc(MetricLoginFailure)
		m.emit(ctx, EventLoginFailure, m.config.Endpoints.LoginPath, resp.StatusCode, ErrInvalidCredentials)
		return LoginResult{}, ErrInvalidCredentials
	default:
		m.metrics.Inc(MetricLoginFailure)
		m.emit(ctx, EventLoginFailure, m.config.Endpoints.LoginPath, resp.StatusCode, ErrUnexpectedStatus)
		return LoginResult{}, fmt.Errorf("login: %w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		m.metrics.Inc(MetricLoginFailure)
		return LoginResult{}, fmt.Errorf("login: decode response: %w", err)
	}

	expiresIn := time.Duration(tr.ExpiresIn) * time.Second
	if err := m.SaveTokens(ctx, tr.AccessToken, tr.RefreshToken, expiresIn); err != nil {
		return LoginResult{}, err
	}

	m.metrics.Inc(MetricLoginSuccess)
	m.emit(ctx, EventLoginSuccess, m.config.Endpoints.LoginPath, resp.StatusCode, nil)
	m.log.WithField("endpoint", m.config.Endpoints.LoginPath).Debug("login succeeded")

	return LoginResult{TokenPair: TokenPair{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresIn:    expiresIn,
	}}, nil
}

// Register creates an account. The backend issues a token pair on success,
// which is persisted: registration logs the new account in.
func (m *Manager) Register(ctx context.Context, req RegisterRequest) (RegisterResult, error) {
	body := map[string]string{
		"nome":  req.Nome,
		"email": req.Email,
		"senha": req.Senha,
	}
	if req.FotoPerfil != "" {
		body["foto_perfil"] = req.FotoPerfil
	}

	resp, err := m.postJSON(ctx, m.config.Endpoints.RegisterPath, body, "")
	if err != nil {
		m.metrics.Inc(MetricRegisterFailure)
		return RegisterResult{}, fmt.Errorf("register: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		m.metrics.Inc(MetricRegisterFailure)
		return RegisterResult{}, fmt.Errorf("register: %w: %d", ErrRegistrationRejected, resp.StatusCode)
	}

	var rr registerResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		m.metrics.Inc(MetricRegisterFailure)
		return RegisterResult{}, fmt.Errorf("register: decode response: %w", err)
	}

	expiresIn := time.Duration(rr.ExpiresIn) * time.Second
	if err := m.SaveTokens(ctx, rr.AccessToken, rr.RefreshToken, expiresIn); err != nil {
		return RegisterResult{}, err
	}

	m.metrics.Inc(MetricRegisterSuccess)

	return RegisterResult{
		TokenPair: TokenPair{
			AccessToken:  rr.AccessToken,
			RefreshToken: rr.RefreshToken,
			ExpiresIn:    expiresIn,
		},
		UserID: rr.ID,
		Nome:   rr.Nome,
		Email:  rr.Email,
	}, nil
}

// SaveTokens persists a pair. A positive expiresIn records an absolute
// expiry of now + expiresIn; zero records none, leaving expiry discovery to
// the 401 path.
func (m *Manager) SaveTokens(ctx context.Context, access, refresh string, expiresIn time.Duration) error {
	var expiresAt time.Time
	if expiresIn > 0 {
		expiresAt = m.clock.Now().Add(expiresIn)
	}
	if err := m.store.SaveTokens(ctx, access, refresh, expiresAt); err != nil {
		return fmt.Errorf("save tokens: %w", err)
	}
	return nil
}

// IsAuthenticated reports whether an access token is stored. Token presence
// is the sole synchronous definition of "authenticated"; validity is only
// discovered by using it.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	access, err := m.store.AccessToken(ctx)
	return err == nil && access != ""
}

// IsExpired reports whether a recorded expiry has passed. Without a recorded
// expiry it reports false: the token is assumed usable until a 401 proves
// otherwise.
func (m *Manager) IsExpired(ctx context.Context) bool {
	expiresAt, err := m.store.ExpiresAt(ctx)
	if err != nil || expiresAt.IsZero() {
		return false
	}
	return !m.clock.Now().Before(expiresAt)
}

// State reports the observable session state.
func (m *Manager) State(ctx context.Context) State {
	if m.refreshing.Load() > 0 {
		return StateRefreshing
	}
	if !m.IsAuthenticated(ctx) {
		return StateUnauthenticated
	}
	expiresAt, err := m.store.ExpiresAt(ctx)
	if err == nil && !expiresAt.IsZero() && m.clock.Now().Before(expiresAt) {
		return StateAuthenticated
	}
	return StateUnverified
}

// Refresh exchanges the stored refresh token for a new access token and
// persists it; the refresh token itself is preserved unchanged. On any
// failure — no refresh token, rejection, or network error — the store is
// cleared, EventAuthFailure is emitted exactly once, and [ErrNoRefreshToken]
// or [ErrRefreshRejected] is returned. Refresh is never retried.
//
// Concurrent callers share a single in-flight refresh unless
// Config.Refresh.DisableSingleFlight is set.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	if m.config.Refresh.DisableSingleFlight {
		return m.refresh(ctx)
	}

	v, err, shared := m.group.Do("refresh", func() (interface{}, error) {
		// Detached from the first caller's context: waiters must not lose
		// the shared result because the initiating request was canceled.
		return m.refresh(context.WithoutCancel(ctx))
	})
	if shared {
		m.metrics.Inc(MetricRefreshShared)
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *Manager) refresh(ctx context.Context) (string, error) {
	m.refreshing.Add(1)
	defer m.refreshing.Add(-1)

	refresh, err := m.store.RefreshToken(ctx)
	if err != nil {
		return "", m.failAuth(ctx, 0, fmt.Errorf("refresh: %w", err))
	}
	if refresh == "" {
		return "", m.failAuth(ctx, 0, ErrNoRefreshToken)
	}

	rctx := ctx
	if m.config.Refresh.Timeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, m.config.Refresh.Timeout)
		defer cancel()
	}

	// The refresh call goes through the bare client, never the intercepting
	// transport: a 401 here must not recurse into another refresh.
	resp, err := m.postJSON(rctx, m.config.Endpoints.RefreshPath, map[string]string{"refresh_token": refresh}, "")
	if err != nil {
		return "", m.failAuth(ctx, 0, fmt.Errorf("%w: %v", ErrRefreshRejected, err))
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return "", m.failAuth(ctx, resp.StatusCode, ErrRefreshRejected)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", m.failAuth(ctx, resp.StatusCode, fmt.Errorf("%w: decode: %v", ErrRefreshRejected, err))
	}

	// The backend does not rotate refresh tokens: the stored one is written
	// back alongside the new access token.
	expiresIn := time.Duration(tr.ExpiresIn) * time.Second
	if err := m.SaveTokens(ctx, tr.AccessToken, refresh, expiresIn); err != nil {
		return "", err
	}

	m.metrics.Inc(MetricRefreshSuccess)
	m.emit(ctx, EventRefreshSuccess, m.config.Endpoints.RefreshPath, resp.StatusCode, nil)
	m.log.WithField("endpoint", m.config.Endpoints.RefreshPath).Debug("access token refreshed")

	return tr.AccessToken, nil
}

// failAuth is the irrecoverable-refresh path: clear the store, notify once,
// surface the error.
func (m *Manager) failAuth(ctx context.Context, status int, cause error) error {
	m.metrics.Inc(MetricRefreshFailure)
	m.emit(ctx, EventRefreshFailure, m.config.Endpoints.RefreshPath, status, cause)

	if err := m.store.Clear(ctx); err != nil {
		m.log.WithError(err).Warn("token store clear failed during forced logout")
	}

	m.metrics.Inc(MetricAuthFailure)
	m.emit(ctx, EventAuthFailure, m.config.Endpoints.RefreshPath, status, cause)
	m.log.WithError(cause).WithField("status", status).Warn("session refresh failed, forcing logout")

	return cause
}

// Exchange performs a stateless refresh: it trades the given refresh token
// for a new access token without touching the store or emitting events. The
// edge middleware uses it to refresh cookie-held sessions. Concurrent calls
// with the same token share one backend call.
func (m *Manager) Exchange(ctx context.Context, refreshToken string) (TokenPair, error) {
	if refreshToken == "" {
		return TokenPair{}, ErrNoRefreshToken
	}

	if m.config.Refresh.DisableSingleFlight {
		return m.exchange(ctx, refreshToken)
	}

	v, err, _ := m.group.Do("exchange:"+refreshToken, func() (interface{}, error) {
		return m.exchange(context.WithoutCancel(ctx), refreshToken)
	})
	if err != nil {
		return TokenPair{}, err
	}
	return v.(TokenPair), nil
}

func (m *Manager) exchange(ctx context.Context, refreshToken string) (TokenPair, error) {
	rctx := ctx
	if m.config.Refresh.Timeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, m.config.Refresh.Timeout)
		defer cancel()
	}

	resp, err := m.postJSON(rctx, m.config.Endpoints.RefreshPath, map[string]string{"refresh_token": refreshToken}, "")
	if err != nil {
		m.metrics.Inc(MetricRefreshFailure)
		return TokenPair{}, fmt.Errorf("%w: %v", ErrRefreshRejected, err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		m.metrics.Inc(MetricRefreshFailure)
		return TokenPair{}, fmt.Errorf("%w: %d", ErrRefreshRejected, resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		m.metrics.Inc(MetricRefreshFailure)
		return TokenPair{}, fmt.Errorf("%w: decode: %v", ErrRefreshRejected, err)
	}

	m.metrics.Inc(MetricRefreshSuccess)

	return TokenPair{
		AccessToken:  tr.AccessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    time.Duration(tr.ExpiresIn) * time.Second,
	}, nil
}

// Verify asks the backend whether the stored access token is valid.
func (m *Manager) Verify(ctx context.Context) error {
	access, err := m.store.AccessToken(ctx)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	if access == "" {
		return ErrNotAuthenticated
	}
	return m.VerifyAccess(ctx, access)
}

// VerifyAccess asks the backend whether the given access token is valid.
// The edge middleware uses it against cookie-held tokens.
func (m *Manager) VerifyAccess(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.endpointURL(m.config.Endpoints.VerifyPath), nil)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	m.setCommonHeaders(req)

	resp, err := m.bare.Do(req)
	if err != nil {
		m.metrics.Inc(MetricVerifyFailure)
		return fmt.Errorf("verify: %w", err)
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusOK:
		m.metrics.Inc(MetricVerifySuccess)
		return nil
	case http.StatusUnauthorized:
		m.metrics.Inc(MetricVerifyFailure)
		return ErrAccessRejected
	default:
		m.metrics.Inc(MetricVerifyFailure)
		return fmt.Errorf("verify: %w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
}

// Logout is client-side only: it clears the store and notifies. The backend
// has no logout endpoint.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	m.metrics.Inc(MetricLogout)
	m.emit(ctx, EventLogout, "", 0, nil)
	return nil
}

// Client returns an *http.Client whose transport attaches the stored bearer
// token and transparently retries once after a refreshed 401.
func (m *Manager) Client() *http.Client {
	return &http.Client{
		Transport: m.Transport(nil),
		Timeout:   m.config.HTTP.Timeout,
	}
}

// Transport wraps base (nil means http.DefaultTransport) with the
// authenticated interceptor.
func (m *Manager) Transport(base http.RoundTripper) *Transport {
	return &Transport{manager: m, base: base}
}

func (m *Manager) emit(ctx context.Context, eventType, endpoint string, status int, cause error) {
	if m.events == nil {
		return
	}
	event := Event{
		Timestamp: m.clock.Now(),
		Type:      eventType,
		Endpoint:  endpoint,
		Status:    status,
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	m.events.Emit(ctx, event)
}

func (m *Manager) endpointURL(path string) string {
	u := *m.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	return u.String()
}

// isAuthPath reports whether path targets an auth endpoint that the
// transport must never retry after a 401. Paths are resolved against the
// base URL, so a backend mounted under a prefix ("/api") is still exempted.
func (m *Manager) isAuthPath(path string) bool {
	base := strings.TrimSuffix(m.baseURL.Path, "/")
	for _, p := range []string{
		m.config.Endpoints.LoginPath,
		m.config.Endpoints.RegisterPath,
		m.config.Endpoints.RefreshPath,
	} {
		full := base + p
		if path == full || strings.HasPrefix(path, full+"/") {
			return true
		}
	}
	return false
}

func (m *Manager) setCommonHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if m.config.HTTP.UserAgent != "" {
		req.Header.Set("User-Agent", m.config.HTTP.UserAgent)
	}
}

func (m *Manager) postJSON(ctx context.Context, path string, body interface{}, bearer string) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpointURL(path), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	m.setCommonHeaders(req)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	return m.bare.Do(req)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
