package silosession

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/silotrack/silosession/authtest"
)

func TestTransportAttachesBearerToken(t *testing.T) {
	ctx := context.Background()
	_, baseURL := newTestBackend(t)
	manager := newTestManager(t, baseURL)

	var seen atomic.Value
	probe := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.Store(r.Header.Get("Authorization"))
	}))
	t.Cleanup(probe.Close)

	if _, err := manager.Login(ctx, testEmail, testSenha); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	access, _ := manager.Store().AccessToken(ctx)

	resp, err := manager.Client().Get(probe.URL + "/anything")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if got := seen.Load(); got != "Bearer "+access {
		t.Fatalf("expected bearer header with stored token, got %q", got)
	}
}

func TestTransportOmitsHeaderWhenLoggedOut(t *testing.T) {
	_, baseURL := newTestBackend(t)
	manager := newTestManager(t, baseURL)

	var seen atomic.Value
	probe := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.Store(r.Header.Get("Authorization"))
	}))
	t.Cleanup(probe.Close)

	resp, err := manager.Client().Get(probe.URL + "/anything")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if got := seen.Load(); got != "" {
		t.Fatalf("expected no Authorization header, got %q", got)
	}
}

func TestTransportRefreshesAndRetriesOn401(t *testing.T) {
	ctx := context.Background()
	backend, baseURL := newTestBackend(t)
	manager := newTestManager(t, baseURL)

	if _, err := manager.Login(ctx, testEmail, testSenha); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	backend.InvalidateAccessTokens()

	// The caller sees only the final 200; the 401, refresh, and replay are
	// invisible.
	resp, err := manager.Client().Get(baseURL + "/graos")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 after transparent retry, got %d", resp.StatusCode)
	}

	if backend.RefreshCalls() != 1 {
		t.Fatalf("expected exactly one refresh call, got %d", backend.RefreshCalls())
	}
	if got := manager.Metrics().Value(MetricRetryAfter401); got != 1 {
		t.Fatalf("expected 1 retry, got %d", got)
	}
}

func TestTransportRetriesAtMostOnce(t *testing.T) {
	ctx := context.Background()

	var guardedCalls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh_token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fresh","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("GET /guarded", func(w http.ResponseWriter, r *http.Request) {
		guardedCalls.Add(1)
		// Rejects even the refreshed token.
		w.WriteHeader(http.StatusUnauthorized)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	manager := newTestManager(t, ts.URL)
	if err := manager.SaveTokens(ctx, "stale", "ref", 0); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	resp, err := manager.Client().Get(ts.URL + "/guarded")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected the second 401 to surface, got %d", resp.StatusCode)
	}
	if got := guardedCalls.Load(); got != 2 {
		t.Fatalf("expected exactly 2 attempts (original + one retry), got %d", got)
	}
	if got := manager.Metrics().Value(MetricRetryExhausted); got != 1 {
		t.Fatalf("expected retry_exhausted=1, got %d", got)
	}
}

func TestTransportDoesNotRetryAuthEndpoints(t *testing.T) {
	ctx := context.Background()
	backend, baseURL := newTestBackend(t)
	manager := newTestManager(t, baseURL)

	if _, err := manager.Login(ctx, testEmail, testSenha); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	// A 401 from the login endpoint itself must pass through untouched.
	resp, err := manager.Client().Post(baseURL+"/auth/login", "application/json",
		strings.NewReader(`{"email":"x@example.com","senha":"wrong"}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 passthrough, got %d", resp.StatusCode)
	}
	if backend.RefreshCalls() != 0 {
		t.Fatalf("auth endpoint 401 must not trigger a refresh, saw %d", backend.RefreshCalls())
	}
}

// The auth exemption must hold when the backend is mounted under a path
// prefix: the real login path is /api/auth/login, not /auth/login.
func TestTransportDoesNotRetryAuthEndpointsUnderBasePathPrefix(t *testing.T) {
	ctx := context.Background()

	backend := authtest.NewServer()
	backend.Seed("Tester", testEmail, testSenha)
	ts := httptest.NewServer(http.StripPrefix("/api", backend.Handler()))
	t.Cleanup(ts.Close)

	manager := newTestManager(t, ts.URL+"/api")
	if _, err := manager.Login(ctx, testEmail, testSenha); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	resp, err := manager.Client().Post(ts.URL+"/api/auth/login", "application/json",
		strings.NewReader(`{"email":"x@example.com","senha":"wrong"}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 passthrough, got %d", resp.StatusCode)
	}
	if backend.RefreshCalls() != 0 {
		t.Fatalf("prefixed auth endpoint 401 must not trigger a refresh, saw %d", backend.RefreshCalls())
	}
}

// opaqueReader hides the concrete reader type so http.NewRequest cannot
// derive GetBody.
type opaqueReader struct{ io.Reader }

func TestTransportPassesThroughNonReplayableBody(t *testing.T) {
	ctx := context.Background()
	backend, baseURL := newTestBackend(t)
	manager := newTestManager(t, baseURL)

	if _, err := manager.Login(ctx, testEmail, testSenha); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	backend.InvalidateAccessTokens()
	refreshBefore := backend.RefreshCalls()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/armazens",
		opaqueReader{strings.NewReader(`{"nome":"Silo A","capacidade":1000}`)})
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if req.GetBody != nil {
		t.Fatal("test setup: body must not be replayable")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := manager.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("non-replayable body must surface the 401, got %d", resp.StatusCode)
	}
	if backend.RefreshCalls() != refreshBefore {
		t.Fatal("non-replayable body must not trigger a refresh")
	}
}

func TestTransportReplaysRequestBody(t *testing.T) {
	ctx := context.Background()
	backend, baseURL := newTestBackend(t)
	manager := newTestManager(t, baseURL)

	if _, err := manager.Login(ctx, testEmail, testSenha); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	backend.InvalidateAccessTokens()

	resp, err := manager.Client().Post(baseURL+"/armazens", "application/json",
		strings.NewReader(`{"nome":"Silo A","capacidade":1000}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 after retried POST, got %d", resp.StatusCode)
	}
}

func TestTransportSurfacesOriginal401WhenRefreshFails(t *testing.T) {
	ctx := context.Background()
	backend, baseURL := newTestBackend(t)
	manager := newTestManager(t, baseURL)

	if _, err := manager.Login(ctx, testEmail, testSenha); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	backend.InvalidateAccessTokens()
	backend.SetRejectRefresh(true)

	resp, err := manager.Client().Get(baseURL + "/graos")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected original 401 when refresh fails, got %d", resp.StatusCode)
	}
	// The failed refresh forced a logout.
	assertEmptyStore(t, manager.Store())
}

type brokenStore struct{ err error }

func (s brokenStore) AccessToken(context.Context) (string, error)  { return "", s.err }
func (s brokenStore) RefreshToken(context.Context) (string, error) { return "", s.err }
func (s brokenStore) SaveTokens(context.Context, string, string, time.Time) error {
	return s.err
}
func (s brokenStore) ExpiresAt(context.Context) (time.Time, error) { return time.Time{}, s.err }
func (s brokenStore) Clear(context.Context) error                  { return nil }

func TestTransportFailsWhenStoreFails(t *testing.T) {
	storeErr := errors.New("disk on fire")
	_, baseURL := newTestBackend(t)
	manager := newTestManager(t, baseURL, func(b *Builder) { b.WithStore(brokenStore{err: storeErr}) })

	_, err := manager.Client().Get(baseURL + "/graos")
	if err == nil || !strings.Contains(err.Error(), "disk on fire") {
		t.Fatalf("expected store error to fail the request, got: %v", err)
	}
}
