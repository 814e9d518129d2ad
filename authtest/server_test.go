package authtest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func login(t *testing.T, ts *httptest.Server, email, senha string) (string, string) {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"email": email, "senha": senha})
	resp, err := http.Post(ts.URL+"/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login returned %d", resp.StatusCode)
	}

	var out struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return out.AccessToken, out.RefreshToken
}

func verify(t *testing.T, ts *httptest.Server, access string) int {
	t.Helper()

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/auth/verify", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("verify request failed: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestLoginVerifyInvalidate(t *testing.T) {
	srv := NewServer()
	srv.Seed("Tester", "t@example.com", "senha")
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	access, refresh := login(t, ts, "t@example.com", "senha")

	if got := verify(t, ts, access); got != http.StatusOK {
		t.Fatalf("fresh token must verify, got %d", got)
	}

	srv.InvalidateAccessTokens()
	if got := verify(t, ts, access); got != http.StatusUnauthorized {
		t.Fatalf("invalidated token must 401, got %d", got)
	}

	// Refresh tokens survive invalidation.
	body, _ := json.Marshal(map[string]string{"refresh_token": refresh})
	resp, err := http.Post(ts.URL+"/auth/refresh_token", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("refresh request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh must succeed after invalidation, got %d", resp.StatusCode)
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode refresh response: %v", err)
	}
	if got := verify(t, ts, out.AccessToken); got != http.StatusOK {
		t.Fatalf("refreshed token must verify, got %d", got)
	}
}

func TestRefreshTokenRejectedAsAccessToken(t *testing.T) {
	srv := NewServer()
	srv.Seed("Tester", "t@example.com", "senha")
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	_, refresh := login(t, ts, "t@example.com", "senha")
	if got := verify(t, ts, refresh); got != http.StatusUnauthorized {
		t.Fatalf("a refresh token must not pass as an access token, got %d", got)
	}
}

func TestGuardedResourceRequiresToken(t *testing.T) {
	srv := NewServer()
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/graos")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", resp.StatusCode)
	}
}
