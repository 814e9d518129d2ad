package silosession

import (
	"net/http"
)

// Transport is an http.RoundTripper that attaches the stored access token
// as a bearer credential and, on a 401, refreshes once and replays the
// request. Obtain one via [Manager.Client] or [Manager.Transport].
//
// The retry happens at most once per request by construction: the replay
// goes straight to the base transport, never back through Transport.
type Transport struct {
	manager *Manager
	base    http.RoundTripper
}

func (t *Transport) transport() http.RoundTripper {
	if t.base != nil {
		return t.base
	}
	return http.DefaultTransport
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	m := t.manager
	ctx := req.Context()

	access, err := m.store.AccessToken(ctx)
	if err != nil {
		// A broken store means the session is unknowable; fail the request
		// rather than send it anonymously.
		return nil, err
	}

	outgoing := req.Clone(ctx)
	if access != "" {
		outgoing.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := t.transport().RoundTrip(outgoing)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	// Auth endpoints answer 401 as a verdict on credentials, not on the
	// session; refreshing because of them would loop.
	if m.isAuthPath(req.URL.Path) {
		return resp, nil
	}

	// A consumed one-shot body cannot be replayed. Hand the 401 back.
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}

	newAccess, rerr := m.Refresh(ctx)
	if rerr != nil {
		// Refresh already cleared the store and signaled the forced logout.
		// The caller sees the original 401.
		return resp, nil
	}

	drain(resp)

	retry := req.Clone(ctx)
	if req.GetBody != nil {
		body, berr := req.GetBody()
		if berr != nil {
			return nil, berr
		}
		retry.Body = body
	}
	retry.Header.Set("Authorization", "Bearer "+newAccess)

	m.metrics.Inc(MetricRetryAfter401)
	m.log.WithField("path", req.URL.Path).Debug("replaying request with refreshed token")

	resp2, err2 := t.transport().RoundTrip(retry)
	if err2 == nil && resp2.StatusCode == http.StatusUnauthorized {
		// Fresh token, still rejected. No further retries; the 401 stands.
		m.metrics.Inc(MetricRetryExhausted)
	}
	return resp2, err2
}
