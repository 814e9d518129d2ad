package middleware

import (
	"context"
	"net/http"
	"time"

	silosession "github.com/silotrack/silosession"
)

type sessionContextKey struct{}

// SessionFromContext returns the access token the gate verified or refreshed
// for this request. Handlers use it to call the backend on the visitor's
// behalf.
func SessionFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(sessionContextKey{}).(string)
	return token, ok
}

// Options configures [Gate]. The zero value is completed by defaults
// matching the web client's routes.
type Options struct {
	// LoginPath receives redirects for unauthenticated visitors.
	LoginPath string
	// LandingPath receives redirects for authenticated visitors hitting a
	// public route.
	LandingPath string
	// PublicPaths are routes served without a session (login, registration).
	PublicPaths []string
	// SkipExact and SkipPrefixes bypass the gate entirely.
	SkipExact    []string
	SkipPrefixes []string

	// AccessCookie and RefreshCookie override the default cookie names.
	AccessCookie  string
	RefreshCookie string
	// AccessFallbackTTL caps the rewritten access cookie when the backend
	// reports no lifetime. When zero, the manager's
	// Config.Expiry.AccessFallbackTTL is used.
	AccessFallbackTTL time.Duration
	// Secure marks rewritten cookies HTTPS-only.
	Secure bool
}

func (o *Options) fill(expiry silosession.ExpiryConfig) {
	if o.LoginPath == "" {
		o.LoginPath = "/login"
	}
	if o.LandingPath == "" {
		o.LandingPath = "/"
	}
	if o.PublicPaths == nil {
		o.PublicPaths = []string{"/login", "/registro"}
	}
	if o.SkipExact == nil {
		o.SkipExact = []string{"/favicon.ico", "/robots.txt"}
	}
	if o.SkipPrefixes == nil {
		o.SkipPrefixes = []string{"/_next/", "/static/", "/assets/"}
	}
	if o.AccessCookie == "" {
		o.AccessCookie = CookieAccess
	}
	if o.RefreshCookie == "" {
		o.RefreshCookie = CookieRefresh
	}
	if o.AccessFallbackTTL <= 0 {
		o.AccessFallbackTTL = expiry.AccessFallbackTTL
	}
	if o.AccessFallbackTTL <= 0 {
		o.AccessFallbackTTL = 7 * 24 * time.Hour
	}
}

type gate struct {
	manager *silosession.Manager
	opts    Options
}

// Gate returns middleware enforcing cookie-based session state on every
// route. Protected routes require a valid access token, refreshing it
// in-flight when possible; public routes redirect signed-in visitors away.
func Gate(manager *silosession.Manager, opts Options) func(http.Handler) http.Handler {
	opts.fill(manager.Config().Expiry)
	g := &gate{manager: manager, opts: opts}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if g.isSkipped(path) {
				next.ServeHTTP(w, r)
				return
			}
			if g.isPublic(path) {
				g.servePublic(w, r, next)
				return
			}
			g.serveProtected(w, r, next)
		})
	}
}

// servePublic lets anonymous visitors through and bounces live sessions to
// the landing page. A session that can still be refreshed counts as live.
func (g *gate) servePublic(w http.ResponseWriter, r *http.Request, next http.Handler) {
	access := cookieValue(r, g.opts.AccessCookie)
	refresh := cookieValue(r, g.opts.RefreshCookie)

	if access != "" && g.manager.VerifyAccess(r.Context(), access) == nil {
		http.Redirect(w, r, g.opts.LandingPath, http.StatusTemporaryRedirect)
		return
	}

	if refresh != "" {
		if pair, err := g.manager.Exchange(r.Context(), refresh); err == nil {
			g.setAccessCookie(w, pair.AccessToken, pair.ExpiresIn)
			http.Redirect(w, r, g.opts.LandingPath, http.StatusTemporaryRedirect)
			return
		}
	}

	next.ServeHTTP(w, r)
}

// serveProtected admits requests carrying a valid or refreshable session
// and redirects the rest to the login page.
func (g *gate) serveProtected(w http.ResponseWriter, r *http.Request, next http.Handler) {
	access := cookieValue(r, g.opts.AccessCookie)
	refresh := cookieValue(r, g.opts.RefreshCookie)

	// No session material at all: redirect without spending a backend call.
	if access == "" && refresh == "" {
		http.Redirect(w, r, g.opts.LoginPath, http.StatusTemporaryRedirect)
		return
	}

	if access != "" && g.manager.VerifyAccess(r.Context(), access) == nil {
		g.admit(w, r, next, access)
		return
	}

	if refresh != "" {
		if pair, err := g.manager.Exchange(r.Context(), refresh); err == nil {
			g.setAccessCookie(w, pair.AccessToken, pair.ExpiresIn)
			g.admit(w, r, next, pair.AccessToken)
			return
		}
	}

	// Dead session: expire what's left so the next request takes the
	// no-cookie fast path.
	g.expireCookie(w, g.opts.AccessCookie)
	g.expireCookie(w, g.opts.RefreshCookie)
	http.Redirect(w, r, g.opts.LoginPath, http.StatusTemporaryRedirect)
}

func (g *gate) admit(w http.ResponseWriter, r *http.Request, next http.Handler, token string) {
	ctx := context.WithValue(r.Context(), sessionContextKey{}, token)
	next.ServeHTTP(w, r.WithContext(ctx))
}
