package middleware

import (
	"net/http"
	"time"
)

// Cookie names, matching what the web client sets at login.
const (
	CookieAccess  = "access_token"
	CookieRefresh = "refresh_token"
)

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func (g *gate) setAccessCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = g.opts.AccessFallbackTTL
	}
	http.SetCookie(w, &http.Cookie{
		Name:     g.opts.AccessCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   g.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// expireCookie tells the browser to drop a session cookie immediately.
func (g *gate) expireCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   g.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
