package middleware

import "strings"

// isPublic reports whether path is an unauthenticated route (login,
// registration), including subpaths. Public routes invert the gate: a valid
// session bounces the visitor to the landing page instead of showing the
// form again.
func (g *gate) isPublic(path string) bool {
	for _, p := range g.opts.PublicPaths {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// isSkipped reports whether path bypasses the gate entirely (static assets,
// health probes).
func (g *gate) isSkipped(path string) bool {
	for _, p := range g.opts.SkipExact {
		if path == p {
			return true
		}
	}
	for _, prefix := range g.opts.SkipPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
