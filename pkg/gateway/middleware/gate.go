package middleware

import (
	"net/http"
	"strings"

	"github.com/clerapp/platform/pkg/gateway/auth"
	"github.com/clerapp/platform/pkg/observability/metrics"
)

const (
	RootRoute  = "/"
	LoginRoute = "/login"
)

// PublicRoutes are reachable without a session; signed-in users are bounced
// away from them.
var PublicRoutes = map[string]struct{}{
	"/login":          {},
	"/signup":         {},
	"/reset-password": {},
	"/auth/callback":  {},
}

// ungated paths skip the gate entirely.
var ungated = map[string]struct{}{
	"/health":  {},
	"/ready":   {},
	"/metrics": {},
}

// Decide returns the redirect target for a request, or redirect=false to let it
// through unchanged.
func Decide(path string, authenticated bool) (target string, redirect bool) {
	_, public := PublicRoutes[path]
	switch {
	case authenticated && public:
		return RootRoute, true
	case !authenticated && !public:
		return LoginRoute, true
	default:
		return "", false
	}
}

// gated mirrors the page matcher: everything except ops endpoints and
// static assets (last path segment containing a dot).
func gated(path string) bool {
	if _, ok := ungated[path]; ok {
		return false
	}
	last := path[strings.LastIndex(path, "/")+1:]
	return !strings.Contains(last, ".")
}

func AccessGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || !gated(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		_, authenticated := auth.IdentityFrom(r.Context())
		if target, redirect := Decide(r.URL.Path, authenticated); redirect {
			metrics.GateRedirect(target)
			http.Redirect(w, r, target, http.StatusTemporaryRedirect)
			return
		}
		next.ServeHTTP(w, r)
	})
}
