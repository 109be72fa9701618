// Package middleware holds small, composable HTTP wrappers used by
// internal/server.
package middleware

import (
	"net"
	"net/http"
)

// ForceHTTPS returns a wrapper that 308-redirects plain HTTP requests to the
// HTTPS version of the same URL.  Requests already on TLS, requests marked
// `X-Forwarded-Proto: https` by a terminating proxy, and requests for
// localhost pass through.  When enabled is false the wrapper is a no-op.
//
// A 308 keeps the method and body, so a PATCH from the editor survives the
// redirect.
func ForceHTTPS(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.TLS != nil ||
				r.Header.Get("X-Forwarded-Proto") == "https" ||
				isLocal(r.Host) {
				next.ServeHTTP(w, r)
				return
			}
			target := "https://" + r.Host + r.URL.RequestURI()
			http.Redirect(w, r, target, http.StatusPermanentRedirect)
		})
	}
}

// isLocal reports whether host (with or without port) is a loopback name.
func isLocal(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
