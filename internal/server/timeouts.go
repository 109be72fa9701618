// internal/server/timeouts.go
//
// HTTP server helper with robust timeouts.
//
// Production hardening recommends:
//
//   - ReadTimeout   abort slow-loris headers and bodies (default 10 s)
//   - WriteTimeout  cap total response time (default 15 s)
//   - IdleTimeout   close keep-alives on idle clients (default 60 s)
//
// The values come from the `http` config section so operators can stretch
// them for large configuration bodies without a rebuild.

package server

import (
	"net/http"
	"time"

	"github.com/yanizio/dogcfg/internal/config"
)

// NewHTTPServer constructs an *http.Server from the http config section.
func NewHTTPServer(cfg config.HTTP, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: min(cfg.ReadTimeout, 5*time.Second),
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}
