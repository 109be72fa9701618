// cmd/web/main.go
//
// dogcfg web API entry point.
//
// Boot sequence
// -------------
//
//  1. Load configuration (defaults → conf/.env → conf/global.yaml → env).
//
//  2. Start daily rotating logger (tees to console when running in a TTY).
//
//  3. Resolve the database password, through Vault when it is a
//     `vault:` reference.
//
//  4. Open the control-plane DB and log the guild count.
//
//  5. Build the store and the API router.
//
//  6. Expose Prometheus /metrics beside the API.
//
//  7. Serve until SIGINT or SIGTERM, then drain for up to ten seconds.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/dogcfg/internal/config"
	"github.com/yanizio/dogcfg/internal/database"
	"github.com/yanizio/dogcfg/internal/logger"
	"github.com/yanizio/dogcfg/internal/server"
	"github.com/yanizio/dogcfg/internal/store"
	"github.com/yanizio/dogcfg/internal/vault"
)

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logOut, err := logger.New(cfg.Paths.Root, runningInTTY(), cfg.Log.Level)
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}
	defer func() { _ = logOut.Sync() }()

	//
	// ── 1.  Database password ───────────────────────────────────────────
	//
	password := cfg.Database.Password
	if vault.IsRef(password) {
		vc, err := vault.New(ctx, logOut.Desugar().Named("vault"))
		if err != nil {
			logOut.Fatalw("vault client", "err", err)
		}
		if password, err = vc.Resolve(ctx, password); err != nil {
			logOut.Fatalw("resolve database password", "err", err)
		}
		logOut.Infow("database password resolved from vault")
	}

	//
	// ── 2.  Global DB connect ───────────────────────────────────────────
	//
	logOut.Infow("connecting to database")
	db, err := database.Open(ctx, database.WithPassword(cfg.Database.DSN, password))
	if err != nil {
		logOut.Fatalw("connect database", "err", err)
	}
	defer db.Close()

	st := store.New(db, cfg.Database.CacheSize)

	// Log the guild count as an early sanity check.
	if n, err := st.Count(ctx); err != nil {
		logOut.Warnw("guild count failed", "err", err)
	} else {
		logOut.Infow("database online", "guilds", n)
	}

	//
	// ── 3.  Router: API + metrics ───────────────────────────────────────
	//
	api := server.New(st,
		server.WithLogger(zap.L().Named("http")),
		server.WithForceHTTPS(cfg.HTTP.ForceHTTPS),
	)
	root := chi.NewRouter()
	root.Handle("/metrics", promhttp.Handler())
	root.Mount("/", api.Routes())

	//
	// ── 4.  Serve with graceful shutdown ────────────────────────────────
	//
	srv := server.NewHTTPServer(cfg.HTTP, root)
	errCh := make(chan error, 1)
	go func() {
		logOut.Infow("listening", "addr", cfg.HTTP.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logOut.Fatalw("http server", "err", err)
		}
	case <-ctx.Done():
		logOut.Infow("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logOut.Errorw("http shutdown", "err", err)
		}
	}
}
