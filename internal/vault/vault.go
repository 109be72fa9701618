// internal/vault/vault.go
//
// Vault client wrapper for dogcfg.
//
// Context
// -------
//   - Wraps the HashiCorp Vault Go SDK with KV-v2 helpers and per-key
//     caching.
//   - Resolves `vault:<mount/path>#<key>` references found in configuration,
//     which is how cmd/web obtains the database password.
//   - Optionally keeps the token alive with a background renewal loop.
//
// Public workflow
// ---------------
//  1. cli, err := vault.New(ctx, log)                 // during boot.
//  2. pw,  err := cli.Resolve(ctx, cfg.Database.Password)
//
// Build tags: none.
package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

// RefPrefix marks a configuration value that lives in Vault.
const RefPrefix = "vault:"

// ResolveTTL is how long Resolve caches a secret.
const ResolveTTL = 5 * time.Minute

//
// SECTION 1.  Public façade
//

// Client is safe for concurrent use.  Zero value is invalid.
type Client struct {
	api *vault.Client
	log *zap.Logger

	cacheMu sync.RWMutex
	cache   map[string]cached // canonical path#key → value + expiry.
}

type cached struct {
	val string
	exp time.Time
}

// New constructs a client from VAULT_ADDR and VAULT_TOKEN and starts the
// token renewal loop, which stops when ctx is done.
func New(ctx context.Context, log *zap.Logger) (*Client, error) {
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}

	apiCli, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}
	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		apiCli.SetToken(tok)
	}

	c := Wrap(apiCli, log)
	go c.renewLoop(ctx)
	return c, nil
}

// Wrap returns a Client over an existing SDK client, without renewal.
func Wrap(api *vault.Client, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		api:   api,
		log:   log,
		cache: make(map[string]cached),
	}
}

// GetKV fetches a single key from a KV-v2 secret.  If ttl > 0 the result is
// cached for that duration.
func (c *Client) GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error) {
	if secretPath == "" || key == "" {
		return "", errors.New("secret path and key must be non-empty")
	}

	canonical := secretPath + "#" + key

	if ttl > 0 {
		c.cacheMu.RLock()
		cv, ok := c.cache[canonical]
		c.cacheMu.RUnlock()
		if ok && time.Now().Before(cv.exp) {
			return cv.val, nil
		}
	}

	mount, rel := splitMount(secretPath)
	if rel == "" {
		return "", fmt.Errorf("secret path %q has no path below the mount", secretPath)
	}
	sec, err := c.api.KVv2(mount).Get(ctx, rel)
	if err != nil {
		return "", fmt.Errorf("vault get %s: %w", secretPath, err)
	}

	raw, ok := sec.Data[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %q", key, secretPath)
	}
	sval, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value at %s is not a string", canonical)
	}

	if ttl > 0 {
		c.cacheMu.Lock()
		c.cache[canonical] = cached{val: sval, exp: time.Now().Add(ttl)}
		c.cacheMu.Unlock()
	}
	return sval, nil
}

// Resolve returns value unchanged unless it is a Vault reference, in which
// case the referenced secret is fetched.
func (c *Client) Resolve(ctx context.Context, value string) (string, error) {
	if !IsRef(value) {
		return value, nil
	}
	path, key, err := ParseRef(value)
	if err != nil {
		return "", err
	}
	return c.GetKV(ctx, path, key, ResolveTTL)
}

// IsRef reports whether value is a `vault:` reference.
func IsRef(value string) bool { return strings.HasPrefix(value, RefPrefix) }

// ParseRef splits `vault:<mount/path>#<key>` into path and key.
func ParseRef(ref string) (path, key string, err error) {
	body, ok := strings.CutPrefix(ref, RefPrefix)
	if !ok {
		return "", "", fmt.Errorf("vault ref %q: missing %q prefix", ref, RefPrefix)
	}
	path, key, ok = strings.Cut(body, "#")
	if !ok || path == "" || key == "" {
		return "", "", fmt.Errorf("vault ref %q: want vault:<mount/path>#<key>", ref)
	}
	return path, key, nil
}

//
// SECTION 2.  Background token renewal
//

func (c *Client) renewLoop(ctx context.Context) {
	for ctx.Err() == nil {
		wait := c.renewOnce(ctx)
		backoff(ctx, wait)
	}
}

// renewOnce renews the token until the lifetime watcher stops, then returns
// how long to wait before probing again.
func (c *Client) renewOnce(ctx context.Context) time.Duration {
	sec, err := c.api.Auth().Token().RenewSelfWithContext(ctx, 0)
	if err != nil {
		c.log.Warn("vault token renew failed", zap.Error(err))
		return 30 * time.Second
	}
	if sec == nil || sec.Auth == nil || !sec.Auth.Renewable {
		c.log.Info("vault token is not renewable, sleeping 1h")
		return time.Hour
	}

	watcher, err := c.api.NewLifetimeWatcher(&vault.LifetimeWatcherInput{Secret: sec})
	if err != nil {
		c.log.Warn("vault lifetime watcher init failed", zap.Error(err))
		return 30 * time.Second
	}
	go watcher.Start()
	defer watcher.Stop()

	for {
		select {
		case <-ctx.Done():
			return 0
		case err := <-watcher.DoneCh():
			if err != nil {
				c.log.Warn("vault token renewal stopped", zap.Error(err))
			}
			return 15 * time.Second
		case ev := <-watcher.RenewCh():
			if ev != nil && ev.Secret != nil && ev.Secret.Auth != nil {
				c.log.Debug("vault token renewed",
					zap.Int("ttl_seconds", ev.Secret.Auth.LeaseDuration))
			}
		}
	}
}

//
// SECTION 3.  Helpers
//

func splitMount(p string) (mount, rel string) {
	mount, rel, _ = strings.Cut(strings.Trim(p, "/"), "/")
	return mount, rel
}

func backoff(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
