// internal/editor/coordinator.go
//
// Coordinator: owns the Transport, the schema, and the set of open sessions.
//
// Context
// -------
// Front ends (the CLI today, a browser bridge tomorrow) call `Open` when
// the operator navigates into a guild's editor and `Session.Close` when
// they leave.  Two sessions for the same guild, e.g. two tabs, are fully
// independent; the only thing they share is the read-only schema.
package editor

import (
	"context"
	"net/url"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/yanizio/dogcfg/internal/metrics"
	"github.com/yanizio/dogcfg/internal/schema"
)

// Transport is the HTTP collaborator.  Get decodes the JSON response into
// out.  Patch sends body as the raw request payload.
type Transport interface {
	Get(ctx context.Context, route string, out any) error
	Patch(ctx context.Context, route string, body string) error
}

// ConfigRoute is the API route for a guild's configuration document.
func ConfigRoute(guildID string) string {
	return "/api/guild/" + url.PathEscape(guildID) + "/config"
}

// Coordinator creates and tracks edit sessions.
type Coordinator struct {
	transport Transport
	root      schema.Node
	log       *zap.Logger
	goos      string

	mu       sync.Mutex
	sessions map[*Session]struct{}
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.  The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

// WithSchema replaces the guild schema, mostly for tests.
func WithSchema(root schema.Node) Option {
	return func(c *Coordinator) { c.root = root }
}

// WithPlatform overrides runtime.GOOS for shortcut handling.
func WithPlatform(goos string) Option {
	return func(c *Coordinator) { c.goos = goos }
}

// New returns a Coordinator that talks to t.
func New(t Transport, opts ...Option) *Coordinator {
	c := &Coordinator{
		transport: t,
		root:      schema.Guild(),
		log:       zap.NewNop(),
		goos:      runtime.GOOS,
		sessions:  make(map[*Session]struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Open creates a session for guildID and loads it.  The session is
// returned even when loading fails; it is then in LoadFailed and the error
// is returned alongside it.
func (c *Coordinator) Open(ctx context.Context, guildID string) (*Session, error) {
	s := &Session{guildID: guildID, co: c, state: Loading}

	c.mu.Lock()
	c.sessions[s] = struct{}{}
	c.mu.Unlock()
	metrics.ActiveSessions.Inc()

	c.log.Debug("session opened", zap.String("guild", guildID))
	return s, s.Load(ctx)
}

// Active returns the number of open sessions.
func (c *Coordinator) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// CloseAll discards every open session.
func (c *Coordinator) CloseAll() {
	c.mu.Lock()
	open := make([]*Session, 0, len(c.sessions))
	for s := range c.sessions {
		open = append(open, s)
	}
	c.mu.Unlock()

	for _, s := range open {
		s.Close()
	}
}

func (c *Coordinator) forget(s *Session) {
	c.mu.Lock()
	_, ok := c.sessions[s]
	delete(c.sessions, s)
	c.mu.Unlock()
	if ok {
		metrics.ActiveSessions.Dec()
		c.log.Debug("session closed", zap.String("guild", s.guildID))
	}
}
