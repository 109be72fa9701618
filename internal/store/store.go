// internal/store/store.go
//
// Guild rows and stored configuration documents.
//
// Context
// -------
// The HTTP server is the only caller.  Two tables back it (see
// conf/schema.sql):
//
//	guild        one row per guild the bot has joined
//	guild_config raw YAML body per guild, absent until first saved
//
// Reads of the same guild's config are collapsed with singleflight so a
// burst of editor loads issues one query.  Parsed documents are cached in an
// LRU keyed by the raw body; two guilds storing identical text share one
// entry, which is fine because cached trees are never mutated.
//
// Notes
// -----
//   - A missing guild_config row and an empty body both mean "no config".
//   - Write does not validate.  The server runs the engine first.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/dogcfg/internal/cache"
	"github.com/yanizio/dogcfg/internal/document"
	"github.com/yanizio/dogcfg/internal/metrics"
)

// DefaultCacheSize is used when New is given a size below one.
const DefaultCacheSize = 256

// ErrNotFound is returned when a guild id is not present in the guild table.
var ErrNotFound = errors.New("guild not found")

// Guild mirrors one row of the guild table.
type Guild struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

// Store is safe for concurrent use.
type Store struct {
	db   *sqlx.DB
	sfg  singleflight.Group
	docs *cache.LRU[string, any]
}

// New returns a Store over db with a parsed-document cache of cacheSize.
func New(db *sqlx.DB, cacheSize int) *Store {
	if cacheSize < 1 {
		cacheSize = DefaultCacheSize
	}
	return &Store{db: db, docs: cache.New[string, any](cacheSize)}
}

// Guild returns the guild row for id or ErrNotFound.
func (s *Store) Guild(ctx context.Context, id int64) (Guild, error) {
	const q = `SELECT id, name, created_at FROM guild WHERE id = ?`

	var g Guild
	if err := s.db.GetContext(ctx, &g, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Guild{}, ErrNotFound
		}
		return Guild{}, fmt.Errorf("store: guild %d: %w", id, err)
	}
	return g, nil
}

// Guilds returns every guild ordered by id.
func (s *Store) Guilds(ctx context.Context) ([]Guild, error) {
	const q = `SELECT id, name, created_at FROM guild ORDER BY id`

	rows := make([]Guild, 0, 16)
	if err := s.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("store: list guilds: %w", err)
	}
	return rows, nil
}

// Count returns the number of known guilds.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM guild`); err != nil {
		return 0, fmt.Errorf("store: count guilds: %w", err)
	}
	return n, nil
}

// Config returns the raw body stored for id.  ok is false when the guild has
// no config yet.
func (s *Store) Config(ctx context.Context, id int64) (body string, ok bool, err error) {
	v, err, _ := s.sfg.Do(sfKey(id), func() (interface{}, error) {
		const q = `SELECT body FROM guild_config WHERE guild_id = ?`

		var b sql.NullString
		if err := s.db.GetContext(ctx, &b, q, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return "", nil
			}
			return nil, fmt.Errorf("store: config %d: %w", id, err)
		}
		return b.String, nil
	})
	if err != nil {
		return "", false, err
	}
	body = v.(string)
	return body, strings.TrimSpace(body) != "", nil
}

// Document returns the parsed stored document for id.  A guild without a
// config yields a nil document.  A malformed stored body yields a
// *document.ParseError.
func (s *Store) Document(ctx context.Context, id int64) (any, error) {
	body, ok, err := s.Config(ctx, id)
	if err != nil || !ok {
		return nil, err
	}
	return s.Parse(body)
}

// Parse decodes body through the document cache.
func (s *Store) Parse(body string) (any, error) {
	if doc, hit := s.docs.Get(body); hit {
		metrics.ParseCacheTotal.WithLabelValues("hit").Inc()
		return doc, nil
	}
	metrics.ParseCacheTotal.WithLabelValues("miss").Inc()

	doc, err := document.Parse(body)
	if err != nil {
		return nil, err
	}
	s.docs.Add(body, doc)
	return doc, nil
}

// Write stores body as the config for id, replacing any previous body.
func (s *Store) Write(ctx context.Context, id int64, body string) error {
	const q = `
	    INSERT INTO guild_config (guild_id, body, updated_at)
	    VALUES (?, ?, NOW())
	    ON DUPLICATE KEY UPDATE body = VALUES(body), updated_at = NOW()`

	if _, err := s.db.ExecContext(ctx, q, id, body); err != nil {
		return fmt.Errorf("store: write config %d: %w", id, err)
	}
	// Later readers must not join a flight that started before the write.
	s.sfg.Forget(sfKey(id))
	return nil
}

func sfKey(id int64) string { return strconv.FormatInt(id, 10) }
