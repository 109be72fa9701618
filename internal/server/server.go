// internal/server/server.go
//
// The web API the editor talks to.
//
// Context
// -------
// Routes (all JSON):
//
//	GET   /api/status                  {ready, guilds}
//	GET   /api/guilds                  [{id, name}, …]
//	GET   /api/guild/{id}              {id, name}
//	GET   /api/guild/{id}/config       {guild_id, config}
//	PATCH /api/guild/{id}/config       raw YAML body → {success: true}
//	GET   /api/guild/{id}/config/check {valid, violations}
//
// Errors use one shape, `{error: true, message, code}`, which
// internal/api decodes and the editor shows verbatim.
//
// PATCH runs the same schema and engine as the editor, so a body the editor
// would refuse is refused here too, with the violations attached.
//
// Notes
// -----
//   - Guild ids are Discord snowflakes.  They are sent as strings in guild
//     objects so JavaScript clients keep full precision, and as numbers in
//     `guild_id` for compatibility with existing consumers.
//   - A blank PATCH body stores an empty document, which the engine treats
//     as an empty mapping.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yanizio/dogcfg/internal/document"
	"github.com/yanizio/dogcfg/internal/metrics"
	"github.com/yanizio/dogcfg/internal/middleware"
	"github.com/yanizio/dogcfg/internal/schema"
	"github.com/yanizio/dogcfg/internal/store"
	"github.com/yanizio/dogcfg/internal/validate"
)

// MaxBodyBytes caps a PATCH body.
const MaxBodyBytes = 1 << 20

// Error codes sent in the error object.
const (
	CodeUnknownGuild  = "UNKNOWN_GUILD"
	CodeInvalidYAML   = "INVALID_YAML"
	CodeInvalidConfig = "INVALID_CONFIG"
	CodeTooLarge      = "BODY_TOO_LARGE"
	CodeInternal      = "INTERNAL"
)

// Store is the persistence the server needs.  *store.Store satisfies it.
type Store interface {
	Guild(ctx context.Context, id int64) (store.Guild, error)
	Guilds(ctx context.Context) ([]store.Guild, error)
	Count(ctx context.Context) (int, error)
	Config(ctx context.Context, id int64) (string, bool, error)
	Document(ctx context.Context, id int64) (any, error)
	Write(ctx context.Context, id int64, body string) error
}

// Server holds handler dependencies.
type Server struct {
	store      Store
	root       schema.Node
	log        *zap.Logger
	forceHTTPS bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.  The default is zap.L().
func WithLogger(l *zap.Logger) Option { return func(s *Server) { s.log = l } }

// WithSchema replaces the guild schema.
func WithSchema(root schema.Node) Option { return func(s *Server) { s.root = root } }

// WithForceHTTPS enables the HTTPS redirect.
func WithForceHTTPS(on bool) Option { return func(s *Server) { s.forceHTTPS = on } }

// New returns a Server over st.
func New(st Store, opts ...Option) *Server {
	s := &Server{store: st, root: schema.Guild(), log: zap.L()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Routes builds the router.  cmd/web mounts /metrics beside it.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLog(s.log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.ForceHTTPS(s.forceHTTPS))
	r.Use(middleware.Security)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/guilds", s.handleGuilds)
		r.Route("/guild/{guildID}", func(r chi.Router) {
			r.Use(s.withGuild)
			r.Get("/", s.handleGuild)
			r.Get("/config", s.handleConfigGET)
			r.Patch("/config", s.handleConfigPATCH)
			r.Get("/config/check", s.handleConfigCheck)
		})
	})
	return r
}

/*──────────────────────────── middleware ──────────────────────────────────*/

type guildKey struct{}

// withGuild resolves {guildID} or answers 404 UNKNOWN_GUILD.
func (s *Server) withGuild(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "guildID"), 10, 64)
		if err != nil || id < 1 {
			writeError(w, http.StatusNotFound, CodeUnknownGuild, "Unknown guild.")
			return
		}
		g, err := s.store.Guild(r.Context(), id)
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, CodeUnknownGuild, "Unknown guild.")
			return
		case err != nil:
			s.internal(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), guildKey{}, g)))
	})
}

func guildFrom(r *http.Request) store.Guild {
	return r.Context().Value(guildKey{}).(store.Guild)
}

/*──────────────────────────── handlers ────────────────────────────────────*/

type guildJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func inflate(g store.Guild) guildJSON {
	return guildJSON{ID: strconv.FormatInt(g.ID, 10), Name: g.Name}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.Count(r.Context())
	if err != nil {
		s.log.Warn("status: store unavailable", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]any{"ready": err == nil, "guilds": n})
}

func (s *Server) handleGuilds(w http.ResponseWriter, r *http.Request) {
	gs, err := s.store.Guilds(r.Context())
	if err != nil {
		s.internal(w, r, err)
		return
	}
	out := make([]guildJSON, 0, len(gs))
	for _, g := range gs {
		out = append(out, inflate(g))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGuild(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, inflate(guildFrom(r)))
}

func (s *Server) handleConfigGET(w http.ResponseWriter, r *http.Request) {
	g := guildFrom(r)
	body, ok, err := s.store.Config(r.Context(), g.ID)
	if err != nil {
		s.internal(w, r, err)
		return
	}
	var config *string
	if ok {
		config = &body
	}
	writeJSON(w, http.StatusOK, map[string]any{"guild_id": g.ID, "config": config})
}

func (s *Server) handleConfigPATCH(w http.ResponseWriter, r *http.Request) {
	g := guildFrom(r)

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			metrics.ConfigWritesTotal.WithLabelValues("rejected").Inc()
			writeError(w, http.StatusRequestEntityTooLarge, CodeTooLarge,
				fmt.Sprintf("Configuration is larger than %d bytes.", MaxBodyBytes))
			return
		}
		s.internal(w, r, err)
		return
	}
	text := string(raw)

	doc, err := document.Parse(text)
	if err != nil {
		metrics.ConfigWritesTotal.WithLabelValues("rejected").Inc()
		var pe *document.ParseError
		detail := err.Error()
		if errors.As(err, &pe) {
			detail = pe.Err.Error()
		}
		writeError(w, http.StatusBadRequest, CodeInvalidYAML, fmt.Sprintf("Invalid YAML (%s).", detail))
		return
	}
	if doc != nil && document.KindOf(doc) != document.Mapping {
		metrics.ConfigWritesTotal.WithLabelValues("rejected").Inc()
		writeError(w, http.StatusBadRequest, CodeInvalidConfig, "Configuration is not a dictionary (mapping).")
		return
	}

	res := validate.Validate(doc, s.root)
	metrics.ValidationsTotal.WithLabelValues(metrics.Outcome(res.Valid())).Inc()
	if !res.Valid() {
		metrics.ConfigWritesTotal.WithLabelValues("rejected").Inc()
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":      true,
			"message":    res.Err().Error(),
			"code":       CodeInvalidConfig,
			"violations": res.Violations,
		})
		return
	}

	if err := s.store.Write(r.Context(), g.ID, text); err != nil {
		metrics.ConfigWritesTotal.WithLabelValues("error").Inc()
		s.internal(w, r, err)
		return
	}
	metrics.ConfigWritesTotal.WithLabelValues("ok").Inc()
	s.log.Info("guild config written", zap.Int64("guild", g.ID), zap.Int("bytes", len(raw)))
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleConfigCheck(w http.ResponseWriter, r *http.Request) {
	g := guildFrom(r)

	var res validate.Result
	doc, err := s.store.Document(r.Context(), g.ID)
	var pe *document.ParseError
	switch {
	case errors.As(err, &pe):
		res = validate.ParseFailure(pe)
	case err != nil:
		s.internal(w, r, err)
		return
	default:
		res = validate.Validate(doc, s.root)
	}
	metrics.ValidationsTotal.WithLabelValues(metrics.Outcome(res.Valid())).Inc()

	violations := res.Violations
	if violations == nil {
		violations = []validate.Violation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": res.Valid(), "violations": violations})
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func (s *Server) internal(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Error("request failed",
		zap.String("path", r.URL.Path),
		zap.String("request_id", chimw.GetReqID(r.Context())),
		zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternal, "Internal server error.")
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{"error": true, "message": message, "code": code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
