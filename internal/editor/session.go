// internal/editor/session.go
//
// One guild's edit session: load, edit, and gated save.
//
// Context
// -------
// A Session is the in-memory editing context for one guild's configuration
// document.  Every edit is re-parsed and re-validated synchronously, and
// Save only reaches the Transport when the current text has no violations
// and no other save is running.
//
// State machine
// -------------
//
//	Loading    ─ load ok ──────────▶ Valid | Invalid
//	Loading    ─ load/parse failure ▶ LoadFailed (terminal)
//	Valid      ─ save ─────────────▶ Saving ─▶ Saved | SaveFailed
//	any loaded ─ edit ─────────────▶ Valid | Invalid
//	Invalid    ─ save ─────────────▶ Invalid (refused, no transport call)
//	Saving     ─ save ─────────────▶ Saving  (refused, no transport call)
//
// Notes
// -----
//   - The mutex is never held across a Transport call, so edits keep
//     flowing while a save is in flight.
//   - If the text changes while a save is in flight, the session keeps the
//     edit's Valid/Invalid state when the save resolves.  The outcome is
//     still recorded (persisted text or last error).
//   - After Close, late Transport responses are dropped silently.
package editor

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/yanizio/dogcfg/internal/document"
	"github.com/yanizio/dogcfg/internal/metrics"
	"github.com/yanizio/dogcfg/internal/validate"
)

// State is the position of a Session in its state machine.
type State int

const (
	Loading State = iota
	Valid
	Invalid
	Saving
	Saved
	SaveFailed
	LoadFailed
)

var stateNames = [...]string{
	Loading:    "loading",
	Valid:      "valid",
	Invalid:    "invalid",
	Saving:     "saving",
	Saved:      "saved",
	SaveFailed: "save_failed",
	LoadFailed: "load_failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Snapshot is a point-in-time copy of a Session for rendering.
type Snapshot struct {
	GuildID    string
	State      State
	Text       string
	Violations []validate.Violation
	Saving     bool   // a save is in flight
	Dirty      bool   // Text differs from the last loaded or saved text
	SaveError  string // server message from the most recent failed save
	LoadError  string // generic notice when the load failed
}

// CanSave reports whether Save would reach the Transport.
func (s Snapshot) CanSave() bool {
	return !s.Saving && len(s.Violations) == 0 &&
		s.State != Loading && s.State != LoadFailed
}

// Session is safe for concurrent use, though edits are expected one at a
// time from a single front end.
type Session struct {
	guildID string
	co      *Coordinator

	mu        sync.Mutex
	state     State
	raw       string
	persisted string
	result    validate.Result
	saving    bool
	gen       uint64 // bumped on every edit
	loadDone  chan struct{} // non-nil once a load is in flight; closed when it resolves
	saveErr   error
	loadErr   error
	closed    bool
}

// GuildID returns the guild this session edits.
func (s *Session) GuildID() string { return s.guildID }

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns a copy of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		GuildID:    s.guildID,
		State:      s.state,
		Text:       s.raw,
		Violations: append([]validate.Violation(nil), s.result.Violations...),
		Saving:     s.saving,
		Dirty:      s.raw != s.persisted,
	}
	if s.saveErr != nil {
		snap.SaveError = s.saveErr.Error()
	}
	if s.loadErr != nil {
		snap.LoadError = LoadNotice
	}
	return snap
}

// Err returns the load error for a LoadFailed session, otherwise the most
// recent save error, or nil.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return s.loadErr
	}
	return s.saveErr
}

// Load fetches, parses, and validates the stored document.  It runs once;
// later calls return the original load error, if any.  A call made while
// the first load is in flight waits for it instead of fetching again.  A
// null or missing config is an empty document.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return ErrClosed
	case s.state != Loading:
		err := s.loadErr
		s.mu.Unlock()
		return err
	case s.loadDone != nil:
		done := s.loadDone
		s.mu.Unlock()
		return s.awaitLoad(ctx, done)
	}
	done := make(chan struct{})
	s.loadDone = done
	s.mu.Unlock()
	defer close(done)

	var payload struct {
		Config *string `json:"config"`
	}
	err := s.co.transport.Get(ctx, ConfigRoute(s.guildID), &payload)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.co.log.Debug("load resolved after close", zap.String("guild", s.guildID))
		return nil
	}
	if err != nil {
		s.loadErr = &TransportError{Op: "load", Err: err}
		s.transition(LoadFailed)
		metrics.LoadsTotal.WithLabelValues("transport_error").Inc()
		s.co.log.Warn("config load failed", zap.String("guild", s.guildID), zap.Error(err))
		return s.loadErr
	}

	text := ""
	if payload.Config != nil {
		text = *payload.Config
	}
	doc, err := document.Parse(text)
	if err != nil {
		s.loadErr = err
		s.transition(LoadFailed)
		metrics.LoadsTotal.WithLabelValues("parse_error").Inc()
		s.co.log.Warn("stored config is malformed", zap.String("guild", s.guildID), zap.Error(err))
		return err
	}

	metrics.LoadsTotal.WithLabelValues("ok").Inc()
	s.raw = text
	s.persisted = text
	s.apply(validate.Validate(doc, s.co.root))
	return nil
}

// awaitLoad waits for the in-flight load behind done and returns its error.
func (s *Session) awaitLoad(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.loadErr
}

// Edit replaces the text and re-validates it.  The text is kept whether or
// not it is valid.  Edits before a successful load, or after Close, are
// ignored.
func (s *Session) Edit(text string) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.state == Loading || s.state == LoadFailed {
		return s.state
	}
	s.raw = text
	s.gen++
	s.apply(validate.Text(text, s.co.root))
	return s.state
}

// Save persists the current text.  It returns ErrInvalid or ErrSaveInFlight
// without touching the Transport when the gate is closed, a
// *TransportError when the Transport fails, and nil on success.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	if err := s.gate(); err != nil {
		s.mu.Unlock()
		metrics.SavesTotal.WithLabelValues("refused").Inc()
		return err
	}
	s.saving = true
	s.transition(Saving)
	text, gen := s.raw, s.gen
	s.mu.Unlock()

	err := s.co.transport.Patch(ctx, ConfigRoute(s.guildID), text)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.saving = false
	if s.closed {
		s.co.log.Debug("save resolved after close", zap.String("guild", s.guildID))
		return nil
	}
	if err != nil {
		s.saveErr = &TransportError{Op: "save", Err: err}
		metrics.SavesTotal.WithLabelValues("error").Inc()
		s.co.log.Warn("config save failed", zap.String("guild", s.guildID), zap.Error(err))
		if s.gen == gen {
			s.transition(SaveFailed)
		}
		return s.saveErr
	}

	s.saveErr = nil
	s.persisted = text
	metrics.SavesTotal.WithLabelValues("ok").Inc()
	if s.gen == gen {
		s.transition(Saved)
	}
	return nil
}

// HandleShortcut runs Save when chord is the platform save chord.  It
// reports whether the chord was handled.
func (s *Session) HandleShortcut(ctx context.Context, chord string) (bool, error) {
	if !IsSaveChord(chord, s.co.goos) {
		return false, nil
	}
	return true, s.Save(ctx)
}

// Close discards the session.  Responses still in flight are dropped.
func (s *Session) Close() {
	s.mu.Lock()
	already := s.closed
	s.closed = true
	s.mu.Unlock()
	if !already {
		s.co.forget(s)
	}
}

//
// helpers (caller holds s.mu)
//

// gate returns the reason a save must not start, or nil.
func (s *Session) gate() error {
	switch {
	case s.closed:
		return ErrClosed
	case s.state == Loading || s.state == LoadFailed:
		return ErrNotEditable
	case s.saving:
		return ErrSaveInFlight
	case !s.result.Valid():
		return ErrInvalid
	}
	return nil
}

func (s *Session) apply(res validate.Result) {
	s.result = res
	metrics.ValidationsTotal.WithLabelValues(metrics.Outcome(res.Valid())).Inc()
	if res.Valid() {
		s.transition(Valid)
		return
	}
	s.transition(Invalid)
}

func (s *Session) transition(to State) {
	if s.state == to {
		return
	}
	s.co.log.Debug("session state",
		zap.String("guild", s.guildID),
		zap.Stringer("from", s.state),
		zap.Stringer("to", to),
		zap.Int("violations", len(s.result.Violations)),
	)
	s.state = to
}

// IsRefusal reports whether err is a save the gate refused.
func IsRefusal(err error) bool {
	return errors.Is(err, ErrInvalid) || errors.Is(err, ErrSaveInFlight)
}
