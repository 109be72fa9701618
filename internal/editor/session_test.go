package editor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/dogcfg/internal/document"
	"github.com/yanizio/dogcfg/internal/validate"
)

const (
	validDoc   = "gatekeeper:\n  enabled: true\n"
	invalidDoc = "gatekeeper:\n  enabled: true\n  bogus: 1\n"
)

// fakeTransport records calls.  When block is set, Patch signals entered
// and waits for block to close before returning.
type fakeTransport struct {
	mu       sync.Mutex
	config   *string
	getErr   error
	patchErr error
	gets     int
	patched  []string

	entered chan struct{}
	block   chan struct{}

	getEntered chan struct{}
	getBlock   chan struct{}
}

func (f *fakeTransport) Get(_ context.Context, route string, out any) error {
	f.mu.Lock()
	f.gets++
	entered, block := f.getEntered, f.getBlock
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return f.getErr
	}
	raw, _ := json.Marshal(map[string]any{"guild_id": 1, "config": f.config})
	return json.Unmarshal(raw, out)
}

func (f *fakeTransport) Patch(_ context.Context, route string, body string) error {
	f.mu.Lock()
	f.patched = append(f.patched, body)
	entered, block, err := f.entered, f.block, f.patchErr
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}
	return err
}

func (f *fakeTransport) patchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.patched)
}

func strPtr(s string) *string { return &s }

func open(t *testing.T, ft *fakeTransport) *Session {
	t.Helper()
	s, err := New(ft, WithPlatform("linux")).Open(context.Background(), "1234")
	require.NoError(t, err)
	return s
}

func TestSession_EditSaveScenario(t *testing.T) {
	ft := &fakeTransport{config: strPtr(validDoc)}
	s := open(t, ft)
	ctx := context.Background()

	assert.Equal(t, Valid, s.State())

	assert.Equal(t, Invalid, s.Edit(invalidDoc))
	assert.ErrorIs(t, s.Save(ctx), ErrInvalid)
	assert.Equal(t, Invalid, s.State())
	assert.Equal(t, 0, ft.patchCount(), "transport must not be called while invalid")

	snap := s.Snapshot()
	require.Len(t, snap.Violations, 1)
	assert.Equal(t, "gatekeeper.bogus", snap.Violations[0].Path)
	assert.Equal(t, invalidDoc, snap.Text, "invalid text is retained")
	assert.False(t, snap.CanSave())

	fixed := "gatekeeper:\n  enabled: false\n"
	assert.Equal(t, Valid, s.Edit(fixed))
	require.NoError(t, s.Save(ctx))
	assert.Equal(t, Saved, s.State())
	assert.Equal(t, []string{fixed}, ft.patched)
	assert.False(t, s.Snapshot().Dirty)
}

func TestSession_ConcurrentSaveGuard(t *testing.T) {
	ft := &fakeTransport{
		config:  strPtr(validDoc),
		entered: make(chan struct{}, 1),
		block:   make(chan struct{}),
	}
	s := open(t, ft)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- s.Save(ctx) }()
	<-ft.entered

	assert.Equal(t, Saving, s.State())
	assert.ErrorIs(t, s.Save(ctx), ErrSaveInFlight)
	assert.True(t, s.Snapshot().Saving)

	close(ft.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, ft.patchCount())
	assert.Equal(t, Saved, s.State())
}

func TestSession_EditDuringSave(t *testing.T) {
	ft := &fakeTransport{
		config:  strPtr(validDoc),
		entered: make(chan struct{}, 1),
		block:   make(chan struct{}),
	}
	s := open(t, ft)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- s.Save(ctx) }()
	<-ft.entered

	edited := "publish_quotes: true\n"
	assert.Equal(t, Valid, s.Edit(edited), "edits are accepted while saving")
	assert.ErrorIs(t, s.Save(ctx), ErrSaveInFlight, "still one save in flight")

	close(ft.block)
	require.NoError(t, <-done)

	snap := s.Snapshot()
	assert.Equal(t, Valid, snap.State, "newer edit wins over the saved badge")
	assert.Equal(t, edited, snap.Text)
	assert.True(t, snap.Dirty)
	assert.Equal(t, []string{validDoc}, ft.patched)
}

func TestSession_SaveFailureKeepsEdits(t *testing.T) {
	ft := &fakeTransport{
		config:   strPtr(validDoc),
		patchErr: errors.New("Configuration is not a dictionary (mapping)."),
	}
	s := open(t, ft)
	ctx := context.Background()

	edited := "measure_gateway_lag: true\n"
	s.Edit(edited)

	err := s.Save(ctx)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "save", te.Op)

	snap := s.Snapshot()
	assert.Equal(t, SaveFailed, snap.State)
	assert.Equal(t, "Configuration is not a dictionary (mapping).", snap.SaveError)
	assert.Equal(t, edited, snap.Text)

	// Retry succeeds and clears the error.
	ft.mu.Lock()
	ft.patchErr = nil
	ft.mu.Unlock()
	require.NoError(t, s.Save(ctx))
	assert.Equal(t, Saved, s.State())
	assert.Empty(t, s.Snapshot().SaveError)
	assert.Equal(t, 2, ft.patchCount())
}

func TestSession_SavedClearsOnEdit(t *testing.T) {
	ft := &fakeTransport{config: strPtr(validDoc)}
	s := open(t, ft)

	require.NoError(t, s.Save(context.Background()))
	assert.Equal(t, Saved, s.State())
	assert.Equal(t, Valid, s.Edit("publish_quotes: true\n"))
	assert.Equal(t, Invalid, s.Edit("publish_quotes: maybe\n"))
}

func TestSession_NullConfigIsEmptyDocument(t *testing.T) {
	ft := &fakeTransport{}
	s := open(t, ft)

	snap := s.Snapshot()
	assert.Equal(t, Valid, snap.State)
	assert.Empty(t, snap.Text)
	assert.Empty(t, snap.Violations)
}

func TestSession_LoadTransportFailure(t *testing.T) {
	ft := &fakeTransport{getErr: errors.New("HTTP 502 (Bad Gateway)")}
	s, err := New(ft).Open(context.Background(), "1234")

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "load", te.Op)
	assert.Equal(t, LoadFailed, s.State())

	assert.Equal(t, LoadFailed, s.Edit(validDoc), "no editable state")
	assert.ErrorIs(t, s.Save(context.Background()), ErrNotEditable)
	assert.Equal(t, 0, ft.patchCount())

	snap := s.Snapshot()
	assert.Equal(t, LoadNotice, snap.LoadError)
	assert.Empty(t, snap.Text)
}

func TestSession_LoadMalformed(t *testing.T) {
	ft := &fakeTransport{config: strPtr("gatekeeper: [unterminated")}
	s, err := New(ft).Open(context.Background(), "1234")

	var pe *document.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, LoadFailed, s.State())
	assert.Empty(t, s.Snapshot().Violations, "no validation after a parse failure")
}

func TestSession_MalformedEditIsRootViolation(t *testing.T) {
	s := open(t, &fakeTransport{config: strPtr(validDoc)})

	assert.Equal(t, Invalid, s.Edit("gatekeeper: {"))
	snap := s.Snapshot()
	require.Len(t, snap.Violations, 1)
	assert.Equal(t, validate.Malformed, snap.Violations[0].Kind)
	assert.Equal(t, "", snap.Violations[0].Path)
}

func TestSession_LateResponseAfterClose(t *testing.T) {
	ft := &fakeTransport{
		config:   strPtr(validDoc),
		entered:  make(chan struct{}, 1),
		block:    make(chan struct{}),
		patchErr: errors.New("boom"),
	}
	co := New(ft)
	s, err := co.Open(context.Background(), "1234")
	require.NoError(t, err)
	assert.Equal(t, 1, co.Active())

	done := make(chan error, 1)
	go func() { done <- s.Save(context.Background()) }()
	<-ft.entered

	s.Close()
	assert.Equal(t, 0, co.Active())
	close(ft.block)

	assert.NoError(t, <-done, "late response is a silent no-op")
	assert.ErrorIs(t, s.Save(context.Background()), ErrClosed)
	assert.Equal(t, 1, ft.patchCount())
}

func TestSession_IndependentSessions(t *testing.T) {
	ft := &fakeTransport{config: strPtr(validDoc)}
	co := New(ft)
	a, err := co.Open(context.Background(), "1")
	require.NoError(t, err)
	b, err := co.Open(context.Background(), "1")
	require.NoError(t, err)

	a.Edit(invalidDoc)
	assert.Equal(t, Invalid, a.State())
	assert.Equal(t, Valid, b.State())
	require.NoError(t, b.Save(context.Background()))

	co.CloseAll()
	assert.Equal(t, 0, co.Active())
}

func TestSession_Shortcut(t *testing.T) {
	ctx := context.Background()

	ft := &fakeTransport{config: strPtr(validDoc)}
	mac, err := New(ft, WithPlatform("darwin")).Open(ctx, "1")
	require.NoError(t, err)

	handled, err := mac.HandleShortcut(ctx, "ctrl+s")
	assert.False(t, handled)
	assert.NoError(t, err)

	handled, err = mac.HandleShortcut(ctx, "Command+S")
	assert.True(t, handled)
	assert.NoError(t, err)
	assert.Equal(t, Saved, mac.State())

	linux := open(t, ft)
	linux.Edit(invalidDoc)
	handled, err = linux.HandleShortcut(ctx, "S+Control")
	assert.True(t, handled)
	assert.ErrorIs(t, err, ErrInvalid, "shortcut goes through the same gate")
	assert.True(t, IsRefusal(err))
	assert.Equal(t, 1, ft.patchCount())
}

func TestNormalizeChord(t *testing.T) {
	assert.Equal(t, "ctrl+s", NormalizeChord("Control + S"))
	assert.Equal(t, "ctrl+shift+cmd+s", NormalizeChord("meta+shift+ctrl+s"))
	assert.Equal(t, "cmd+s", SaveChord("darwin"))
	assert.Equal(t, "ctrl+s", SaveChord("windows"))
	assert.True(t, IsSaveChord("Ctrl+S", "linux"))
}

func TestSession_ConcurrentLoadFetchesOnce(t *testing.T) {
	ft := &fakeTransport{
		config:     strPtr(invalidDoc),
		getEntered: make(chan struct{}, 1),
		getBlock:   make(chan struct{}),
	}
	s := &Session{guildID: "1234", co: New(ft), state: Loading}

	first := make(chan error, 1)
	go func() { first <- s.Load(context.Background()) }()
	<-ft.getEntered

	const waiters = 8
	results := make(chan error, waiters)
	for i := 0; i < waiters; i++ {
		go func() { results <- s.Load(context.Background()) }()
	}
	close(ft.getBlock)

	require.NoError(t, <-first)
	for i := 0; i < waiters; i++ {
		assert.NoError(t, <-results)
	}
	assert.Equal(t, Invalid, s.State())

	ft.mu.Lock()
	defer ft.mu.Unlock()
	assert.Equal(t, 1, ft.gets)
}

func TestSession_LoadWaiterSharesFailure(t *testing.T) {
	ft := &fakeTransport{
		getErr:     errors.New("connection refused"),
		getEntered: make(chan struct{}, 1),
		getBlock:   make(chan struct{}),
	}
	s := &Session{guildID: "1234", co: New(ft), state: Loading}

	first := make(chan error, 1)
	go func() { first <- s.Load(context.Background()) }()
	<-ft.getEntered

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Load(ctx), context.Canceled, "waiter honours its own context")

	second := make(chan error, 1)
	go func() { second <- s.Load(context.Background()) }()
	close(ft.getBlock)

	var te *TransportError
	require.ErrorAs(t, <-first, &te)
	require.ErrorAs(t, <-second, &te)
	assert.Equal(t, LoadFailed, s.State())
}
