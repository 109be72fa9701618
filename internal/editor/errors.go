package editor

import "errors"

// Save refusals.  No transport call is made when Save returns one of these.
var (
	ErrInvalid      = errors.New("editor: document has violations; save refused")
	ErrSaveInFlight = errors.New("editor: a save is already in flight")
	ErrNotEditable  = errors.New("editor: session has no editable document")
	ErrClosed       = errors.New("editor: session closed")
)

// LoadNotice is what a front end shows when Load fails.
const LoadNotice = "Could not load this guild's configuration."

// TransportError wraps a failure reported by the Transport.  Op is "load" or
// "save".
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }
