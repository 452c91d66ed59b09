package session

import "errors"

// State is the lifecycle state of the piece being edited.
type State int

const (
	// Empty: no piece open yet.
	Empty State = iota
	// Editing: a piece is open for entry.
	Editing
	// Validating: a save was dispatched and its answer is pending.
	Validating
	// Saved: the last save succeeded and a fresh piece is open. The first
	// edit of that piece moves to Editing.
	Saved
	// Viewing: a saved piece is open read-only.
	Viewing
	// Deleting: a deletion is waiting for confirmation.
	Deleting
)

var stateNames = [...]string{
	Empty:      "empty",
	Editing:    "editing",
	Validating: "validating",
	Saved:      "saved",
	Viewing:    "viewing",
	Deleting:   "deleting",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

var (
	// ErrUnsavedChanges is returned by operations that would discard a
	// modified piece when the caller did not pass DiscardChanges.
	ErrUnsavedChanges = errors.New("la pièce a été modifiée")

	// ErrReadOnly is returned when a read-only piece is edited.
	ErrReadOnly = errors.New("pièce en consultation")

	// ErrNoPiece is returned when editing before a piece was opened.
	ErrNoPiece = errors.New("aucune pièce ouverte")

	// ErrBusy is returned when an operation conflicts with one in progress.
	ErrBusy = errors.New("opération en cours")

	// ErrNoPendingDelete is returned by ConfirmDelete without RequestDelete.
	ErrNoPendingDelete = errors.New("aucune suppression en attente")
)

// CallOption adjusts a single session call.
type CallOption func(*callOptions)

type callOptions struct {
	discard bool
}

// DiscardChanges lets an operation drop unsaved edits. Callers pass it after
// the user confirmed.
func DiscardChanges() CallOption {
	return func(o *callOptions) {
		o.discard = true
	}
}

func resolve(opts []CallOption) callOptions {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
