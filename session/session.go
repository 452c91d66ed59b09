// Package session drives the lifecycle of one piece in the entry grid: new,
// edit, validate, save, view, delete and browse to neighbouring pieces.
//
// A Session is meant to be used from one goroutine (the UI loop). Saving is
// split in BeginSave and CompleteSave so the backend call can run elsewhere
// while the user keeps typing; Save composes the three steps for synchronous
// callers.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Eudes8/Compta/grid"
	"github.com/Eudes8/Compta/piece"
	"github.com/Eudes8/Compta/port"
	"github.com/Eudes8/Compta/telemetry"
)

// Session is the controller behind one editor window.
type Session struct {
	port    port.Port
	cfg     *piece.Config
	logger  *zap.Logger
	now     func() time.Time
	timeout time.Duration

	mu            sync.Mutex
	piece         *piece.Piece
	journal       port.JournalInfo
	period        time.Time
	state         State
	beforeDelete  State
	cursor        grid.Cursor
	modified      bool
	readOnly      bool
	edits         uint64
	pendingDelete string
	saving        *SaveTicket

	status     chan string
	lastStatus string
}

// Option configures a Session.
type Option func(*Session)

// WithConfig sets the validation settings.
func WithConfig(cfg *piece.Config) Option {
	return func(s *Session) {
		s.cfg = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithClock sets the time source used to date new pieces.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// WithTimeout bounds every backend call made by the session.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.timeout = d
	}
}

// WithStatusBuffer sets the capacity of the status channel.
func WithStatusBuffer(n int) Option {
	return func(s *Session) {
		s.status = make(chan string, n)
	}
}

// New creates a session in the Empty state working against p.
func New(p port.Port, opts ...Option) *Session {
	s := &Session{
		port:   p,
		cfg:    piece.NewConfig(),
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.status == nil {
		s.status = make(chan string, 16)
	}
	s.piece = piece.New(piece.WithDate(piece.Day(s.now())))
	return s
}

func (s *Session) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithCancel(ctx)
}

// View is a read-only copy of everything an editor renders.
type View struct {
	Header        piece.Header
	Journal       port.JournalInfo
	Lines         []piece.Line
	Totals        piece.Totals
	Cursor        grid.Cursor
	State         State
	Modified      bool
	ReadOnly      bool
	PendingDelete string
	Status        string
}

// Snapshot copies the current session state.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	return View{
		Header:        s.piece.Header,
		Journal:       s.journal,
		Lines:         s.piece.Lines(),
		Totals:        s.piece.Totals(),
		Cursor:        s.cursor,
		State:         s.state,
		Modified:      s.modified,
		ReadOnly:      s.readOnly,
		PendingDelete: s.pendingDelete,
		Status:        s.lastStatus,
	}
}

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Modified reports whether the piece changed since it was created, loaded or saved.
func (s *Session) Modified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modified
}

// Config returns the validation settings.
func (s *Session) Config() *piece.Config {
	return s.cfg
}

// guardDiscardLocked refuses to drop a modified piece unless asked to.
func (s *Session) guardDiscardLocked(o callOptions) error {
	if s.state == Deleting {
		return ErrBusy
	}
	if s.modified && !o.discard {
		return ErrUnsavedChanges
	}
	return nil
}

// resetLocked opens a fresh piece for entry in the current journal.
func (s *Session) resetLocked() {
	s.piece.Header = piece.Header{Journal: s.journal.Code}
	s.piece.Reset(s.dateLocked())
	s.cursor = grid.Cursor{}
	s.modified = false
	s.readOnly = false
	s.saving = nil
	s.state = Editing
}

// dateLocked is the date given to new pieces: the working period when one was
// chosen, today otherwise.
func (s *Session) dateLocked() time.Time {
	if !s.period.IsZero() {
		return s.period
	}
	return piece.Day(s.now())
}

// NewPiece opens a blank piece: one empty line, today's date, no number.
func (s *Session) NewPiece(opts ...CallOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guardDiscardLocked(resolve(opts)); err != nil {
		return err
	}
	s.resetLocked()
	s.publish(msgNewPiece)
	return nil
}

// ChangeJournal switches the session to another journal and starts a new
// piece there, numbered with the backend's suggestion.
func (s *Session) ChangeJournal(ctx context.Context, code string, opts ...CallOption) error {
	timer := telemetry.FromContext(ctx).Start("session.change_journal " + code)
	defer timer.End()

	s.mu.Lock()
	err := s.guardDiscardLocked(resolve(opts))
	s.mu.Unlock()
	if err != nil {
		return err
	}

	callCtx, cancel := s.callContext(ctx)
	info, err := s.port.FetchJournalInfo(callCtx, code)
	cancel()
	if err != nil {
		s.fail("le chargement du journal", err)
		return err
	}

	s.mu.Lock()
	s.journal = info
	s.resetLocked()
	s.publish(msgNewPiece)
	s.mu.Unlock()

	return s.SuggestNumber(ctx)
}

// ChangePeriod sets the working date and starts a new piece dated on it,
// numbered for that period. A zero date goes back to today.
func (s *Session) ChangePeriod(ctx context.Context, date time.Time, opts ...CallOption) error {
	s.mu.Lock()
	if err := s.guardDiscardLocked(resolve(opts)); err != nil {
		s.mu.Unlock()
		return err
	}
	if date.IsZero() {
		s.period = time.Time{}
	} else {
		s.period = piece.Day(date)
	}
	s.resetLocked()
	s.publish(msgNewPiece)
	s.mu.Unlock()

	return s.SuggestNumber(ctx)
}

// Journal returns the journal the session works in.
func (s *Session) Journal() port.JournalInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.journal
}

// SuggestNumber fills an empty piece number with the backend's next number.
// It does not count as a user modification.
func (s *Session) SuggestNumber(ctx context.Context) error {
	s.mu.Lock()
	if s.readOnly || strings.TrimSpace(s.piece.Header.Number) != "" {
		s.mu.Unlock()
		return nil
	}
	journal := s.piece.Header.Journal
	s.mu.Unlock()

	if journal == "" {
		return nil
	}

	callCtx, cancel := s.callContext(ctx)
	number, err := s.port.SuggestNextNumber(callCtx, journal)
	cancel()
	if err != nil {
		s.fail("la numérotation", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.readOnly && s.piece.Header.Journal == journal && strings.TrimSpace(s.piece.Header.Number) == "" {
		s.piece.Header.Number = number
	}
	return nil
}

// fail logs err and publishes it as a status message.
func (s *Session) fail(op string, err error) {
	s.logger.Error("session operation failed", zap.String("op", op), zap.Error(err))
	s.mu.Lock()
	s.publish(msgFailed(op, err))
	s.mu.Unlock()
}

// Load opens doc in the grid, read-only or for editing.
func (s *Session) Load(doc *port.Document, readOnly bool, opts ...CallOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guardDiscardLocked(resolve(opts)); err != nil {
		return err
	}
	s.loadLocked(doc, readOnly)
	if readOnly {
		s.publish(msgViewing(doc.Header.Number))
	} else {
		s.publish(msgEditing(doc.Header.Number))
	}
	return nil
}

func (s *Session) loadLocked(doc *port.Document, readOnly bool) {
	s.piece.Load(doc.Header, doc.Lines)
	if doc.Header.Journal != "" && doc.Header.Journal != s.journal.Code {
		s.journal = port.JournalInfo{Code: doc.Header.Journal}
	}
	s.cursor = grid.Cursor{}
	s.modified = false
	s.readOnly = readOnly
	s.saving = nil
	if readOnly {
		s.state = Viewing
	} else {
		s.state = Editing
	}
}

// View fetches a saved piece and opens it read-only.
func (s *Session) View(ctx context.Context, number string, opts ...CallOption) error {
	return s.open(ctx, number, true, opts)
}

// Edit fetches a saved piece and opens it for editing. Saving it again
// replaces the stored piece.
func (s *Session) Edit(ctx context.Context, number string, opts ...CallOption) error {
	return s.open(ctx, number, false, opts)
}

func (s *Session) open(ctx context.Context, number string, readOnly bool, opts []CallOption) error {
	timer := telemetry.FromContext(ctx).Start("session.open " + number)
	defer timer.End()

	o := resolve(opts)
	s.mu.Lock()
	err := s.guardDiscardLocked(o)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	callCtx, cancel := s.callContext(ctx)
	doc, err := s.port.FetchDocument(callCtx, number)
	cancel()
	if err != nil {
		s.fail("le chargement de la pièce", err)
		return err
	}
	return s.Load(doc, readOnly, DiscardChanges())
}

// NavigateAdjacent opens the previous or next piece of the journal read-only.
// It reports false, without error, when there is none.
func (s *Session) NavigateAdjacent(ctx context.Context, dir port.Direction, opts ...CallOption) (bool, error) {
	timer := telemetry.FromContext(ctx).Start("session.navigate " + string(dir))
	defer timer.End()

	s.mu.Lock()
	if err := s.guardDiscardLocked(resolve(opts)); err != nil {
		s.mu.Unlock()
		return false, err
	}
	journal := s.piece.Header.Journal
	number := s.piece.Header.Number
	s.mu.Unlock()

	callCtx, cancel := s.callContext(ctx)
	doc, err := s.port.FetchAdjacentDocument(callCtx, journal, number, dir)
	cancel()
	if err != nil {
		s.fail("la navigation", err)
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if doc == nil {
		s.publish(msgAdjacent(dir, false))
		return false, nil
	}
	s.loadLocked(doc, true)
	s.publish(msgAdjacent(dir, true))
	return true, nil
}

// Search lists saved pieces matching criteria.
func (s *Session) Search(ctx context.Context, criteria port.SearchCriteria) ([]port.DocumentSummary, error) {
	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	results, err := s.port.SearchDocuments(callCtx, criteria)
	if err != nil {
		s.fail("la recherche", err)
		return nil, err
	}
	return results, nil
}

// Validate runs every piece rule on the current state. The returned error is
// a *piece.ValidationErrors.
func (s *Session) Validate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Empty {
		return ErrNoPiece
	}
	previous := s.state
	s.state = Validating
	err := s.piece.Validate(s.cfg)
	s.state = previous

	var verrs *piece.ValidationErrors
	if errors.As(err, &verrs) {
		s.publish(msgInvalid(len(verrs.Errors)))
		return err
	}
	s.publish(msgValid)
	return nil
}

// Cursor returns the current cell.
func (s *Session) Cursor() grid.Cursor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

func (s *Session) lineAtCursorLocked() (piece.Line, bool) {
	return s.piece.At(s.cursor.Row)
}

// CurrentLine returns a copy of the line under the cursor.
func (s *Session) CurrentLine() (piece.Line, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lineAtCursorLocked()
}

// lineIDLocked returns the reference of the line at row, or uuid.Nil.
func (s *Session) lineIDLocked(row int) uuid.UUID {
	l, ok := s.piece.At(row)
	if !ok {
		return uuid.Nil
	}
	return l.ID
}
