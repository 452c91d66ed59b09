// Package lookup runs the account and counterparty searches behind the F4
// suggestion list.
//
// Keystrokes in a searchable cell are debounced per cell. Each dispatched
// search gets a sequence number, and only the result of the newest search
// issued for a cell is ever shown: an older response that arrives late is
// dropped, whatever order the backend answers in.
package lookup

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Eudes8/Compta/piece"
	"github.com/Eudes8/Compta/port"
)

// Kind selects what a lookup searches for.
type Kind int

const (
	Account Kind = iota
	Counterparty
)

func (k Kind) String() string {
	if k == Counterparty {
		return "counterparty"
	}
	return "account"
}

// KindForColumn returns the lookup kind served by column, if any.
func KindForColumn(column piece.Column) (Kind, bool) {
	switch column {
	case piece.ColumnAccount:
		return Account, true
	case piece.ColumnCounterparty:
		return Counterparty, true
	}
	return 0, false
}

// Cell identifies the grid cell a lookup was issued from. Lines are addressed
// by reference so sorting or inserting rows does not retarget a lookup.
type Cell struct {
	Line   uuid.UUID
	Column piece.Column
}

// Searcher is the part of port.Port lookups need.
type Searcher interface {
	SearchAccounts(ctx context.Context, query string, kind port.JournalKind, limit int) ([]port.AccountMatch, error)
	SearchCounterparties(ctx context.Context, query string, kind port.JournalKind, limit int) ([]port.CounterpartyMatch, error)
}

// Match is one suggestion.
type Match struct {
	Code    string
	Label   string
	Account string // collective account of a counterparty
}

// Request is one dispatched search.
type Request struct {
	Seq     uint64
	Cell    Cell
	Kind    Kind
	Query   string
	Journal port.JournalKind
}

// Result is the outcome of a Request.
type Result struct {
	Request Request
	Matches []Match
	Err     error
}

// List is the suggestion list currently shown.
type List struct {
	Cell     Cell
	Kind     Kind
	Query    string
	Matches  []Match
	Selected int
}

// Controller owns the pending and in-flight searches of an editor.
type Controller struct {
	searcher  Searcher
	minLength int
	debounce  time.Duration
	limit     int
	timeout   time.Duration
	logger    *zap.Logger
	deliver   func(Result)

	mu      sync.Mutex
	seq     uint64
	latest  map[Cell]uint64
	timers  map[Cell]*time.Timer
	cancels map[Cell]context.CancelFunc
	open    *List
	lastErr error
}

// Option configures a Controller.
type Option func(*Controller)

// WithMinLength sets the number of characters a query needs before it is sent.
func WithMinLength(n int) Option {
	return func(c *Controller) {
		c.minLength = n
	}
}

// WithDebounce sets the quiet period after the last keystroke before a search
// is sent. Zero sends immediately.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		c.debounce = d
	}
}

// WithLimit caps the number of suggestions requested.
func WithLimit(n int) Option {
	return func(c *Controller) {
		c.limit = n
	}
}

// WithTimeout bounds each search call. Zero means no bound beyond the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithDelivery routes results through fn instead of applying them directly.
// Interactive front ends use it to hand results to their event loop, which
// then calls Apply.
func WithDelivery(fn func(Result)) Option {
	return func(c *Controller) {
		c.deliver = fn
	}
}

// New creates a controller searching through s.
func New(s Searcher, opts ...Option) *Controller {
	c := &Controller{
		searcher:  s,
		minLength: 2,
		debounce:  150 * time.Millisecond,
		limit:     50,
		logger:    zap.NewNop(),
		latest:    make(map[Cell]uint64),
		timers:    make(map[Cell]*time.Timer),
		cancels:   make(map[Cell]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.deliver == nil {
		c.deliver = func(r Result) { c.Apply(r) }
	}
	return c
}

// Input records the current text of a searchable cell. Queries shorter than
// the minimum length cancel any pending search for the cell and close its
// list; longer ones schedule a search. It returns the scheduled request.
func (c *Controller) Input(ctx context.Context, cell Cell, kind Kind, query string, journal port.JournalKind) (Request, bool) {
	query = strings.TrimSpace(query)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.supersedeLocked(cell)

	if utf8.RuneCountInString(query) < c.minLength {
		if c.open != nil && c.open.Cell == cell {
			c.open = nil
		}
		return Request{}, false
	}

	req := Request{
		Seq:     c.latest[cell],
		Cell:    cell,
		Kind:    kind,
		Query:   query,
		Journal: journal,
	}

	if c.debounce <= 0 {
		go c.dispatch(ctx, req)
		return req, true
	}
	c.timers[cell] = time.AfterFunc(c.debounce, func() {
		c.dispatch(ctx, req)
	})
	return req, true
}

// supersedeLocked issues a new sequence number for cell, stopping its pending
// timer and cancelling its in-flight call.
func (c *Controller) supersedeLocked(cell Cell) {
	c.seq++
	c.latest[cell] = c.seq

	if t, ok := c.timers[cell]; ok {
		t.Stop()
		delete(c.timers, cell)
	}
	if cancel, ok := c.cancels[cell]; ok {
		cancel()
		delete(c.cancels, cell)
	}
}

func (c *Controller) dispatch(ctx context.Context, req Request) {
	c.mu.Lock()
	if c.latest[req.Cell] != req.Seq {
		c.mu.Unlock()
		return
	}
	delete(c.timers, req.Cell)

	var callCtx context.Context
	var cancel context.CancelFunc
	if c.timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
	} else {
		callCtx, cancel = context.WithCancel(ctx)
	}
	c.cancels[req.Cell] = cancel
	c.mu.Unlock()

	matches, err := c.search(callCtx, req)

	c.mu.Lock()
	if c.latest[req.Cell] == req.Seq {
		delete(c.cancels, req.Cell)
	}
	c.mu.Unlock()
	cancel()

	c.deliver(Result{Request: req, Matches: matches, Err: err})
}

func (c *Controller) search(ctx context.Context, req Request) ([]Match, error) {
	switch req.Kind {
	case Counterparty:
		found, err := c.searcher.SearchCounterparties(ctx, req.Query, req.Journal, c.limit)
		if err != nil {
			return nil, err
		}
		matches := make([]Match, 0, len(found))
		for _, m := range found {
			matches = append(matches, Match{Code: m.Code, Label: m.Name, Account: m.Account})
		}
		return matches, nil
	default:
		found, err := c.searcher.SearchAccounts(ctx, req.Query, req.Journal, c.limit)
		if err != nil {
			return nil, err
		}
		matches := make([]Match, 0, len(found))
		for _, m := range found {
			matches = append(matches, Match{Code: m.Code, Label: m.Label})
		}
		return matches, nil
	}
}

// Apply installs a result as the open suggestion list if it answers the
// newest request issued for its cell. It reports whether the result was used.
func (c *Controller) Apply(res Result) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.latest[res.Request.Cell] != res.Request.Seq {
		c.logger.Debug("dropping superseded lookup result",
			zap.Uint64("seq", res.Request.Seq),
			zap.String("query", res.Request.Query))
		return false
	}

	if res.Err != nil {
		c.logger.Warn("lookup failed",
			zap.String("kind", res.Request.Kind.String()),
			zap.String("query", res.Request.Query),
			zap.Error(res.Err))
		c.lastErr = res.Err
		if c.open != nil && c.open.Cell == res.Request.Cell {
			c.open = nil
		}
		return true
	}

	c.lastErr = nil
	c.open = &List{
		Cell:    res.Request.Cell,
		Kind:    res.Request.Kind,
		Query:   res.Request.Query,
		Matches: res.Matches,
	}
	return true
}

// List returns a copy of the open suggestion list.
func (c *Controller) List() (List, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open == nil {
		return List{}, false
	}
	l := *c.open
	l.Matches = append([]Match(nil), c.open.Matches...)
	return l, true
}

// Err returns the error of the last applied result, if it failed.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Select moves the highlighted suggestion by delta, clamped to the list.
func (c *Controller) Select(delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open == nil || len(c.open.Matches) == 0 {
		return
	}
	i := c.open.Selected + delta
	if i < 0 {
		i = 0
	}
	if i >= len(c.open.Matches) {
		i = len(c.open.Matches) - 1
	}
	c.open.Selected = i
}

// Confirm closes the list and returns the highlighted match with the cell it
// belongs to. Searches still running for that cell are superseded.
func (c *Controller) Confirm() (Match, Cell, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open == nil {
		return Match{}, Cell{}, false
	}
	list := c.open
	c.open = nil
	c.supersedeLocked(list.Cell)
	if len(list.Matches) == 0 {
		return Match{}, Cell{}, false
	}
	return list.Matches[list.Selected], list.Cell, true
}

// Dismiss closes the list of cell and supersedes its pending and in-flight
// searches. The cell content is left alone.
func (c *Controller) Dismiss(cell Cell) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.supersedeLocked(cell)
	if c.open != nil && c.open.Cell == cell {
		c.open = nil
	}
}

// Close stops every pending search.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for cell := range c.latest {
		c.supersedeLocked(cell)
	}
	c.open = nil
}
