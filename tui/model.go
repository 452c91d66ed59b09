// Package tui is the terminal entry grid: a bubbletea program that turns key
// presses into session calls and renders the piece after each of them.
//
// Backend calls that may take time (save, navigation, numbering, lookups) run
// as commands; their answers come back to Update as messages, so the grid
// stays responsive while they are in flight.
package tui

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/Eudes8/Compta/errors"
	"github.com/Eudes8/Compta/grid"
	"github.com/Eudes8/Compta/lookup"
	"github.com/Eudes8/Compta/piece"
	"github.com/Eudes8/Compta/port"
	"github.com/Eudes8/Compta/session"
)

type (
	statusMsg  string
	lookupMsg  lookup.Result
	refreshMsg struct{ err error }

	saveDoneMsg struct {
		ticket *session.SaveTicket
		result port.SaveResult
		err    error
	}
)

// confirmation is a question waiting for o/n.
type confirmation int

const (
	confirmNone confirmation = iota
	confirmDiscard
	confirmDelete
)

// Model is the bubbletea model of the grid.
type Model struct {
	ctx     context.Context
	session *session.Session
	backend port.Port
	lookups *lookup.Controller
	results chan lookup.Result
	logger  *zap.Logger

	input    textinput.Model
	inputFor grid.Cursor
	inputRef string // line reference the input was seeded from

	errs     []error
	status   string
	confirm  confirmation
	question string
	retry    func(opts ...session.CallOption) tea.Cmd

	width    int
	height   int
	quitting bool
}

// Option configures a Model.
type Option func(*config)

type config struct {
	lookupOpts []lookup.Option
	logger     *zap.Logger
}

// WithLookupOptions passes options to the lookup controller.
func WithLookupOptions(opts ...lookup.Option) Option {
	return func(c *config) {
		c.lookupOpts = append(c.lookupOpts, opts...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// New creates the grid for sess. backend serves saves and lookups; it is
// normally the port the session was created with.
func New(ctx context.Context, sess *session.Session, backend port.Port, opts ...Option) *Model {
	cfg := &config{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}

	m := &Model{
		ctx:     ctx,
		session: sess,
		backend: backend,
		results: make(chan lookup.Result, 16),
		logger:  cfg.logger,
	}

	lookupOpts := append([]lookup.Option{lookup.WithLogger(cfg.logger)}, cfg.lookupOpts...)
	lookupOpts = append(lookupOpts, lookup.WithDelivery(m.deliver))
	m.lookups = lookup.New(backend, lookupOpts...)

	m.input = textinput.New()
	m.input.Prompt = ""
	m.input.Focus()
	m.reseed()
	return m
}

// deliver hands a lookup result to the event loop. It runs on the search
// goroutine.
func (m *Model) deliver(r lookup.Result) {
	select {
	case m.results <- r:
	case <-m.ctx.Done():
	}
}

func (m *Model) waitForLookup() tea.Cmd {
	return func() tea.Msg {
		select {
		case r := <-m.results:
			return lookupMsg(r)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) waitForStatus() tea.Cmd {
	status := m.session.Status()
	return func() tea.Msg {
		select {
		case s := <-status:
			return statusMsg(s)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForLookup(), m.waitForStatus(), textinput.Blink)
}

// reseed loads the text of the cell under the cursor into the input.
func (m *Model) reseed() {
	cursor := m.session.Cursor()
	line, ok := m.session.CurrentLine()
	m.inputFor = cursor
	if !ok {
		m.inputRef = ""
		m.input.SetValue("")
		return
	}
	m.inputRef = line.ID.String()
	m.input.SetValue(formatCell(line, cursor.Column, m.session.Config()))
	m.input.CursorEnd()
}

func formatCell(l piece.Line, column piece.Column, cfg *piece.Config) string {
	switch column {
	case piece.ColumnAccount:
		return l.Account
	case piece.ColumnLabel:
		return l.Label
	case piece.ColumnDebit:
		return cfg.Codec.FormatBlank(l.Debit)
	case piece.ColumnCredit:
		return cfg.Codec.FormatBlank(l.Credit)
	case piece.ColumnDueDate:
		return piece.FormatDate(l.DueDate)
	case piece.ColumnCounterparty:
		return l.Counterparty
	}
	return ""
}

// cell is the lookup address of the cell under the cursor.
func (m *Model) cell() (lookup.Cell, lookup.Kind, bool) {
	line, ok := m.session.CurrentLine()
	if !ok {
		return lookup.Cell{}, 0, false
	}
	column := m.session.Cursor().Column
	kind, ok := lookup.KindForColumn(column)
	return lookup.Cell{Line: line.ID, Column: column}, kind, ok
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case statusMsg:
		m.status = string(msg)
		return m, m.waitForStatus()

	case lookupMsg:
		m.lookups.Apply(lookup.Result(msg))
		return m, m.waitForLookup()

	case saveDoneMsg:
		return m, m.completeSave(msg)

	case refreshMsg:
		if msg.err != nil {
			m.logger.Debug("background call failed", zap.Error(msg.err))
		}
		m.reseed()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.confirm != confirmNone {
		return m.handleConfirmKey(key)
	}

	if list, open := m.lookups.List(); open {
		switch key {
		case "up":
			m.lookups.Select(-1)
			return m, nil
		case "down":
			m.lookups.Select(1)
			return m, nil
		case "enter", "tab":
			m.pickSuggestion()
			return m, nil
		case "esc":
			m.lookups.Dismiss(list.Cell)
			return m, nil
		}
	}

	binding := grid.ActionForKey(key)
	switch binding.Action {
	case grid.ActionMove:
		m.lookups.Close()
		m.session.Move(binding.Direction)
		m.reseed()
		return m, nil

	case grid.ActionLookup:
		if cell, kind, ok := m.cell(); ok {
			m.lookups.Input(m.ctx, cell, kind, m.input.Value(), m.session.Journal().Kind)
		}
		return m, nil

	case grid.ActionSave:
		return m, m.beginSave()

	case grid.ActionAutoBalance:
		m.apply(m.session.AutoBalance())
		return m, nil

	case grid.ActionInverse:
		m.apply(m.session.InverseAll())
		return m, nil

	case grid.ActionSort:
		m.apply(m.session.SortByAccount())
		return m, nil

	case grid.ActionRemoveLine:
		m.apply(m.session.RemoveLine())
		return m, nil

	case grid.ActionDismiss:
		m.errs = nil
		return m, nil

	case grid.ActionPrevious:
		return m, m.guarded(m.navigate(port.Previous))

	case grid.ActionNext:
		return m, m.guarded(m.navigate(port.Next))

	case grid.ActionNew:
		return m, m.guarded(m.newPiece)

	case grid.ActionDelete:
		if err := m.session.RequestDelete(""); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.confirm = confirmDelete
		m.question = fmt.Sprintf("Supprimer la pièce %s ? (o/n)", m.session.Snapshot().PendingDelete)
		return m, nil

	case grid.ActionQuit:
		return m, m.guarded(m.quit)
	}

	return m.typeInCell(msg)
}

// typeInCell forwards the key to the input and writes the new text into
// the cell, starting a lookup in searchable cells.
func (m *Model) typeInCell(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	text := m.input.Value()
	if text == before {
		return m, cmd
	}

	if err := m.session.SetCell(text); err != nil {
		m.status = err.Error()
		m.reseed()
		return m, cmd
	}
	if cell, kind, ok := m.cell(); ok {
		m.lookups.Input(m.ctx, cell, kind, text, m.session.Journal().Kind)
	}
	return m, cmd
}

// pickSuggestion writes the highlighted suggestion into its cell. Choosing a
// counterparty also fills an empty account with its collective account.
func (m *Model) pickSuggestion() {
	match, cell, ok := m.lookups.Confirm()
	if !ok {
		return
	}
	if err := m.session.SetField(cell.Line, cell.Column, match.Code); err != nil {
		m.status = err.Error()
		return
	}
	if cell.Column == piece.ColumnCounterparty && match.Account != "" {
		if line, ok := m.session.CurrentLine(); ok && line.ID == cell.Line && line.Account == "" {
			if err := m.session.SetField(cell.Line, piece.ColumnAccount, match.Account); err != nil {
				m.status = err.Error()
			}
		}
	}
	m.reseed()
}

func (m *Model) apply(err error) {
	if err != nil {
		m.status = err.Error()
	}
	m.reseed()
}

// guarded runs action, asking first when it would drop unsaved changes.
func (m *Model) guarded(action func(opts ...session.CallOption) tea.Cmd) tea.Cmd {
	if m.session.Modified() {
		m.confirm = confirmDiscard
		m.question = "La pièce a été modifiée. Abandonner les modifications ? (o/n)"
		m.retry = action
		return nil
	}
	return action()
}

func (m *Model) handleConfirmKey(key string) (tea.Model, tea.Cmd) {
	yes := key == "o" || key == "y" || key == "enter"
	no := key == "n" || key == "esc"
	if !yes && !no {
		return m, nil
	}

	asked := m.confirm
	retry := m.retry
	m.confirm = confirmNone
	m.question = ""
	m.retry = nil

	switch asked {
	case confirmDelete:
		if no {
			m.session.CancelDelete()
			return m, nil
		}
		return m, func() tea.Msg {
			err := m.session.ConfirmDelete(m.ctx)
			if err == nil {
				err = m.session.SuggestNumber(m.ctx)
			}
			return refreshMsg{err: err}
		}
	case confirmDiscard:
		if no || retry == nil {
			return m, nil
		}
		return m, retry(session.DiscardChanges())
	}
	return m, nil
}

func (m *Model) navigate(dir port.Direction) func(opts ...session.CallOption) tea.Cmd {
	return func(opts ...session.CallOption) tea.Cmd {
		m.lookups.Close()
		return func() tea.Msg {
			_, err := m.session.NavigateAdjacent(m.ctx, dir, opts...)
			return refreshMsg{err: err}
		}
	}
}

func (m *Model) newPiece(opts ...session.CallOption) tea.Cmd {
	m.lookups.Close()
	m.errs = nil
	if err := m.session.NewPiece(opts...); err != nil {
		m.status = err.Error()
		return nil
	}
	m.reseed()
	return func() tea.Msg {
		return refreshMsg{err: m.session.SuggestNumber(m.ctx)}
	}
}

func (m *Model) quit(...session.CallOption) tea.Cmd {
	m.quitting = true
	m.lookups.Close()
	return tea.Quit
}

// beginSave validates on the loop and sends the piece from a command.
func (m *Model) beginSave() tea.Cmd {
	ticket, err := m.session.BeginSave()
	if err != nil {
		var verrs *piece.ValidationErrors
		if stdErrors.As(err, &verrs) {
			m.errs = errors.Flatten(err)
			m.jumpToFirstError()
		} else {
			m.status = err.Error()
		}
		return nil
	}
	m.errs = nil
	m.lookups.Close()

	backend := m.backend
	ctx := m.ctx
	return func() tea.Msg {
		result, err := backend.SaveDocument(ctx, ticket.Header, ticket.Lines)
		return saveDoneMsg{ticket: ticket, result: result, err: err}
	}
}

func (m *Model) completeSave(msg saveDoneMsg) tea.Cmd {
	err := m.session.CompleteSave(msg.ticket, msg.result, msg.err)
	m.reseed()
	if err != nil || m.session.State() != session.Saved {
		return nil
	}
	return func() tea.Msg {
		return refreshMsg{err: m.session.SuggestNumber(m.ctx)}
	}
}

// jumpToFirstError puts the cursor on the cell of the first line error.
func (m *Model) jumpToFirstError() {
	for _, err := range m.errs {
		var lineErr *piece.LineError
		if stdErrors.As(err, &lineErr) {
			m.session.SetCursor(grid.Cursor{Row: lineErr.Row - 1, Column: lineErr.Kind.Column()})
			m.reseed()
			return
		}
	}
}

// Errors returns the validation errors of the last save attempt.
func (m *Model) Errors() []error {
	return m.errs
}
