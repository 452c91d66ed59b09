// Package piece holds the in-memory model of an accounting piece: a header
// and an ordered list of debit/credit lines, together with the rules that
// decide whether the piece can be saved.
//
// A piece always has at least one line. Removing the last line clears it
// instead, and an empty line list is replaced by one blank line.
package piece

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"

	"github.com/Eudes8/Compta/amount"
)

// Header identifies a piece.
type Header struct {
	Journal   string
	Date      time.Time
	Number    string
	Reference string
}

// Side selects the debit or credit column of a line.
type Side int

const (
	Debit Side = iota
	Credit
)

func (s Side) String() string {
	if s == Credit {
		return "credit"
	}
	return "debit"
}

// Totals are the column sums of a piece.
type Totals struct {
	Debit   decimal.Decimal
	Credit  decimal.Decimal
	Balance decimal.Decimal // Debit - Credit
}

// Piece is the mutable model behind the entry grid.
type Piece struct {
	Header Header

	lines    []*Line
	revision uint64
}

// LineNotFoundError is returned when a line reference does not belong to the piece.
type LineNotFoundError struct {
	ID uuid.UUID
}

func (e *LineNotFoundError) Error() string {
	return fmt.Sprintf("line %s not found", e.ID)
}

// Len returns the number of lines, blank ones included.
func (p *Piece) Len() int {
	return len(p.lines)
}

// Revision increases on every mutation. Callers compare revisions to detect
// edits made while an asynchronous operation was running.
func (p *Piece) Revision() uint64 {
	return p.revision
}

func (p *Piece) touch() {
	p.revision++
}

// Lines returns copies of every line in grid order.
func (p *Piece) Lines() []Line {
	out := make([]Line, len(p.lines))
	for i, l := range p.lines {
		out[i] = *l
	}
	return out
}

// At returns a copy of the line at row i.
func (p *Piece) At(i int) (Line, bool) {
	if i < 0 || i >= len(p.lines) {
		return Line{}, false
	}
	return *p.lines[i], true
}

// Index returns the row of the referenced line, or -1.
func (p *Piece) Index(id uuid.UUID) int {
	return slices.IndexFunc(p.lines, func(l *Line) bool { return l.ID == id })
}

func (p *Piece) find(id uuid.UUID) (*Line, error) {
	i := p.Index(id)
	if i < 0 {
		return nil, &LineNotFoundError{ID: id}
	}
	return p.lines[i], nil
}

// AddLine appends a blank line and returns it.
func (p *Piece) AddLine() *Line {
	l := NewLine()
	p.lines = append(p.lines, l)
	p.touch()
	return l
}

// RemoveLine deletes the referenced line. When it is the only line, the line
// is cleared instead so the grid keeps one row.
func (p *Piece) RemoveLine(id uuid.UUID) error {
	i := p.Index(id)
	if i < 0 {
		return &LineNotFoundError{ID: id}
	}
	if len(p.lines) == 1 {
		p.lines[0] = &Line{ID: id}
	} else {
		p.lines = slices.Delete(p.lines, i, i+1)
	}
	p.touch()
	return nil
}

// ClearLines resets the piece to exactly one blank line.
func (p *Piece) ClearLines() {
	p.lines = []*Line{NewLine()}
	p.touch()
}

// ReplaceLine overwrites the referenced line with the given content. The
// reference is preserved and negative amounts become zero. Both sides are
// written as given; validation reports a line carrying both.
func (p *Piece) ReplaceLine(id uuid.UUID, content Line) error {
	l, err := p.find(id)
	if err != nil {
		return err
	}
	content.ID = id
	content.Debit = nonNegative(content.Debit)
	content.Credit = nonNegative(content.Credit)
	*l = content
	p.touch()
	return nil
}

// SetAmount writes value on one side of the line. A positive value clears the
// opposite side, so a line never carries both a debit and a credit.
func (p *Piece) SetAmount(id uuid.UUID, side Side, value decimal.Decimal) error {
	l, err := p.find(id)
	if err != nil {
		return err
	}
	value = nonNegative(value)
	switch side {
	case Debit:
		l.Debit = value
		if value.IsPositive() {
			l.Credit = decimal.Zero
		}
	case Credit:
		l.Credit = value
		if value.IsPositive() {
			l.Debit = decimal.Zero
		}
	default:
		return fmt.Errorf("invalid side %d", side)
	}
	p.touch()
	return nil
}

// SetText writes a non-amount text column (account, label, counterparty).
func (p *Piece) SetText(id uuid.UUID, column Column, text string) error {
	l, err := p.find(id)
	if err != nil {
		return err
	}
	switch column {
	case ColumnAccount:
		l.Account = strings.TrimSpace(text)
	case ColumnLabel:
		l.Label = text
	case ColumnCounterparty:
		l.Counterparty = strings.TrimSpace(text)
	default:
		return fmt.Errorf("column %s is not a text column", column)
	}
	p.touch()
	return nil
}

// SetDueDate sets or clears (zero time) the due date of the line.
func (p *Piece) SetDueDate(id uuid.UUID, due time.Time) error {
	l, err := p.find(id)
	if err != nil {
		return err
	}
	l.DueDate = due
	p.touch()
	return nil
}

// SetDay sets the day-of-month hint. Range checking is left to validation so
// the user can type freely.
func (p *Piece) SetDay(id uuid.UUID, day int) error {
	l, err := p.find(id)
	if err != nil {
		return err
	}
	l.Day = day
	p.touch()
	return nil
}

// SetField routes keystroke text to the right setter for column. Amount text
// is parsed with codec; due dates accept day-first formats.
func (p *Piece) SetField(id uuid.UUID, column Column, text string, codec amount.Codec) error {
	switch column {
	case ColumnDebit:
		return p.SetAmount(id, Debit, codec.Parse(text))
	case ColumnCredit:
		return p.SetAmount(id, Credit, codec.Parse(text))
	case ColumnDueDate:
		due, err := ParseDate(text)
		if err != nil {
			return err
		}
		return p.SetDueDate(id, due)
	default:
		return p.SetText(id, column, text)
	}
}

// Totals sums both columns. Blank lines contribute zero.
func (p *Piece) Totals() Totals {
	var t Totals
	for _, l := range p.lines {
		t.Debit = t.Debit.Add(l.Debit)
		t.Credit = t.Credit.Add(l.Credit)
	}
	t.Balance = t.Debit.Sub(t.Credit)
	return t
}

// InverseAll swaps debit and credit on every line.
func (p *Piece) InverseAll() {
	for _, l := range p.lines {
		l.Debit, l.Credit = l.Credit, l.Debit
	}
	p.touch()
}

// AutoBalance puts the residual of the other lines on the referenced line,
// on whichever side brings the piece back to balance. It reports whether the
// line changed.
func (p *Piece) AutoBalance(id uuid.UUID) (bool, error) {
	target, err := p.find(id)
	if err != nil {
		return false, err
	}

	var others Totals
	for _, l := range p.lines {
		if l == target {
			continue
		}
		others.Debit = others.Debit.Add(l.Debit)
		others.Credit = others.Credit.Add(l.Credit)
	}
	residual := others.Debit.Sub(others.Credit)

	switch {
	case residual.IsZero():
		if target.Debit.IsZero() && target.Credit.IsZero() {
			return false, nil
		}
		target.Debit, target.Credit = decimal.Zero, decimal.Zero
	case residual.IsPositive():
		if target.Credit.Equal(residual) && target.Debit.IsZero() {
			return false, nil
		}
		target.Debit, target.Credit = decimal.Zero, residual
	default:
		if target.Debit.Equal(residual.Neg()) && target.Credit.IsZero() {
			return false, nil
		}
		target.Debit, target.Credit = residual.Neg(), decimal.Zero
	}
	p.touch()
	return true, nil
}

// Snapshot returns copies of the non-blank lines, in grid order, for
// persistence.
func (p *Piece) Snapshot() []Line {
	out := make([]Line, 0, len(p.lines))
	for _, l := range p.lines {
		if l.IsBlank() {
			continue
		}
		out = append(out, *l)
	}
	return out
}

// Load replaces header and lines. Lines without a reference get one, and an
// empty list yields one blank line.
func (p *Piece) Load(header Header, lines []Line) {
	p.Header = header
	p.lines = make([]*Line, 0, len(lines)+1)
	for i := range lines {
		l := lines[i]
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		l.Debit = nonNegative(l.Debit)
		l.Credit = nonNegative(l.Credit)
		p.lines = append(p.lines, &l)
	}
	if len(p.lines) == 0 {
		p.lines = append(p.lines, NewLine())
	}
	p.touch()
}

// Reset starts a new piece dated date with one blank line. The journal is kept.
func (p *Piece) Reset(date time.Time) {
	p.Header = Header{Journal: p.Header.Journal, Date: date}
	p.ClearLines()
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
