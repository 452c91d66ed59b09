package piece

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Option configures a Piece built with New.
type Option func(*Piece)

// New creates a piece with one blank line unless WithLines is given.
//
// Example:
//
//	p := piece.New(
//	    piece.WithJournal("AC"),
//	    piece.WithNumber("AC240001"),
//	    piece.WithLines(
//	        piece.BuildLine("601000", piece.WithLabel("Achat"), piece.WithDebit("100")),
//	        piece.BuildLine("401000", piece.WithLabel("Achat"), piece.WithCredit("100")),
//	    ),
//	)
func New(opts ...Option) *Piece {
	p := &Piece{}
	for _, opt := range opts {
		opt(p)
	}
	if len(p.lines) == 0 {
		p.lines = []*Line{NewLine()}
	}
	return p
}

// WithJournal sets the journal code.
func WithJournal(code string) Option {
	return func(p *Piece) {
		p.Header.Journal = code
	}
}

// WithDate sets the piece date.
func WithDate(date time.Time) Option {
	return func(p *Piece) {
		p.Header.Date = date
	}
}

// WithNumber sets the piece number.
func WithNumber(number string) Option {
	return func(p *Piece) {
		p.Header.Number = number
	}
}

// WithReference sets the external reference (invoice number, cheque...).
func WithReference(ref string) Option {
	return func(p *Piece) {
		p.Header.Reference = ref
	}
}

// WithLines sets the lines of the piece, in order.
func WithLines(lines ...*Line) Option {
	return func(p *Piece) {
		for _, l := range lines {
			if l.ID == uuid.Nil {
				l.ID = uuid.New()
			}
		}
		p.lines = append(p.lines, lines...)
	}
}

// LineOption configures a Line built with BuildLine.
type LineOption func(*Line)

// BuildLine creates a line on account with a fresh reference.
func BuildLine(account string, opts ...LineOption) *Line {
	l := &Line{ID: uuid.New(), Account: account}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// WithLabel sets the line label.
func WithLabel(label string) LineOption {
	return func(l *Line) {
		l.Label = label
	}
}

// WithDebit sets the debit amount from a decimal string and clears the credit.
func WithDebit(value string) LineOption {
	return func(l *Line) {
		l.Debit = decimal.RequireFromString(value)
		l.Credit = decimal.Zero
	}
}

// WithCredit sets the credit amount from a decimal string and clears the debit.
func WithCredit(value string) LineOption {
	return func(l *Line) {
		l.Credit = decimal.RequireFromString(value)
		l.Debit = decimal.Zero
	}
}

// WithCounterparty sets the counterparty code.
func WithCounterparty(code string) LineOption {
	return func(l *Line) {
		l.Counterparty = code
	}
}

// WithDueDate sets the due date.
func WithDueDate(due time.Time) LineOption {
	return func(l *Line) {
		l.DueDate = due
	}
}

// WithDay sets the day-of-month hint.
func WithDay(day int) LineOption {
	return func(l *Line) {
		l.Day = day
	}
}
