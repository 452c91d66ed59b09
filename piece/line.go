package piece

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Column identifies an editable cell of a line. The order of the constants is
// the visual order of the grid.
type Column int

const (
	ColumnAccount Column = iota
	ColumnLabel
	ColumnDebit
	ColumnCredit
	ColumnDueDate
	ColumnCounterparty
)

// Columns lists every grid column in visual order.
var Columns = []Column{
	ColumnAccount,
	ColumnLabel,
	ColumnDebit,
	ColumnCredit,
	ColumnDueDate,
	ColumnCounterparty,
}

var columnNames = [...]string{
	ColumnAccount:      "account",
	ColumnLabel:        "label",
	ColumnDebit:        "debit",
	ColumnCredit:       "credit",
	ColumnDueDate:      "dueDate",
	ColumnCounterparty: "counterparty",
}

func (c Column) String() string {
	if c < 0 || int(c) >= len(columnNames) {
		return "unknown"
	}
	return columnNames[c]
}

// Valid reports whether c is one of the grid columns.
func (c Column) Valid() bool {
	return c >= ColumnAccount && c <= ColumnCounterparty
}

// IsAmount reports whether c holds a debit or credit amount.
func (c Column) IsAmount() bool {
	return c == ColumnDebit || c == ColumnCredit
}

// Line is one row of a piece.
type Line struct {
	ID           uuid.UUID
	Day          int // day-of-month hint, 0 when unset
	Account      string
	Counterparty string
	Label        string
	DueDate      time.Time // zero when unset
	Debit        decimal.Decimal
	Credit       decimal.Decimal
}

// NewLine returns a blank line with a fresh reference.
func NewLine() *Line {
	return &Line{ID: uuid.New()}
}

// IsBlank reports whether the line carries nothing worth saving: no account
// and no amount. A label alone does not make a line.
func (l *Line) IsBlank() bool {
	return strings.TrimSpace(l.Account) == "" &&
		l.Debit.IsZero() &&
		l.Credit.IsZero()
}

// Amount returns the positive side of the line, debit first.
func (l *Line) Amount() decimal.Decimal {
	if l.Debit.IsPositive() {
		return l.Debit
	}
	return l.Credit
}

// Clone returns a copy of the line with the same reference.
func (l *Line) Clone() *Line {
	c := *l
	return &c
}
