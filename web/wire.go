package web

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Eudes8/Compta/piece"
	"github.com/Eudes8/Compta/port"
)

// dateLayout is how dates travel in JSON and query strings.
const dateLayout = "2006-01-02"

// LineJSON is one piece line on the wire. Amounts are decimal strings with a
// point ("1234.50"), never the display format.
type LineJSON struct {
	ID           uuid.UUID       `json:"id"`
	Day          int             `json:"day,omitempty"`
	Account      string          `json:"account"`
	Counterparty string          `json:"counterparty,omitempty"`
	Label        string          `json:"label"`
	DueDate      string          `json:"dueDate,omitempty"`
	Debit        decimal.Decimal `json:"debit"`
	Credit       decimal.Decimal `json:"credit"`
}

// HeaderJSON is a piece header on the wire.
type HeaderJSON struct {
	Journal   string `json:"journal"`
	Date      string `json:"date"`
	Number    string `json:"number"`
	Reference string `json:"reference,omitempty"`
}

// DocumentJSON is a saved piece, or a piece to save.
type DocumentJSON struct {
	Header HeaderJSON `json:"header"`
	Lines  []LineJSON `json:"lines"`
}

// JournalJSON describes a journal.
type JournalJSON struct {
	Code       string `json:"code"`
	Label      string `json:"label"`
	Kind       string `json:"kind"`
	LastNumber string `json:"lastNumber,omitempty"`
}

// NumberJSON carries a suggested piece number.
type NumberJSON struct {
	Number string `json:"number"`
}

// SaveResultJSON is the verdict on a save.
type SaveResultJSON struct {
	Success     bool   `json:"success"`
	SavedNumber string `json:"savedNumber,omitempty"`
	Message     string `json:"message"`
}

// DeleteResultJSON is the verdict on a delete.
type DeleteResultJSON struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SummaryJSON is one search result.
type SummaryJSON struct {
	Number    string          `json:"number"`
	Journal   string          `json:"journal"`
	Date      string          `json:"date"`
	Reference string          `json:"reference,omitempty"`
	Total     decimal.Decimal `json:"total"`
}

// ProblemJSON is the body of every non-2xx answer.
type ProblemJSON struct {
	Kind    string `json:"kind"` // "rejected", "not_found", "bad_request", "internal"
	Op      string `json:"op,omitempty"`
	Message string `json:"message"`
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func parseDate(text string) (time.Time, error) {
	if text == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, text)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", text, err)
	}
	return t, nil
}

func toHeaderJSON(h piece.Header) HeaderJSON {
	return HeaderJSON{
		Journal:   h.Journal,
		Date:      formatDate(h.Date),
		Number:    h.Number,
		Reference: h.Reference,
	}
}

func (h HeaderJSON) header() (piece.Header, error) {
	date, err := parseDate(h.Date)
	if err != nil {
		return piece.Header{}, err
	}
	return piece.Header{Journal: h.Journal, Date: date, Number: h.Number, Reference: h.Reference}, nil
}

func toLinesJSON(lines []piece.Line) []LineJSON {
	out := make([]LineJSON, 0, len(lines))
	for _, l := range lines {
		out = append(out, LineJSON{
			ID:           l.ID,
			Day:          l.Day,
			Account:      l.Account,
			Counterparty: l.Counterparty,
			Label:        l.Label,
			DueDate:      formatDate(l.DueDate),
			Debit:        l.Debit,
			Credit:       l.Credit,
		})
	}
	return out
}

func linesFromJSON(in []LineJSON) ([]piece.Line, error) {
	out := make([]piece.Line, 0, len(in))
	for i, l := range in {
		due, err := parseDate(l.DueDate)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		id := l.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		out = append(out, piece.Line{
			ID:           id,
			Day:          l.Day,
			Account:      l.Account,
			Counterparty: l.Counterparty,
			Label:        l.Label,
			DueDate:      due,
			Debit:        l.Debit,
			Credit:       l.Credit,
		})
	}
	return out, nil
}

// NewDocumentJSON converts d to its wire form.
func NewDocumentJSON(d *port.Document) DocumentJSON {
	return DocumentJSON{Header: toHeaderJSON(d.Header), Lines: toLinesJSON(d.Lines)}
}

func (d DocumentJSON) document() (*port.Document, error) {
	header, err := d.Header.header()
	if err != nil {
		return nil, err
	}
	lines, err := linesFromJSON(d.Lines)
	if err != nil {
		return nil, err
	}
	return &port.Document{Header: header, Lines: lines}, nil
}
