package loader

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/Eudes8/Compta/amount"
	"github.com/Eudes8/Compta/piece"
	"github.com/Eudes8/Compta/port"
)

// file is the YAML shape of one dossier file.
type file struct {
	Includes       []string           `yaml:"includes"`
	Journals       []journalEntry     `yaml:"journals"`
	Accounts       []accountEntry     `yaml:"accounts"`
	Counterparties []counterpartyYAML `yaml:"counterparties"`
	Pieces         []pieceEntry       `yaml:"pieces"`
}

type journalEntry struct {
	Code  string `yaml:"code"`
	Label string `yaml:"label"`
	Kind  string `yaml:"kind"`
}

type accountEntry struct {
	Code  string `yaml:"code"`
	Label string `yaml:"label"`
	Type  string `yaml:"type"`
}

type counterpartyYAML struct {
	Code    string `yaml:"code"`
	Name    string `yaml:"name"`
	Kind    string `yaml:"kind"`
	Account string `yaml:"account"`
}

type pieceEntry struct {
	Journal   string      `yaml:"journal"`
	Number    string      `yaml:"number"`
	Date      string      `yaml:"date"`
	Reference string      `yaml:"reference"`
	Lines     []lineEntry `yaml:"lines"`
}

type lineEntry struct {
	Account      string `yaml:"account"`
	Label        string `yaml:"label"`
	Debit        string `yaml:"debit"`
	Credit       string `yaml:"credit"`
	Due          string `yaml:"due"`
	Counterparty string `yaml:"counterparty"`
	Day          int    `yaml:"day"`
}

// Dossier is everything a set of dossier files declares.
type Dossier struct {
	// Root is the absolute path of the file that was loaded.
	Root string
	// Includes lists the absolute paths of included files, in load order.
	Includes []string

	Journals       []port.JournalInfo
	Accounts       []port.AccountMatch
	Counterparties []port.CounterpartyMatch
	Pieces         []port.Document
}

// parseAmount reads an amount cell. The codec maps anything it cannot read
// to zero, which in a file is a typo rather than an intended zero.
func parseAmount(codec amount.Codec, text string) (decimal.Decimal, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return decimal.Zero, nil
	}
	d := codec.Parse(text)
	if d.IsZero() && strings.ContainsFunc(text, func(r rune) bool { return unicode.IsDigit(r) && r != '0' }) {
		return decimal.Zero, fmt.Errorf("invalid amount %q", text)
	}
	if d.IsZero() && !strings.ContainsFunc(text, unicode.IsDigit) {
		return decimal.Zero, fmt.Errorf("invalid amount %q", text)
	}
	return d, nil
}

func (e pieceEntry) document(codec amount.Codec) (port.Document, error) {
	date, err := piece.ParseDate(e.Date)
	if err != nil {
		return port.Document{}, err
	}
	doc := port.Document{
		Header: piece.Header{
			Journal:   strings.TrimSpace(e.Journal),
			Date:      date,
			Number:    strings.TrimSpace(e.Number),
			Reference: e.Reference,
		},
	}
	for i, le := range e.Lines {
		l := piece.NewLine()
		l.Account = strings.TrimSpace(le.Account)
		l.Label = le.Label
		l.Counterparty = strings.TrimSpace(le.Counterparty)
		l.Day = le.Day
		if l.Debit, err = parseAmount(codec, le.Debit); err != nil {
			return port.Document{}, fmt.Errorf("line %d: debit: %w", i+1, err)
		}
		if l.Credit, err = parseAmount(codec, le.Credit); err != nil {
			return port.Document{}, fmt.Errorf("line %d: credit: %w", i+1, err)
		}
		if l.DueDate, err = piece.ParseDate(le.Due); err != nil {
			return port.Document{}, fmt.Errorf("line %d: %w", i+1, err)
		}
		doc.Lines = append(doc.Lines, *l)
	}
	return doc, nil
}
