// Package port defines the persistence boundary of the entry engine: every
// call the editor makes to a backend, and the error kinds those calls return.
//
// Implementations live elsewhere: store talks to SQLite, web.Client talks to a
// remote server over HTTP.
package port

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Eudes8/Compta/piece"
)

// JournalKind classifies journals. It drives numbering and lookup filters.
type JournalKind string

const (
	Purchases JournalKind = "AC"
	Sales     JournalKind = "VE"
	Bank      JournalKind = "BQ"
	Cash      JournalKind = "CA"
	Misc      JournalKind = "OD"
	Opening   JournalKind = "AN"
)

// Valid reports whether k is a known journal kind.
func (k JournalKind) Valid() bool {
	switch k {
	case Purchases, Sales, Bank, Cash, Misc, Opening:
		return true
	}
	return false
}

// CounterpartyKind classifies third parties.
type CounterpartyKind string

const (
	Customer   CounterpartyKind = "CL"
	Supplier   CounterpartyKind = "FO"
	Employee   CounterpartyKind = "SA"
	State      CounterpartyKind = "ET"
	SocialBody CounterpartyKind = "OS"
	Sundry     CounterpartyKind = "DI"
	Other      CounterpartyKind = "AU"
)

// AccountType is the role of a ledger account.
type AccountType string

const (
	AccountGeneral    AccountType = "GENERAL"
	AccountCustomer   AccountType = "TIERS_CLIENT"
	AccountSupplier   AccountType = "TIERS_FOURNISSEUR"
	AccountEmployee   AccountType = "TIERS_SALARIE"
	AccountTreasury   AccountType = "TRESORERIE"
	AccountCharge     AccountType = "CHARGE"
	AccountProduct    AccountType = "PRODUIT"
	AccountTax        AccountType = "TAXE"
	AccountCapital    AccountType = "CAPITAUX"
	AccountFixedAsset AccountType = "IMMOBILISATION"
)

// Direction selects a neighbouring document.
type Direction string

const (
	Previous Direction = "previous"
	Next     Direction = "next"
)

// JournalInfo describes a journal as shown in the editor header.
type JournalInfo struct {
	Code       string
	Label      string
	Kind       JournalKind
	LastNumber string
}

// Document is a saved piece.
type Document struct {
	Header piece.Header
	Lines  []piece.Line
}

// AccountMatch is one account lookup result.
type AccountMatch struct {
	Code  string
	Label string
	Type  AccountType
}

// CounterpartyMatch is one counterparty lookup result.
type CounterpartyMatch struct {
	Code    string
	Name    string
	Kind    CounterpartyKind
	Account string // collective account, e.g. 401000
}

// SaveResult is the backend verdict on a save.
type SaveResult struct {
	Success     bool
	SavedNumber string
	Message     string
}

// DeleteResult is the backend verdict on a delete.
type DeleteResult struct {
	Success bool
	Message string
}

// SearchCriteria filters documents. Zero fields do not filter.
type SearchCriteria struct {
	Journal string
	Number  string // substring
	From    time.Time
	To      time.Time
	Amount  decimal.NullDecimal // exact total debit
}

// DocumentSummary is one search result.
type DocumentSummary struct {
	Number    string
	Journal   string
	Date      time.Time
	Reference string
	Total     decimal.Decimal
}

// Port is every call the editor makes to its backend. Implementations must be
// safe for concurrent use; lookups run on their own goroutines.
type Port interface {
	SuggestNextNumber(ctx context.Context, journal string) (string, error)
	FetchJournalInfo(ctx context.Context, journal string) (JournalInfo, error)

	// FetchDocument returns ErrNotFound when number does not exist.
	FetchDocument(ctx context.Context, number string) (*Document, error)

	// FetchAdjacentDocument returns the neighbour of number within journal,
	// ordered by date then number. An empty or unknown number has no next
	// neighbour and the most recent piece as previous one. It returns nil and
	// no error when there is no document in that direction.
	FetchAdjacentDocument(ctx context.Context, journal, number string, dir Direction) (*Document, error)

	SearchAccounts(ctx context.Context, query string, kind JournalKind, limit int) ([]AccountMatch, error)
	SearchCounterparties(ctx context.Context, query string, kind JournalKind, limit int) ([]CounterpartyMatch, error)

	SaveDocument(ctx context.Context, header piece.Header, lines []piece.Line) (SaveResult, error)
	DeleteDocument(ctx context.Context, number string) (DeleteResult, error)
	SearchDocuments(ctx context.Context, criteria SearchCriteria) ([]DocumentSummary, error)
}
