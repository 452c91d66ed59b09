package piece

import (
	"strings"
)

// ErrorKind names a line rule. Rules are evaluated, and reported, in the
// order of the constants.
type ErrorKind int

const (
	MissingAccount ErrorKind = iota
	BothDebitAndCredit
	ZeroAmount
	MissingLabel
	MissingCounterparty
	InvalidDay
)

var errorKindNames = [...]string{
	MissingAccount:      "MissingAccount",
	BothDebitAndCredit:  "BothDebitAndCredit",
	ZeroAmount:          "ZeroAmount",
	MissingLabel:        "MissingLabel",
	MissingCounterparty: "MissingCounterparty",
	InvalidDay:          "InvalidDay",
}

var errorKindMessages = [...]string{
	MissingAccount:      "Le numéro de compte est obligatoire",
	BothDebitAndCredit:  "Une ligne ne peut pas avoir à la fois un débit et un crédit",
	ZeroAmount:          "Le montant doit être différent de zéro",
	MissingLabel:        "Le libellé est obligatoire",
	MissingCounterparty: "Un compte tiers est requis pour ce compte",
	InvalidDay:          "Le jour doit être compris entre 1 et 31",
}

var errorKindColumns = [...]Column{
	MissingAccount:      ColumnAccount,
	BothDebitAndCredit:  ColumnDebit,
	ZeroAmount:          ColumnDebit,
	MissingLabel:        ColumnLabel,
	MissingCounterparty: ColumnCounterparty,
	InvalidDay:          ColumnAccount,
}

func (k ErrorKind) String() string {
	if k < 0 || int(k) >= len(errorKindNames) {
		return "Unknown"
	}
	return errorKindNames[k]
}

// Message is the sentence shown to the user.
func (k ErrorKind) Message() string {
	if k < 0 || int(k) >= len(errorKindMessages) {
		return k.String()
	}
	return errorKindMessages[k]
}

// Column is the grid column the cursor should jump to for this error.
func (k ErrorKind) Column() Column {
	if k < 0 || int(k) >= len(errorKindColumns) {
		return ColumnAccount
	}
	return errorKindColumns[k]
}

// LineResult is the outcome of checking one line.
type LineResult struct {
	// Skipped is set for blank lines, which are never checked.
	Skipped bool
	Errors  []ErrorKind
}

// Valid reports whether the line passed every rule (or was skipped).
func (r LineResult) Valid() bool {
	return len(r.Errors) == 0
}

// ValidateLine checks one line against the line rules. A nil config uses
// NewConfig.
func ValidateLine(l *Line, cfg *Config) LineResult {
	if cfg == nil {
		cfg = NewConfig()
	}
	if l.IsBlank() {
		return LineResult{Skipped: true}
	}

	var kinds []ErrorKind
	account := strings.TrimSpace(l.Account)
	if account == "" {
		kinds = append(kinds, MissingAccount)
	}
	if l.Debit.IsPositive() && l.Credit.IsPositive() {
		kinds = append(kinds, BothDebitAndCredit)
	}
	if l.Debit.IsZero() && l.Credit.IsZero() {
		kinds = append(kinds, ZeroAmount)
	}
	if strings.TrimSpace(l.Label) == "" {
		kinds = append(kinds, MissingLabel)
	}
	if account != "" && cfg.requiresCounterparty(account) && strings.TrimSpace(l.Counterparty) == "" {
		kinds = append(kinds, MissingCounterparty)
	}
	if l.Day != 0 && (l.Day < 1 || l.Day > 31) {
		kinds = append(kinds, InvalidDay)
	}
	return LineResult{Errors: kinds}
}

// Validate runs every rule against the piece and returns a *ValidationErrors
// listing all violations, or nil:
//   - the header has a date and a number
//   - at least one line is not blank
//   - every non-blank line passes ValidateLine
//   - total debit and total credit differ by no more than the tolerance
func (p *Piece) Validate(cfg *Config) error {
	if cfg == nil {
		cfg = NewConfig()
	}

	var errs []error
	if p.Header.Date.IsZero() {
		errs = append(errs, &ValidationError{Field: "date", Reason: "La date de la pièce est obligatoire"})
	}
	if strings.TrimSpace(p.Header.Number) == "" {
		errs = append(errs, &ValidationError{Field: "number", Reason: "Le numéro de pièce est obligatoire"})
	}

	nonBlank := 0
	for i, l := range p.lines {
		result := ValidateLine(l, cfg)
		if result.Skipped {
			continue
		}
		nonBlank++
		for _, kind := range result.Errors {
			errs = append(errs, &LineError{Row: i + 1, LineID: l.ID, Kind: kind})
		}
	}
	if nonBlank == 0 {
		errs = append(errs, &ValidationError{Field: "lines", Reason: "La pièce doit contenir au moins une ligne"})
	}

	totals := p.Totals()
	if totals.Debit.Sub(totals.Credit).Abs().GreaterThan(cfg.Tolerance) {
		errs = append(errs, &UnbalancedError{Debit: totals.Debit, Credit: totals.Credit, Tolerance: cfg.Tolerance})
	}

	if len(errs) > 0 {
		return &ValidationErrors{Errors: errs}
	}
	return nil
}
