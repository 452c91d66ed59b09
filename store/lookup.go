package store

import (
	"context"
	"strings"

	"github.com/Eudes8/Compta/port"
)

// DefaultLimit applies when a lookup asks for no limit.
const DefaultLimit = 50

// accountFilter restricts account suggestions to what a journal of that kind
// usually books.
func accountFilter(kind port.JournalKind) (string, []any) {
	switch kind {
	case port.Purchases:
		return `(code LIKE '401%' OR code LIKE '60%' OR code LIKE '44566%')`, nil
	case port.Sales:
		return `(code LIKE '411%' OR code LIKE '70%' OR code LIKE '44571%')`, nil
	case port.Bank, port.Cash:
		return `type <> ?`, []any{string(port.AccountTreasury)}
	default:
		return "", nil
	}
}

func counterpartyFilter(kind port.JournalKind) (string, []any) {
	switch kind {
	case port.Purchases:
		return `kind = ?`, []any{string(port.Supplier)}
	case port.Sales:
		return `kind = ?`, []any{string(port.Customer)}
	default:
		return "", nil
	}
}

// escapeLike makes query safe inside a LIKE pattern using '\' as escape.
func escapeLike(query string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(query)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}

// SearchAccounts matches query against account codes (prefix) and labels
// (substring, case-insensitive), filtered by journal kind, ordered by code.
func (s *Store) SearchAccounts(ctx context.Context, query string, kind port.JournalKind, limit int) ([]port.AccountMatch, error) {
	q := escapeLike(strings.TrimSpace(query))
	where := `(code LIKE ? ESCAPE '\' OR label LIKE ? ESCAPE '\')`
	args := []any{q + "%", "%" + q + "%"}
	if filter, filterArgs := accountFilter(kind); filter != "" {
		where += " AND " + filter
		args = append(args, filterArgs...)
	}
	args = append(args, normalizeLimit(limit))

	rows, err := s.db.QueryContext(ctx, `SELECT code, label, type FROM accounts WHERE `+where+` ORDER BY code LIMIT ?`, args...)
	if err != nil {
		return nil, port.Transport("search accounts", err)
	}
	defer rows.Close()

	var out []port.AccountMatch
	for rows.Next() {
		var m port.AccountMatch
		var accountType string
		if err := rows.Scan(&m.Code, &m.Label, &accountType); err != nil {
			return nil, port.Transport("search accounts", err)
		}
		m.Type = port.AccountType(accountType)
		out = append(out, m)
	}
	return out, port.Transport("search accounts", rows.Err())
}

// SearchCounterparties matches query against counterparty codes and names,
// keeping suppliers for purchases and customers for sales.
func (s *Store) SearchCounterparties(ctx context.Context, query string, kind port.JournalKind, limit int) ([]port.CounterpartyMatch, error) {
	q := escapeLike(strings.TrimSpace(query))
	where := `(code LIKE ? ESCAPE '\' OR name LIKE ? ESCAPE '\')`
	args := []any{q + "%", "%" + q + "%"}
	if filter, filterArgs := counterpartyFilter(kind); filter != "" {
		where += " AND " + filter
		args = append(args, filterArgs...)
	}
	args = append(args, normalizeLimit(limit))

	rows, err := s.db.QueryContext(ctx, `SELECT code, name, kind, account FROM counterparties WHERE `+where+` ORDER BY code LIMIT ?`, args...)
	if err != nil {
		return nil, port.Transport("search counterparties", err)
	}
	defer rows.Close()

	var out []port.CounterpartyMatch
	for rows.Next() {
		var m port.CounterpartyMatch
		var partyKind string
		if err := rows.Scan(&m.Code, &m.Name, &partyKind, &m.Account); err != nil {
			return nil, port.Transport("search counterparties", err)
		}
		m.Kind = port.CounterpartyKind(partyKind)
		out = append(out, m)
	}
	return out, port.Transport("search counterparties", rows.Err())
}
