package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Eudes8/Compta/port"
)

// Reference is the chart a dossier works with.
type Reference struct {
	Journals       []port.JournalInfo
	Accounts       []port.AccountMatch
	Counterparties []port.CounterpartyMatch
}

// ImportReference inserts or updates journals, accounts and counterparties in
// one transaction. Existing rows not listed are kept.
func (s *Store) ImportReference(ctx context.Context, ref Reference) error {
	err := s.Transaction(ctx, func(tx *sql.Tx) error {
		for _, j := range ref.Journals {
			if !j.Kind.Valid() {
				return fmt.Errorf("journal %s: unknown kind %q", j.Code, j.Kind)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO journals (code, label, kind) VALUES (?, ?, ?)
				ON CONFLICT(code) DO UPDATE SET label = excluded.label, kind = excluded.kind`,
				j.Code, j.Label, string(j.Kind)); err != nil {
				return fmt.Errorf("journal %s: %w", j.Code, err)
			}
		}
		for _, a := range ref.Accounts {
			accountType := a.Type
			if accountType == "" {
				accountType = port.AccountGeneral
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO accounts (code, label, type) VALUES (?, ?, ?)
				ON CONFLICT(code) DO UPDATE SET label = excluded.label, type = excluded.type`,
				a.Code, a.Label, string(accountType)); err != nil {
				return fmt.Errorf("account %s: %w", a.Code, err)
			}
		}
		for _, c := range ref.Counterparties {
			kind := c.Kind
			if kind == "" {
				kind = port.Other
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO counterparties (code, name, kind, account) VALUES (?, ?, ?, ?)
				ON CONFLICT(code) DO UPDATE SET name = excluded.name, kind = excluded.kind, account = excluded.account`,
				c.Code, c.Name, string(kind), c.Account); err != nil {
				return fmt.Errorf("counterparty %s: %w", c.Code, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("reference data imported",
		zap.Int("journals", len(ref.Journals)),
		zap.Int("accounts", len(ref.Accounts)),
		zap.Int("counterparties", len(ref.Counterparties)))
	return nil
}

// Journals lists every journal ordered by code.
func (s *Store) Journals(ctx context.Context) ([]port.JournalInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT code, label, kind FROM journals ORDER BY code`)
	if err != nil {
		return nil, port.Transport("journals", err)
	}
	defer rows.Close()

	var out []port.JournalInfo
	for rows.Next() {
		var j port.JournalInfo
		var kind string
		if err := rows.Scan(&j.Code, &j.Label, &kind); err != nil {
			return nil, port.Transport("journals", err)
		}
		j.Kind = port.JournalKind(kind)
		out = append(out, j)
	}
	return out, port.Transport("journals", rows.Err())
}

// FetchJournalInfo returns the journal with the number of its latest piece.
func (s *Store) FetchJournalInfo(ctx context.Context, code string) (port.JournalInfo, error) {
	info, err := s.journal(ctx, s.db, code)
	if err != nil {
		return port.JournalInfo{}, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT number FROM documents WHERE journal = ?
		ORDER BY date DESC, number DESC LIMIT 1`, code).Scan(&info.LastNumber)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return port.JournalInfo{}, port.Transport("journal info", err)
	}
	return info, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) journal(ctx context.Context, q queryer, code string) (port.JournalInfo, error) {
	var info port.JournalInfo
	var kind string
	err := q.QueryRowContext(ctx, `SELECT code, label, kind FROM journals WHERE code = ?`,
		strings.TrimSpace(code)).Scan(&info.Code, &info.Label, &kind)
	if errors.Is(err, sql.ErrNoRows) {
		return port.JournalInfo{}, &port.BusinessRejection{Op: "journal", Message: fmt.Sprintf("journal inconnu : %s", code)}
	}
	if err != nil {
		return port.JournalInfo{}, port.Transport("journal", err)
	}
	info.Kind = port.JournalKind(kind)
	return info, nil
}
