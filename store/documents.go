package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Eudes8/Compta/amount"
	"github.com/Eudes8/Compta/piece"
	"github.com/Eudes8/Compta/port"
	"github.com/Eudes8/Compta/telemetry"
)

const documentColumns = `id, number, journal, date, reference`

type documentRow struct {
	id     int64
	header piece.Header
}

func scanDocument(row interface{ Scan(...any) error }) (documentRow, error) {
	var d documentRow
	var date string
	if err := row.Scan(&d.id, &d.header.Number, &d.header.Journal, &date, &d.header.Reference); err != nil {
		return documentRow{}, err
	}
	parsed, err := parseDate(date)
	if err != nil {
		return documentRow{}, fmt.Errorf("document %s: bad date %q: %w", d.header.Number, date, err)
	}
	d.header.Date = parsed
	return d, nil
}

func (s *Store) lines(ctx context.Context, documentID int64) ([]piece.Line, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ref, day, account, counterparty, label, due_date, debit, credit
		FROM lines WHERE document_id = ? ORDER BY position`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []piece.Line
	for rows.Next() {
		var l piece.Line
		var ref, due, debit, credit string
		if err := rows.Scan(&ref, &l.Day, &l.Account, &l.Counterparty, &l.Label, &due, &debit, &credit); err != nil {
			return nil, err
		}
		if l.ID, err = uuid.Parse(ref); err != nil {
			l.ID = uuid.New()
		}
		if l.DueDate, err = parseDate(due); err != nil {
			return nil, fmt.Errorf("bad due date %q: %w", due, err)
		}
		if l.Debit, err = decimal.NewFromString(debit); err != nil {
			return nil, fmt.Errorf("bad debit %q: %w", debit, err)
		}
		if l.Credit, err = decimal.NewFromString(credit); err != nil {
			return nil, fmt.Errorf("bad credit %q: %w", credit, err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) document(ctx context.Context, row *sql.Row) (*port.Document, error) {
	d, err := scanDocument(row)
	if err != nil {
		return nil, err
	}
	lines, err := s.lines(ctx, d.id)
	if err != nil {
		return nil, err
	}
	return &port.Document{Header: d.header, Lines: lines}, nil
}

// FetchDocument loads a saved piece by number.
func (s *Store) FetchDocument(ctx context.Context, number string) (*port.Document, error) {
	doc, err := s.document(ctx, s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE number = ?`, strings.TrimSpace(number)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, port.Transport("fetch document", err)
	}
	return doc, nil
}

// FetchAdjacentDocument returns the piece before or after number in its
// journal, ordered by date then number.
func (s *Store) FetchAdjacentDocument(ctx context.Context, journal, number string, dir port.Direction) (*port.Document, error) {
	var current documentRow
	found := false
	if strings.TrimSpace(number) != "" {
		var err error
		current, err = scanDocument(s.db.QueryRowContext(ctx,
			`SELECT `+documentColumns+` FROM documents WHERE number = ? AND journal = ?`, number, journal))
		switch {
		case err == nil:
			found = true
		case !errors.Is(err, sql.ErrNoRows):
			return nil, port.Transport("adjacent document", err)
		}
	}

	var row *sql.Row
	switch {
	case !found && dir == port.Next:
		return nil, nil
	case !found:
		row = s.db.QueryRowContext(ctx, `
			SELECT `+documentColumns+` FROM documents WHERE journal = ?
			ORDER BY date DESC, number DESC LIMIT 1`, journal)
	case dir == port.Previous:
		date := formatDate(current.header.Date)
		row = s.db.QueryRowContext(ctx, `
			SELECT `+documentColumns+` FROM documents
			WHERE journal = ? AND (date < ? OR (date = ? AND number < ?))
			ORDER BY date DESC, number DESC LIMIT 1`, journal, date, date, number)
	default:
		date := formatDate(current.header.Date)
		row = s.db.QueryRowContext(ctx, `
			SELECT `+documentColumns+` FROM documents
			WHERE journal = ? AND (date > ? OR (date = ? AND number > ?))
			ORDER BY date ASC, number ASC LIMIT 1`, journal, date, date, number)
	}

	doc, err := s.document(ctx, row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, port.Transport("adjacent document", err)
	}
	return doc, nil
}

func rejected(format string, args ...any) port.SaveResult {
	return port.SaveResult{Success: false, Message: fmt.Sprintf(format, args...)}
}

// SaveDocument stores a piece, replacing the piece with the same number when
// it belongs to the same journal. Pieces are checked again before writing:
// unbalanced pieces, unknown journals, accounts or counterparties are refused
// with Success false.
func (s *Store) SaveDocument(ctx context.Context, header piece.Header, lines []piece.Line) (port.SaveResult, error) {
	timer := telemetry.FromContext(ctx).Start("store.save_document " + header.Number)
	defer timer.End()

	header.Number = strings.TrimSpace(header.Number)
	p := piece.New()
	p.Load(header, lines)
	if err := p.Validate(s.cfg); err != nil {
		return rejected("%s", validationMessage(err)), nil
	}
	lines = p.Snapshot()

	var result port.SaveResult
	err := s.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := s.journal(ctx, tx, header.Journal); err != nil {
			var rejection *port.BusinessRejection
			if errors.As(err, &rejection) {
				result = rejected("%s", rejection.Message)
				return errRejected
			}
			return err
		}
		if msg, err := checkReferences(ctx, tx, lines); err != nil || msg != "" {
			if err == nil {
				result = rejected("%s", msg)
				return errRejected
			}
			return err
		}

		var id int64
		var journal string
		err := tx.QueryRowContext(ctx, `SELECT id, journal FROM documents WHERE number = ?`, header.Number).Scan(&id, &journal)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			res, err := tx.ExecContext(ctx, `
				INSERT INTO documents (number, journal, date, reference) VALUES (?, ?, ?, ?)`,
				header.Number, header.Journal, formatDate(header.Date), header.Reference)
			if err != nil {
				return err
			}
			if id, err = res.LastInsertId(); err != nil {
				return err
			}
		case err != nil:
			return err
		case journal != header.Journal:
			result = rejected("le numéro %s est déjà utilisé dans le journal %s", header.Number, journal)
			return errRejected
		default:
			if _, err := tx.ExecContext(ctx, `
				UPDATE documents SET date = ?, reference = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
				formatDate(header.Date), header.Reference, id); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM lines WHERE document_id = ?`, id); err != nil {
				return err
			}
		}

		for i, l := range lines {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO lines (document_id, position, ref, day, account, counterparty, label, due_date, debit, credit)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				id, i, l.ID.String(), l.Day, l.Account, l.Counterparty, l.Label,
				formatDate(l.DueDate), l.Debit.StringFixed(amount.Places), l.Credit.StringFixed(amount.Places)); err != nil {
				return err
			}
		}
		result = port.SaveResult{Success: true, SavedNumber: header.Number, Message: "Pièce enregistrée"}
		return nil
	})
	if errors.Is(err, errRejected) {
		s.logger.Warn("save rejected", zap.String("number", header.Number), zap.String("reason", result.Message))
		return result, nil
	}
	if err != nil {
		return port.SaveResult{}, port.Transport("save document", err)
	}

	s.logger.Info("document saved", zap.String("number", header.Number), zap.Int("lines", len(lines)))
	return result, nil
}

var errRejected = errors.New("rejected")

// validationMessage lists every violation on one line.
func validationMessage(err error) string {
	var verrs *piece.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs.Errors))
	for _, e := range verrs.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// checkReferences returns a rejection message for the first unknown account
// or counterparty.
func checkReferences(ctx context.Context, tx *sql.Tx, lines []piece.Line) (string, error) {
	for _, l := range lines {
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts WHERE code = ?`, l.Account).Scan(&n); err != nil {
			return "", err
		}
		if n == 0 {
			return fmt.Sprintf("compte inconnu : %s", l.Account), nil
		}
		if l.Counterparty == "" {
			continue
		}
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM counterparties WHERE code = ?`, l.Counterparty).Scan(&n); err != nil {
			return "", err
		}
		if n == 0 {
			return fmt.Sprintf("tiers inconnu : %s", l.Counterparty), nil
		}
	}
	return "", nil
}

// DeleteDocument removes a piece and its lines.
func (s *Store) DeleteDocument(ctx context.Context, number string) (port.DeleteResult, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE number = ?`, strings.TrimSpace(number))
	if err != nil {
		return port.DeleteResult{}, port.Transport("delete document", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return port.DeleteResult{}, port.Transport("delete document", err)
	}
	if n == 0 {
		return port.DeleteResult{Success: false, Message: fmt.Sprintf("pièce introuvable : %s", number)}, nil
	}

	s.logger.Info("document deleted", zap.String("number", number))
	return port.DeleteResult{Success: true, Message: "Pièce supprimée"}, nil
}

// SearchLimit caps the number of documents SearchDocuments returns.
const SearchLimit = 50

// SearchDocuments lists pieces matching every non-zero criterion, most recent
// first. Amount matches any line debit or credit; Total is the debit total.
func (s *Store) SearchDocuments(ctx context.Context, c port.SearchCriteria) ([]port.DocumentSummary, error) {
	var where []string
	var args []any
	if c.Journal != "" {
		where = append(where, "d.journal = ?")
		args = append(args, c.Journal)
	}
	if n := strings.TrimSpace(c.Number); n != "" {
		where = append(where, `d.number LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(n)+"%")
	}
	if !c.From.IsZero() {
		where = append(where, "d.date >= ?")
		args = append(args, formatDate(c.From))
	}
	if !c.To.IsZero() {
		where = append(where, "d.date <= ?")
		args = append(args, formatDate(c.To))
	}
	if c.Amount.Valid {
		value := c.Amount.Decimal.StringFixed(amount.Places)
		where = append(where, "EXISTS (SELECT 1 FROM lines m WHERE m.document_id = d.id AND (m.debit = ? OR m.credit = ?))")
		args = append(args, value, value)
	}

	query := `SELECT d.id, d.number, d.journal, d.date, d.reference FROM documents d`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY d.date DESC, d.number DESC LIMIT ?"
	args = append(args, SearchLimit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, port.Transport("search documents", err)
	}
	var found []documentRow
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			rows.Close()
			return nil, port.Transport("search documents", err)
		}
		found = append(found, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, port.Transport("search documents", err)
	}

	out := make([]port.DocumentSummary, 0, len(found))
	for _, d := range found {
		lines, err := s.lines(ctx, d.id)
		if err != nil {
			return nil, port.Transport("search documents", err)
		}
		total := decimal.Zero
		for _, l := range lines {
			total = total.Add(l.Debit)
		}
		out = append(out, port.DocumentSummary{
			Number:    d.header.Number,
			Journal:   d.header.Journal,
			Date:      d.header.Date,
			Reference: d.header.Reference,
			Total:     total,
		})
	}
	return out, nil
}
