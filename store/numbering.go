package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Eudes8/Compta/port"
)

// SuggestNextNumber continues the journal's numbering for the current year:
// <journal><yy><sequence>, the sequence on four digits. The first piece of a
// year gets sequence 0001.
func (s *Store) SuggestNextNumber(ctx context.Context, journal string) (string, error) {
	info, err := s.journal(ctx, s.db, journal)
	if err != nil {
		return "", err
	}

	prefix := fmt.Sprintf("%s%02d", info.Code, s.now().Year()%100)
	rows, err := s.db.QueryContext(ctx, `
		SELECT number FROM documents WHERE journal = ? AND number LIKE ? ESCAPE '\'`,
		info.Code, escapeLike(prefix)+"%")
	if err != nil {
		return "", port.Transport("suggest number", err)
	}
	defer rows.Close()

	highest := 0
	for rows.Next() {
		var number string
		if err := rows.Scan(&number); err != nil {
			return "", port.Transport("suggest number", err)
		}
		if seq, ok := sequence(number, prefix); ok && seq > highest {
			highest = seq
		}
	}
	if err := rows.Err(); err != nil {
		return "", port.Transport("suggest number", err)
	}
	return fmt.Sprintf("%s%04d", prefix, highest+1), nil
}

// sequence extracts the numeric suffix of number after prefix.
func sequence(number, prefix string) (int, bool) {
	suffix := strings.TrimPrefix(number, prefix)
	if suffix == number || suffix == "" {
		return 0, false
	}
	n, err := strconv.Atoi(suffix)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
