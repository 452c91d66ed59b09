package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/Eudes8/Compta/grid"
	"github.com/Eudes8/Compta/piece"
)

// editableLocked reports whether the piece may be changed right now.
// Edits are allowed while a save is in flight.
func (s *Session) editableLocked() error {
	switch {
	case s.state == Empty:
		return ErrNoPiece
	case s.state == Deleting:
		return ErrBusy
	case s.readOnly:
		return ErrReadOnly
	}
	return nil
}

func (s *Session) markModifiedLocked() {
	s.modified = true
	s.edits++
	if s.state == Saved {
		s.state = Editing
	}
}

// mutate runs fn on the piece if it is editable and marks it modified.
func (s *Session) mutate(fn func(p *piece.Piece) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return err
	}
	if err := fn(s.piece); err != nil {
		return err
	}
	s.markModifiedLocked()
	return nil
}

// SetCell writes keystroke text into the cell under the cursor. Amount cells
// clear the opposite side as soon as a positive value is typed.
func (s *Session) SetCell(text string) error {
	s.mu.Lock()
	id := s.lineIDLocked(s.cursor.Row)
	column := s.cursor.Column
	s.mu.Unlock()

	return s.SetField(id, column, text)
}

// SetField writes text into a cell addressed by line reference.
func (s *Session) SetField(id uuid.UUID, column piece.Column, text string) error {
	return s.mutate(func(p *piece.Piece) error {
		return p.SetField(id, column, text, s.cfg.Codec)
	})
}

// SetDay sets the day-of-month hint of a line.
func (s *Session) SetDay(id uuid.UUID, day int) error {
	return s.mutate(func(p *piece.Piece) error {
		return p.SetDay(id, day)
	})
}

// SetDate sets the piece date.
func (s *Session) SetDate(date time.Time) error {
	return s.mutate(func(p *piece.Piece) error {
		p.Header.Date = piece.Day(date)
		return nil
	})
}

// SetNumber sets the piece number.
func (s *Session) SetNumber(number string) error {
	return s.mutate(func(p *piece.Piece) error {
		p.Header.Number = number
		return nil
	})
}

// SetReference sets the external reference of the piece.
func (s *Session) SetReference(ref string) error {
	return s.mutate(func(p *piece.Piece) error {
		p.Header.Reference = ref
		return nil
	})
}

// AddLine appends a blank line.
func (s *Session) AddLine() error {
	return s.mutate(func(p *piece.Piece) error {
		p.AddLine()
		return nil
	})
}

// RemoveLine deletes the line under the cursor; the last line is cleared
// instead. The cursor stays on a valid row.
func (s *Session) RemoveLine() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return err
	}
	if err := s.piece.RemoveLine(s.lineIDLocked(s.cursor.Row)); err != nil {
		return err
	}
	s.cursor = grid.Clamp(s.cursor, s.piece.Len())
	s.markModifiedLocked()
	return nil
}

// ClearLines resets the grid to a single blank line.
func (s *Session) ClearLines() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return err
	}
	s.piece.ClearLines()
	s.cursor = grid.Cursor{}
	s.markModifiedLocked()
	return nil
}

// InverseAll swaps debit and credit on every line.
func (s *Session) InverseAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return err
	}
	s.piece.InverseAll()
	s.markModifiedLocked()
	s.publish(msgInverted)
	return nil
}

// SortByAccount orders lines by account code. The cursor follows its line.
func (s *Session) SortByAccount() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return err
	}
	current := s.lineIDLocked(s.cursor.Row)
	s.piece.SortByAccount()
	if row := s.piece.Index(current); row >= 0 {
		s.cursor.Row = row
	}
	s.markModifiedLocked()
	s.publish(msgSorted)
	return nil
}

// AutoBalance writes the residual of the other lines on the line under the cursor.
func (s *Session) AutoBalance() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return err
	}
	changed, err := s.piece.AutoBalance(s.lineIDLocked(s.cursor.Row))
	if err != nil {
		return err
	}
	if !changed {
		s.publish(msgAlreadyBal)
		return nil
	}
	s.markModifiedLocked()
	s.publish(msgBalanced)
	return nil
}

// Move applies a cursor move. Moving down from the last row appends a blank
// line, except on a read-only piece where the move is ignored.
func (s *Session) Move(dir grid.Direction) grid.Cursor {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Empty || s.state == Deleting {
		return s.cursor
	}
	atBottom := s.cursor.Row == s.piece.Len()-1
	if s.readOnly && atBottom && (dir == grid.Down || dir == grid.Enter) {
		return s.cursor
	}
	s.cursor, _ = grid.Move(s.cursor, dir, s.piece)
	return s.cursor
}

// SetCursor jumps to c when it addresses an existing cell.
func (s *Session) SetCursor(c grid.Cursor) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !c.Valid(s.piece.Len()) {
		return false
	}
	s.cursor = c
	return true
}
