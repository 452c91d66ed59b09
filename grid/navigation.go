// Package grid moves the entry cursor across the cells of a piece.
//
// Moving right past the last column wraps to the first column of the next
// row; moving left never wraps. Moving down (or pressing Enter) from the last
// row appends a blank line so the user can keep typing. Moves that would leave
// the grid are ignored.
package grid

import (
	"github.com/Eudes8/Compta/piece"
)

// Cursor addresses one cell.
type Cursor struct {
	Row    int
	Column piece.Column
}

// Direction is a cursor move.
type Direction int

const (
	Left Direction = iota
	Right
	Up
	Down
	Enter
)

func (d Direction) String() string {
	switch d {
	case Left:
		return "left"
	case Right:
		return "right"
	case Up:
		return "up"
	case Down:
		return "down"
	case Enter:
		return "enter"
	default:
		return "unknown"
	}
}

// Grid is the part of a piece navigation needs: its height and a way to grow.
type Grid interface {
	Len() int
	AddLine() *piece.Line
}

var (
	firstColumn = piece.Columns[0]
	lastColumn  = piece.Columns[len(piece.Columns)-1]
)

// Valid reports whether c addresses an existing cell of a grid with rows lines.
func (c Cursor) Valid(rows int) bool {
	return c.Row >= 0 && c.Row < rows && c.Column.Valid()
}

// Move returns the cursor after applying d, and whether a line was appended.
// An invalid starting cursor or a move off the grid leaves the cursor where it is.
func Move(c Cursor, d Direction, g Grid) (Cursor, bool) {
	rows := g.Len()
	if !c.Valid(rows) {
		return c, false
	}

	switch d {
	case Left:
		if c.Column > firstColumn {
			c.Column--
		}
		return c, false

	case Right:
		if c.Column < lastColumn {
			c.Column++
			return c, false
		}
		if c.Row+1 < rows {
			return Cursor{Row: c.Row + 1, Column: firstColumn}, false
		}
		return c, false

	case Up:
		if c.Row > 0 {
			c.Row--
		}
		return c, false

	case Down, Enter:
		if c.Row+1 < rows {
			c.Row++
			return c, false
		}
		g.AddLine()
		c.Row++
		return c, true
	}

	return c, false
}

// Clamp brings c back inside a grid of rows lines, for use after lines were
// removed underneath the cursor.
func Clamp(c Cursor, rows int) Cursor {
	if rows <= 0 {
		return Cursor{Column: firstColumn}
	}
	if c.Row >= rows {
		c.Row = rows - 1
	}
	if c.Row < 0 {
		c.Row = 0
	}
	if !c.Column.Valid() {
		c.Column = firstColumn
	}
	return c
}
