package grid

import (
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/Eudes8/Compta/piece"
)

func TestMove(t *testing.T) {
	tests := []struct {
		name     string
		rows     int
		from     Cursor
		dir      Direction
		want     Cursor
		wantGrew bool
	}{
		{
			name: "right within row",
			rows: 2,
			from: Cursor{Row: 0, Column: piece.ColumnAccount},
			dir:  Right,
			want: Cursor{Row: 0, Column: piece.ColumnLabel},
		},
		{
			name: "right wraps to next row",
			rows: 2,
			from: Cursor{Row: 0, Column: piece.ColumnCounterparty},
			dir:  Right,
			want: Cursor{Row: 1, Column: piece.ColumnAccount},
		},
		{
			name: "right at last cell stays",
			rows: 2,
			from: Cursor{Row: 1, Column: piece.ColumnCounterparty},
			dir:  Right,
			want: Cursor{Row: 1, Column: piece.ColumnCounterparty},
		},
		{
			name: "left does not wrap",
			rows: 2,
			from: Cursor{Row: 1, Column: piece.ColumnAccount},
			dir:  Left,
			want: Cursor{Row: 1, Column: piece.ColumnAccount},
		},
		{
			name: "left within row",
			rows: 1,
			from: Cursor{Row: 0, Column: piece.ColumnCredit},
			dir:  Left,
			want: Cursor{Row: 0, Column: piece.ColumnDebit},
		},
		{
			name: "up at first row is a no-op",
			rows: 3,
			from: Cursor{Row: 0, Column: piece.ColumnLabel},
			dir:  Up,
			want: Cursor{Row: 0, Column: piece.ColumnLabel},
		},
		{
			name: "up keeps column",
			rows: 3,
			from: Cursor{Row: 2, Column: piece.ColumnDebit},
			dir:  Up,
			want: Cursor{Row: 1, Column: piece.ColumnDebit},
		},
		{
			name: "down within grid",
			rows: 3,
			from: Cursor{Row: 0, Column: piece.ColumnDebit},
			dir:  Down,
			want: Cursor{Row: 1, Column: piece.ColumnDebit},
		},
		{
			name:     "down from last row grows",
			rows:     2,
			from:     Cursor{Row: 1, Column: piece.ColumnCredit},
			dir:      Down,
			want:     Cursor{Row: 2, Column: piece.ColumnCredit},
			wantGrew: true,
		},
		{
			name:     "enter from last row grows",
			rows:     1,
			from:     Cursor{Row: 0, Column: piece.ColumnLabel},
			dir:      Enter,
			want:     Cursor{Row: 1, Column: piece.ColumnLabel},
			wantGrew: true,
		},
		{
			name: "invalid row is a no-op",
			rows: 2,
			from: Cursor{Row: 5, Column: piece.ColumnLabel},
			dir:  Down,
			want: Cursor{Row: 5, Column: piece.ColumnLabel},
		},
		{
			name: "invalid column is a no-op",
			rows: 2,
			from: Cursor{Row: 0, Column: piece.Column(9)},
			dir:  Right,
			want: Cursor{Row: 0, Column: piece.Column(9)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := piece.New()
			for p.Len() < tt.rows {
				p.AddLine()
			}

			got, grew := Move(tt.from, tt.dir, p)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantGrew, grew)

			wantRows := tt.rows
			if tt.wantGrew {
				wantRows++
			}
			assert.Equal(t, wantRows, p.Len())
		})
	}
}

func TestMoveGrowsExactlyOnce(t *testing.T) {
	p := piece.New()
	c := Cursor{Row: 0, Column: piece.ColumnAccount}

	for i := 0; i < 3; i++ {
		c, _ = Move(c, Enter, p)
	}

	assert.Equal(t, 4, p.Len())
	assert.Equal(t, 3, c.Row)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, Cursor{Row: 1, Column: piece.ColumnLabel}, Clamp(Cursor{Row: 4, Column: piece.ColumnLabel}, 2))
	assert.Equal(t, Cursor{Row: 0, Column: piece.ColumnAccount}, Clamp(Cursor{Row: -1, Column: piece.Column(-3)}, 2))
}

func TestActionForKey(t *testing.T) {
	assert.Equal(t, KeyBinding{Action: ActionMove, Direction: Right, Help: "cellule suivante"}, ActionForKey("tab"))
	assert.Equal(t, ActionSave, ActionForKey("f6").Action)
	assert.Equal(t, ActionAutoBalance, ActionForKey("f8").Action)
	assert.Equal(t, Enter, ActionForKey("enter").Direction)
	assert.Equal(t, ActionNone, ActionForKey("x").Action)
}
