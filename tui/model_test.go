package tui

import (
	"context"
	stdErrors "errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/Eudes8/Compta/grid"
	"github.com/Eudes8/Compta/lookup"
	"github.com/Eudes8/Compta/piece"
	"github.com/Eudes8/Compta/port"
	"github.com/Eudes8/Compta/session"
	"github.com/Eudes8/Compta/store"
)

var reference = store.Reference{
	Journals: []port.JournalInfo{{Code: "AC", Label: "Achats", Kind: port.Purchases}},
	Accounts: []port.AccountMatch{
		{Code: "401000", Label: "Fournisseurs", Type: port.AccountSupplier},
		{Code: "601000", Label: "Achats de marchandises", Type: port.AccountCharge},
		{Code: "606100", Label: "Fournitures non stockables", Type: port.AccountCharge},
	},
	Counterparties: []port.CounterpartyMatch{
		{Code: "FO001", Name: "Dupont Fournitures", Kind: port.Supplier, Account: "401000"},
	},
}

func setup(t *testing.T) (*Model, *store.Store) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	clock := func() time.Time { return time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC) }
	st, err := store.Open(filepath.Join(t.TempDir(), "compta.db"), store.WithClock(clock))
	assert.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	assert.NoError(t, st.ImportReference(ctx, reference))

	sess := session.New(st, session.WithClock(clock))
	assert.NoError(t, sess.ChangeJournal(ctx, "AC"))

	m := New(ctx, sess, st, WithLookupOptions(lookup.WithDebounce(0)))
	return m, st
}

func runes(text string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)}
}

func key(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

// press feeds msgs to the model and returns the command of the last one.
func press(m *Model, msgs ...tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	for _, msg := range msgs {
		_, cmd = m.Update(msg)
	}
	return cmd
}

// settle runs cmd and feeds its message back until no command is left.
func settle(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	for i := 0; cmd != nil && i < 10; i++ {
		msg := cmd()
		if msg == nil {
			return
		}
		_, cmd = m.Update(msg)
	}
}

// fillBalanced types a two-line purchase of 100.
func fillBalanced(m *Model) {
	press(m,
		runes("601000"), key(tea.KeyTab),
		runes("Achat"), key(tea.KeyTab),
		runes("100"), key(tea.KeyEnter),
		key(tea.KeyLeft), key(tea.KeyLeft),
		runes("401000"), key(tea.KeyTab),
		runes("Achat"), key(tea.KeyTab), key(tea.KeyTab),
		runes("100"),
	)
}

func TestTypingFillsCells(t *testing.T) {
	m, _ := setup(t)
	fillBalanced(m)

	view := m.session.Snapshot()
	assert.Equal(t, 2, len(view.Lines))
	assert.Equal(t, "601000", view.Lines[0].Account)
	assert.Equal(t, "Achat", view.Lines[0].Label)
	assert.True(t, view.Lines[0].Debit.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "401000", view.Lines[1].Account)
	assert.True(t, view.Lines[1].Credit.Equal(decimal.NewFromInt(100)))
	assert.True(t, view.Modified)
	assert.Equal(t, grid.Cursor{Row: 1, Column: piece.ColumnCredit}, view.Cursor)
}

func TestMoveReseedsInput(t *testing.T) {
	m, _ := setup(t)
	press(m, runes("601000"), key(tea.KeyTab))
	assert.Equal(t, "", m.input.Value())

	press(m, key(tea.KeyShiftTab))
	assert.Equal(t, "601000", m.input.Value())
}

func TestLookupPick(t *testing.T) {
	m, _ := setup(t)
	press(m, runes("60"))

	msg := m.waitForLookup()()
	_, ok := msg.(lookupMsg)
	assert.True(t, ok)
	press(m, msg)

	list, open := m.lookups.List()
	assert.True(t, open)
	assert.Equal(t, 2, len(list.Matches))
	assert.Contains(t, m.View(), "Fournitures non stockables")

	press(m, key(tea.KeyDown), key(tea.KeyEnter))
	_, open = m.lookups.List()
	assert.False(t, open)

	line, _ := m.session.CurrentLine()
	assert.Equal(t, "606100", line.Account)
	assert.Equal(t, "606100", m.input.Value())
}

func TestLookupCounterpartyFillsAccount(t *testing.T) {
	m, _ := setup(t)
	for i := 0; i < 5; i++ {
		press(m, key(tea.KeyTab))
	}
	assert.Equal(t, piece.ColumnCounterparty, m.session.Cursor().Column)

	press(m, runes("dupont"))
	press(m, m.waitForLookup()())
	press(m, key(tea.KeyEnter))

	line, _ := m.session.CurrentLine()
	assert.Equal(t, "FO001", line.Counterparty)
	assert.Equal(t, "401000", line.Account)
}

func TestLookupPickReportsRefusal(t *testing.T) {
	m, st := setup(t)
	ctx := context.Background()
	_, err := st.SaveDocument(ctx,
		piece.Header{Journal: "AC", Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Number: "AC240001"},
		[]piece.Line{
			{Account: "601000", Label: "Achat", Debit: decimal.NewFromInt(10)},
			{Account: "401000", Label: "Achat", Credit: decimal.NewFromInt(10), Counterparty: "FO001"},
		})
	assert.NoError(t, err)

	for i := 0; i < 5; i++ {
		press(m, key(tea.KeyTab))
	}
	press(m, runes("dupont"))
	press(m, m.waitForLookup()())
	_, open := m.lookups.List()
	assert.True(t, open)

	// The piece becomes read-only while the list is open.
	assert.NoError(t, m.session.View(ctx, "AC240001", session.DiscardChanges()))
	press(m, key(tea.KeyEnter))

	assert.Equal(t, session.ErrReadOnly.Error(), m.status)
	line, _ := m.session.CurrentLine()
	assert.Equal(t, "", line.Counterparty)
}

func TestSaveFlow(t *testing.T) {
	m, st := setup(t)
	fillBalanced(m)

	cmd := press(m, key(tea.KeyF6))
	assert.NotZero(t, cmd)
	assert.Equal(t, session.Validating, m.session.State())
	settle(t, m, cmd)

	view := m.session.Snapshot()
	assert.Equal(t, session.Saved, view.State)
	assert.False(t, view.Modified)
	assert.Equal(t, "AC240002", view.Header.Number)
	assert.Equal(t, 1, len(view.Lines))

	doc, err := st.FetchDocument(context.Background(), "AC240001")
	assert.NoError(t, err)
	assert.Equal(t, 2, len(doc.Lines))
}

func TestSaveShowsValidationErrors(t *testing.T) {
	m, _ := setup(t)
	press(m, runes("601000"))

	cmd := press(m, key(tea.KeyF6))
	assert.Zero(t, cmd)
	assert.True(t, len(m.Errors()) > 0)
	assert.Equal(t, piece.ColumnDebit, m.session.Cursor().Column)
	assert.Contains(t, m.View(), "Le montant doit être différent de zéro")

	press(m, key(tea.KeyEsc))
	assert.Zero(t, m.Errors())
}

func TestDiscardConfirmation(t *testing.T) {
	m, _ := setup(t)
	press(m, runes("601000"))

	cmd := press(m, key(tea.KeyCtrlN))
	assert.Zero(t, cmd)
	assert.Contains(t, m.View(), "Abandonner les modifications")

	press(m, runes("n"))
	assert.True(t, m.session.Modified())
	assert.Equal(t, "", m.question)

	press(m, key(tea.KeyCtrlN))
	settle(t, m, press(m, runes("o")))

	view := m.session.Snapshot()
	assert.False(t, view.Modified)
	assert.Equal(t, "", view.Lines[0].Account)
	assert.Equal(t, "AC240001", view.Header.Number)
}

func TestDeleteConfirmation(t *testing.T) {
	m, st := setup(t)
	fillBalanced(m)
	settle(t, m, press(m, key(tea.KeyF6)))

	assert.NoError(t, m.session.View(context.Background(), "AC240001"))
	press(m, key(tea.KeyCtrlD))
	assert.Equal(t, session.Deleting, m.session.State())
	assert.Contains(t, m.View(), "Supprimer la pièce AC240001")

	settle(t, m, press(m, runes("o")))

	_, err := st.FetchDocument(context.Background(), "AC240001")
	assert.True(t, stdErrors.Is(err, port.ErrNotFound))
	assert.Equal(t, session.Editing, m.session.State())
}

func TestNavigateAdjacent(t *testing.T) {
	m, _ := setup(t)
	fillBalanced(m)
	settle(t, m, press(m, key(tea.KeyF6)))

	settle(t, m, press(m, key(tea.KeyPgUp)))
	view := m.session.Snapshot()
	assert.True(t, view.ReadOnly)
	assert.Equal(t, "AC240001", view.Header.Number)
	assert.Contains(t, m.View(), "consultation")

	press(m, runes("x"))
	line, _ := m.session.CurrentLine()
	assert.Equal(t, "601000", line.Account)
}

func TestQuit(t *testing.T) {
	m, _ := setup(t)

	cmd := press(m, key(tea.KeyCtrlC))
	assert.NotZero(t, cmd)
	assert.Equal(t, tea.Msg(tea.QuitMsg{}), cmd())
	assert.Equal(t, "", m.View())
}

func TestQuitAsksWhenModified(t *testing.T) {
	m, _ := setup(t)
	press(m, runes("6"))

	assert.Zero(t, press(m, key(tea.KeyCtrlC)))
	cmd := press(m, runes("o"))
	assert.Equal(t, tea.Msg(tea.QuitMsg{}), cmd())
}

func TestStatusMessages(t *testing.T) {
	m, _ := setup(t)
	msg := m.waitForStatus()()
	assert.Equal(t, tea.Msg(statusMsg("Nouvelle pièce")), msg)

	press(m, msg)
	assert.Contains(t, m.View(), "Nouvelle pièce")
}

func TestViewLayout(t *testing.T) {
	m, _ := setup(t)
	fillBalanced(m)

	out := m.View()
	for _, want := range []string{"Journal AC Achats", "AC240001", "14/03/2024", "Compte", "Libellé", "Solde 0,00", "f6 enregistrer"} {
		assert.True(t, strings.Contains(out, want), "missing %q in view", want)
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		text  string
		width int
		right bool
		want  string
	}{
		{"abc", 5, false, "abc  "},
		{"abc", 5, true, "  abc"},
		{"Opérations diverses", 8, false, "Opérati…"},
		{"", 3, false, "   "},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, fit(tt.text, tt.width, tt.right))
		})
	}
}
