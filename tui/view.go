package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/Eudes8/Compta/errors"
	"github.com/Eudes8/Compta/grid"
	"github.com/Eudes8/Compta/lookup"
	"github.com/Eudes8/Compta/piece"
	"github.com/Eudes8/Compta/session"
)

var (
	colorAccent = lipgloss.Color("#7D56F4")
	colorMuted  = lipgloss.Color("241")
	colorDanger = lipgloss.Color("#E06C75")
	colorOK     = lipgloss.Color("#98C379")

	titleStyle    = lipgloss.NewStyle().Bold(true)
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorMuted)
	cursorStyle   = lipgloss.NewStyle().Reverse(true)
	rowStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	mutedStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	errorStyle    = lipgloss.NewStyle().Foreground(colorDanger)
	okStyle       = lipgloss.NewStyle().Foreground(colorOK)
	badgeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(colorAccent).Padding(0, 1)
	questionStyle = lipgloss.NewStyle().Bold(true).Foreground(colorDanger)
	listStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorMuted).Padding(0, 1)
)

type column struct {
	title string
	width int
	right bool
}

var columns = map[piece.Column]column{
	piece.ColumnAccount:      {title: "Compte", width: 10},
	piece.ColumnLabel:        {title: "Libellé", width: 28},
	piece.ColumnDebit:        {title: "Débit", width: 14, right: true},
	piece.ColumnCredit:       {title: "Crédit", width: 14, right: true},
	piece.ColumnDueDate:      {title: "Échéance", width: 10},
	piece.ColumnCounterparty: {title: "Tiers", width: 8},
}

// maxSuggestions is the number of lookup matches shown at once.
const maxSuggestions = 8

// fit pads or truncates text to exactly width display cells.
func fit(text string, width int, right bool) string {
	text = runewidth.Truncate(text, width, "…")
	if right {
		return runewidth.FillLeft(text, width)
	}
	return runewidth.FillRight(text, width)
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	view := m.session.Snapshot()
	cfg := m.session.Config()

	var b strings.Builder
	b.WriteString(m.renderHeader(view))
	b.WriteString("\n\n")

	cells := make([]string, 0, len(piece.Columns))
	for _, c := range piece.Columns {
		col := columns[c]
		cells = append(cells, fit(col.title, col.width, col.right))
	}
	b.WriteString(headerStyle.Render(strings.Join(cells, " │ ")))
	b.WriteByte('\n')

	for row, line := range view.Lines {
		cells = cells[:0]
		for _, c := range piece.Columns {
			col := columns[c]
			text := formatCell(line, c, cfg)
			current := view.Cursor == grid.Cursor{Row: row, Column: c}
			if current && !view.ReadOnly {
				text = m.input.Value()
			}
			text = fit(text, col.width, col.right)
			if current {
				text = cursorStyle.Render(text)
			}
			cells = append(cells, text)
		}
		b.WriteString(rowStyle.Render(strings.Join(cells, " │ ")))
		b.WriteByte('\n')
	}

	b.WriteString(m.renderTotals(view))
	b.WriteByte('\n')

	if list, ok := m.lookups.List(); ok {
		b.WriteString(m.renderSuggestions(list.Matches, list.Selected))
		b.WriteByte('\n')
	} else if err := m.lookups.Err(); err != nil {
		b.WriteString(errorStyle.Render("Recherche impossible : " + err.Error()))
		b.WriteByte('\n')
	}

	if len(m.errs) > 0 {
		formatter := errors.NewTextFormatter(
			errors.WithCodec(cfg.Codec),
			errors.WithPiece(view.Header.Number, view.Lines),
		)
		b.WriteByte('\n')
		b.WriteString(errorStyle.Render(formatter.FormatAll(m.errs)))
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	switch {
	case m.question != "":
		b.WriteString(questionStyle.Render(m.question))
	case m.status != "":
		b.WriteString(m.status)
	}
	b.WriteByte('\n')
	b.WriteString(mutedStyle.Render(helpLine()))

	return b.String()
}

func (m *Model) renderHeader(view session.View) string {
	journal := view.Journal.Code
	if view.Journal.Label != "" {
		journal += " " + view.Journal.Label
	}
	number := view.Header.Number
	if number == "" {
		number = "-"
	}

	parts := []string{
		titleStyle.Render("Journal " + journal),
		"Pièce " + titleStyle.Render(number),
		"Date " + piece.FormatDate(view.Header.Date),
	}
	if view.Header.Reference != "" {
		parts = append(parts, "Réf. "+view.Header.Reference)
	}

	badge := view.State.String()
	if view.ReadOnly {
		badge = "consultation"
	}
	header := strings.Join(parts, "  ") + "  " + badgeStyle.Render(badge)
	if view.Modified {
		header += " " + errorStyle.Render("*")
	}
	return header
}

func (m *Model) renderTotals(view session.View) string {
	codec := m.session.Config().Codec
	debit := columns[piece.ColumnDebit]
	credit := columns[piece.ColumnCredit]

	lead := columns[piece.ColumnAccount].width + columns[piece.ColumnLabel].width + 3
	balanced := view.Totals.Balance.Abs().LessThanOrEqual(m.session.Config().Tolerance)
	balance := fmt.Sprintf("Solde %s", codec.Format(view.Totals.Balance))
	if balanced {
		balance = okStyle.Render(balance)
	} else {
		balance = errorStyle.Render(balance)
	}

	return titleStyle.Render(fit("Totaux", lead, false)) + " │ " +
		titleStyle.Render(fit(codec.Format(view.Totals.Debit), debit.width, true)) + " │ " +
		titleStyle.Render(fit(codec.Format(view.Totals.Credit), credit.width, true)) + "   " +
		balance
}

func (m *Model) renderSuggestions(matches []lookup.Match, selected int) string {
	if len(matches) == 0 {
		return listStyle.Render(mutedStyle.Render("Aucun résultat"))
	}

	start := 0
	if selected >= maxSuggestions {
		start = selected - maxSuggestions + 1
	}
	end := start + maxSuggestions
	if end > len(matches) {
		end = len(matches)
	}

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		text := fit(matches[i].Code, 10, false) + " " + fit(matches[i].Label, 32, false)
		if i == selected {
			text = cursorStyle.Render(text)
		}
		lines = append(lines, text)
	}
	return listStyle.Render(strings.Join(lines, "\n"))
}

// helpLine lists the bound keys that carry a description.
func helpLine() string {
	keys := make([]string, 0, len(grid.Keys))
	for key, binding := range grid.Keys {
		if binding.Help != "" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+" "+grid.Keys[key].Help)
	}
	return strings.Join(parts, " · ")
}
