package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Eudes8/Compta/amount"
	"github.com/Eudes8/Compta/errors"
	"github.com/Eudes8/Compta/piece"
)

var (
	errCaretStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"})
	errContextStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#808080", Dark: "#808080"})
)

// ErrorRenderer renders piece errors with terminal styling and the offending
// line underneath.
type ErrorRenderer struct {
	codec amount.Codec
}

// NewErrorRenderer creates a renderer writing amounts with codec.
func NewErrorRenderer(codec amount.Codec) *ErrorRenderer {
	return &ErrorRenderer{codec: codec}
}

// Render formats the errors of one piece. Aggregated validation errors are
// expanded, one block per error.
func (r *ErrorRenderer) Render(number string, lines []piece.Line, err error) string {
	formatter := errors.NewTextFormatter(
		errors.WithCodec(r.codec),
		errors.WithPiece(number, lines),
	)
	return r.style(formatter.FormatAll([]error{err}))
}

func (r *ErrorRenderer) style(text string) string {
	rows := strings.Split(text, "\n")
	for i, row := range rows {
		switch {
		case strings.TrimSpace(row) == "^":
			rows[i] = errCaretStyle.Render(row)
		case strings.HasPrefix(row, "   "):
			rows[i] = errContextStyle.Render(row)
		}
	}
	return strings.Join(rows, "\n")
}
