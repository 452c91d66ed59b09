// Package output provides styling helpers for terminal output.
package output

import (
	"io"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
)

// Styles provides styled output helpers for the CLI.
type Styles struct {
	output *termenv.Output
}

// NewStyles creates a new Styles instance for the given writer.
func NewStyles(w io.Writer) *Styles {
	return &Styles{
		output: termenv.NewOutput(w),
	}
}

func (s *Styles) color(text, code string) string {
	return s.output.String(text).
		Foreground(s.output.Color(code)).
		String()
}

// Success returns a styled success string (green + bold).
func (s *Styles) Success(text string) string {
	return s.output.String(text).
		Foreground(s.output.Color("2")).
		Bold().
		String()
}

// Error returns a styled error string (red + bold).
func (s *Styles) Error(text string) string {
	return s.output.String(text).
		Foreground(s.output.Color("1")).
		Bold().
		String()
}

// Warning returns a styled warning (yellow + bold).
func (s *Styles) Warning(text string) string {
	return s.output.String(text).
		Foreground(s.output.Color("3")).
		Bold().
		String()
}

// FilePath returns a styled file path (cyan).
func (s *Styles) FilePath(text string) string {
	return s.color(text, "6")
}

// Account returns a styled account code (yellow).
func (s *Styles) Account(text string) string {
	return s.color(text, "3")
}

// Number returns a styled piece number (cyan + bold).
func (s *Styles) Number(text string) string {
	return s.output.String(text).
		Foreground(s.output.Color("6")).
		Bold().
		String()
}

// Debit returns a styled debit amount (blue).
func (s *Styles) Debit(text string) string {
	return s.color(text, "4")
}

// Credit returns a styled credit amount (magenta).
func (s *Styles) Credit(text string) string {
	return s.color(text, "5")
}

// Balance styles the difference between total debit and total credit:
// green when the piece balances, red otherwise.
func (s *Styles) Balance(text string, balanced bool) string {
	if balanced {
		return s.color(text, "2")
	}
	return s.Error(text)
}

// Keyword returns a styled keyword (bold).
func (s *Styles) Keyword(text string) string {
	return s.output.String(text).
		Bold().
		String()
}

// Dim returns dimmed text (for secondary information).
func (s *Styles) Dim(text string) string {
	return s.output.String(text).
		Faint().
		String()
}

// Timing returns a styled timing string. Slow operations are shown in red.
func (s *Styles) Timing(text string, slow bool) string {
	if slow {
		return s.color(text, "1")
	}
	return s.Dim(text)
}

// Output returns the underlying termenv Output for advanced usage.
func (s *Styles) Output() *termenv.Output {
	return s.output
}

// PadRight fills text with spaces up to width terminal cells, truncating it
// with an ellipsis when it is wider. Labels often carry accented or wide
// characters so byte length is not the display width.
func PadRight(text string, width int) string {
	if runewidth.StringWidth(text) > width {
		text = runewidth.Truncate(text, width, "…")
	}
	return runewidth.FillRight(text, width)
}

// PadLeft is PadRight for right-aligned columns such as amounts.
func PadLeft(text string, width int) string {
	if runewidth.StringWidth(text) > width {
		text = runewidth.Truncate(text, width, "…")
	}
	return runewidth.FillLeft(text, width)
}
