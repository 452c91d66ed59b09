package tui

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the grid on the terminal and blocks until the user quits or
// ctx is cancelled.
func Run(ctx context.Context, m *Model, in io.Reader, out io.Writer) error {
	program := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithInput(in),
		tea.WithOutput(out),
	)
	_, err := program.Run()
	m.lookups.Close()
	return err
}
