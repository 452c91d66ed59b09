package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"

	"github.com/Eudes8/Compta/amount"
	"github.com/Eudes8/Compta/piece"
)

func TestErrorRenderer(t *testing.T) {
	p := piece.New(
		piece.WithNumber("AC240001"),
		piece.WithDate(time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)),
		piece.WithLines(
			piece.BuildLine("", piece.WithLabel("Sans compte"), piece.WithDebit("10")),
			piece.BuildLine("401000", piece.WithLabel("Fournisseur"), piece.WithCredit("4")),
		),
	)
	err := p.Validate(piece.NewConfig())
	assert.Error(t, err)

	out := NewErrorRenderer(amount.French).Render(p.Header.Number, p.Lines(), err)

	assert.Contains(t, out, "AC240001: ")
	assert.Contains(t, out, "   1 | - | Sans compte | 10,00 |")
	assert.Contains(t, out, "^")
	assert.Contains(t, out, "La pièce n'est pas équilibrée")
	assert.Contains(t, out, "Écart   6,00")
	// One block per error.
	assert.Equal(t, 2, strings.Count(out, "AC240001: "))
}
