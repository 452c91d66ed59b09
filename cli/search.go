package cli

import (
	"fmt"
	"io"

	"github.com/alecthomas/kong"
	"github.com/shopspring/decimal"

	"github.com/Eudes8/Compta/amount"
	"github.com/Eudes8/Compta/output"
	"github.com/Eudes8/Compta/piece"
	"github.com/Eudes8/Compta/port"
)

type SearchCmd struct {
	Journal string `help:"Journal code." short:"j"`
	Number  string `help:"Part of the piece number." short:"n"`
	From    string `help:"First date (JJ/MM/AAAA)."`
	To      string `help:"Last date (JJ/MM/AAAA)."`
	Amount  string `help:"Exact total debit of the piece." short:"a"`
	Remote  string `help:"Backend URL, overrides server.url."`
}

func (cmd *SearchCmd) criteria(codec amount.Codec) (port.SearchCriteria, error) {
	c := port.SearchCriteria{Journal: cmd.Journal, Number: cmd.Number}

	var err error
	if cmd.From != "" {
		if c.From, err = piece.ParseDate(cmd.From); err != nil {
			return c, fmt.Errorf("--from: %w", err)
		}
	}
	if cmd.To != "" {
		if c.To, err = piece.ParseDate(cmd.To); err != nil {
			return c, fmt.Errorf("--to: %w", err)
		}
	}
	if cmd.Amount != "" {
		c.Amount = decimal.NewNullDecimal(codec.Parse(cmd.Amount))
	}
	return c, nil
}

func (cmd *SearchCmd) Run(ctx *kong.Context, globals *Globals) error {
	a, err := globals.setup(ctx, "search", false)
	if err != nil {
		return err
	}
	defer a.finish()

	criteria, err := cmd.criteria(a.pieces.Codec)
	if err != nil {
		return err
	}

	backend, release, err := a.backend(cmd.Remote)
	if err != nil {
		return err
	}
	defer release()

	found, err := backend.SearchDocuments(a.ctx, criteria)
	if err != nil {
		return err
	}

	if len(found) == 0 {
		printInfof(ctx.Stdout, "Aucune pièce trouvée")
		return nil
	}
	renderSummaries(ctx.Stdout, output.NewStyles(ctx.Stdout), a.pieces.Codec, found)
	return nil
}

func renderSummaries(w io.Writer, styles *output.Styles, codec amount.Codec, found []port.DocumentSummary) {
	_, _ = fmt.Fprintln(w, styles.Dim(fmt.Sprintf("%s %s %s %s %s",
		output.PadRight("Pièce", 12),
		output.PadRight("Journal", 7),
		output.PadRight("Date", 10),
		output.PadRight("Référence", 16),
		output.PadLeft("Total", 14))))

	for _, s := range found {
		_, _ = fmt.Fprintf(w, "%s %s %s %s %s\n",
			styles.Number(output.PadRight(s.Number, 12)),
			output.PadRight(s.Journal, 7),
			output.PadRight(piece.FormatDate(s.Date), 10),
			output.PadRight(s.Reference, 16),
			styles.Debit(output.PadLeft(codec.Format(s.Total), 14)))
	}
	_, _ = fmt.Fprintf(w, "\n%d pièce(s)\n", len(found))
}
