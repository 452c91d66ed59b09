package cli

import (
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/shopspring/decimal"

	"github.com/Eudes8/Compta/amount"
	"github.com/Eudes8/Compta/output"
	"github.com/Eudes8/Compta/piece"
	"github.com/Eudes8/Compta/port"
	"github.com/Eudes8/Compta/web"
)

type ShowCmd struct {
	Number string `help:"Piece number." arg:""`
	Remote string `help:"Backend URL, overrides server.url."`
	Format string `help:"Output format (text, json)." enum:"text,json" default:"text"`
}

func (cmd *ShowCmd) Run(ctx *kong.Context, globals *Globals) error {
	a, err := globals.setup(ctx, "show "+cmd.Number, false)
	if err != nil {
		return err
	}
	defer a.finish()

	backend, release, err := a.backend(cmd.Remote)
	if err != nil {
		return err
	}
	defer release()

	doc, err := backend.FetchDocument(a.ctx, cmd.Number)
	if stdErrors.Is(err, port.ErrNotFound) {
		printError(ctx.Stderr, fmt.Sprintf("Pièce %s introuvable", cmd.Number))
		a.finish()
		return NewCommandError(1)
	}
	if err != nil {
		return err
	}

	if cmd.Format == "json" {
		data, err := json.MarshalIndent(web.NewDocumentJSON(doc), "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(ctx.Stdout, string(data))
		return err
	}

	renderDocument(ctx.Stdout, output.NewStyles(ctx.Stdout), a.pieces, doc)
	return nil
}

var showColumns = []struct {
	title string
	width int
	right bool
}{
	{"Jour", 4, true},
	{"Compte", 10, false},
	{"Tiers", 10, false},
	{"Libellé", 28, false},
	{"Débit", 14, true},
	{"Crédit", 14, true},
	{"Échéance", 10, false},
}

func pad(text string, i int) string {
	c := showColumns[i]
	if c.right {
		return output.PadLeft(text, c.width)
	}
	return output.PadRight(text, c.width)
}

// renderDocument prints a piece as a table with its totals.
func renderDocument(w io.Writer, styles *output.Styles, cfg *piece.Config, doc *port.Document) {
	codec := cfg.Codec
	h := doc.Header

	_, _ = fmt.Fprintf(w, "%s %s  %s %s  %s %s",
		styles.Keyword("Pièce"), styles.Number(h.Number),
		styles.Keyword("Journal"), h.Journal,
		styles.Keyword("Date"), piece.FormatDate(h.Date))
	if h.Reference != "" {
		_, _ = fmt.Fprintf(w, "  %s %s", styles.Keyword("Réf."), h.Reference)
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w)

	titles := make([]string, len(showColumns))
	for i, c := range showColumns {
		titles[i] = pad(c.title, i)
	}
	_, _ = fmt.Fprintln(w, styles.Dim(strings.Join(titles, " ")))

	var debit, credit decimal.Decimal
	for _, l := range doc.Lines {
		if l.IsBlank() {
			continue
		}
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)

		day := ""
		if l.Day > 0 {
			day = strconv.Itoa(l.Day)
		}
		cells := []string{
			pad(day, 0),
			styles.Account(pad(l.Account, 1)),
			pad(l.Counterparty, 2),
			pad(l.Label, 3),
			styles.Debit(pad(codec.FormatBlank(l.Debit), 4)),
			styles.Credit(pad(codec.FormatBlank(l.Credit), 5)),
			pad(piece.FormatDate(l.DueDate), 6),
		}
		_, _ = fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, " "), " "))
	}

	balance := debit.Sub(credit)
	balanced := !amount.Exceeds(debit, credit, cfg.Tolerance)
	label := output.PadRight("Totaux", showColumns[0].width+showColumns[1].width+showColumns[2].width+showColumns[3].width+3)
	_, _ = fmt.Fprintf(w, "\n%s %s %s  %s\n",
		styles.Keyword(label),
		styles.Debit(pad(codec.Format(debit), 4)),
		styles.Credit(pad(codec.Format(credit), 5)),
		styles.Balance("Solde "+codec.Format(balance), balanced))
}
