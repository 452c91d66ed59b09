package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/Eudes8/Compta/errors"
	"github.com/Eudes8/Compta/loader"
	"github.com/Eudes8/Compta/piece"
)

type CheckCmd struct {
	File   FileOrStdin `help:"Dossier file (use '-' for stdin, or omit for stdin)." arg:"" optional:""`
	Format string      `help:"Output format (text, json)." enum:"text,json" default:"text"`
}

// pieceReport is one invalid piece in the JSON output.
type pieceReport struct {
	Number  string             `json:"number"`
	Journal string             `json:"journal"`
	Errors  []errors.ErrorJSON `json:"errors"`
}

func (cmd *CheckCmd) Run(ctx *kong.Context, globals *Globals) error {
	if err := cmd.File.EnsureContents(os.Stdin); err != nil {
		return err
	}

	a, err := globals.setup(ctx, fmt.Sprintf("check %s", filepath.Base(cmd.File.Filename)), false)
	if err != nil {
		return err
	}
	defer a.finish()

	ldr := loader.New(loader.WithFollowIncludes(), loader.WithCodec(a.pieces.Codec))
	dossier, err := cmd.File.LoadDossier(a.ctx, ldr)
	if err != nil {
		printError(ctx.Stderr, err.Error())
		a.finish()
		return NewCommandError(1)
	}

	invalid := checkDossier(dossier, a.pieces)
	a.logger.Debug("dossier checked",
		zap.String("file", dossier.Root),
		zap.Int("pieces", len(dossier.Pieces)),
		zap.Int("invalid", len(invalid)))

	if cmd.Format == "json" {
		if err := writeCheckJSON(ctx.Stdout, invalid); err != nil {
			return err
		}
	} else {
		renderer := NewErrorRenderer(a.pieces.Codec)
		for _, result := range invalid {
			_, _ = fmt.Fprintln(ctx.Stderr, renderer.Render(result.number, result.lines, result.err))
			_, _ = fmt.Fprintln(ctx.Stderr)
		}
	}

	if len(invalid) > 0 {
		printError(ctx.Stderr, fmt.Sprintf("%d pièce(s) invalide(s) sur %d", len(invalid), len(dossier.Pieces)))
		a.finish()
		return NewCommandError(1)
	}

	if cmd.Format != "json" {
		printSuccess(ctx.Stdout, fmt.Sprintf("%d pièce(s) vérifiée(s) dans %s",
			len(dossier.Pieces), pathStyle.Render(dossier.Root)))
	}
	return nil
}

type checkResult struct {
	number  string
	journal string
	lines   []piece.Line
	err     error
}

// checkDossier validates every piece of d and returns the invalid ones in
// file order. Pieces naming a journal the dossier does not declare are
// reported too, when the dossier declares journals at all.
func checkDossier(d *loader.Dossier, cfg *piece.Config) []checkResult {
	journals := make(map[string]bool, len(d.Journals))
	for _, j := range d.Journals {
		journals[j.Code] = true
	}

	var invalid []checkResult
	for _, doc := range d.Pieces {
		p := piece.New()
		p.Load(doc.Header, doc.Lines)

		err := p.Validate(cfg)
		if len(journals) > 0 && !journals[doc.Header.Journal] {
			unknown := &piece.ValidationError{
				Field:  "journal",
				Reason: fmt.Sprintf("Journal inconnu : %s", doc.Header.Journal),
			}
			err = appendError(err, unknown)
		}
		if err != nil {
			invalid = append(invalid, checkResult{
				number:  doc.Header.Number,
				journal: doc.Header.Journal,
				lines:   p.Lines(),
				err:     err,
			})
		}
	}
	return invalid
}

func appendError(err error, extra error) error {
	if err == nil {
		return &piece.ValidationErrors{Errors: []error{extra}}
	}
	if multi, ok := err.(*piece.ValidationErrors); ok {
		multi.Errors = append(multi.Errors, extra)
		return multi
	}
	return &piece.ValidationErrors{Errors: []error{err, extra}}
}

func writeCheckJSON(w io.Writer, invalid []checkResult) error {
	formatter := errors.NewJSONFormatter()
	reports := make([]pieceReport, 0, len(invalid))
	for _, result := range invalid {
		reports = append(reports, pieceReport{
			Number:  result.number,
			Journal: result.journal,
			Errors:  formatter.FormatAllToSlice([]error{result.err}),
		})
	}
	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
