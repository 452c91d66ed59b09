package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/Eudes8/Compta/loader"
)

type ImportCmd struct {
	File       FileOrStdin `help:"Dossier file (use '-' for stdin, or omit for stdin)." arg:"" optional:""`
	NoIncludes bool        `help:"Do not follow the include list of the dossier."`
}

func (cmd *ImportCmd) Run(ctx *kong.Context, globals *Globals) error {
	if err := cmd.File.EnsureContents(os.Stdin); err != nil {
		return err
	}

	a, err := globals.setup(ctx, fmt.Sprintf("import %s", filepath.Base(cmd.File.Filename)), false)
	if err != nil {
		return err
	}
	defer a.finish()

	opts := []loader.Option{loader.WithCodec(a.pieces.Codec)}
	if !cmd.NoIncludes {
		opts = append(opts, loader.WithFollowIncludes())
	}
	dossier, err := cmd.File.LoadDossier(a.ctx, loader.New(opts...))
	if err != nil {
		printError(ctx.Stderr, err.Error())
		a.finish()
		return NewCommandError(1)
	}

	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	result, err := loader.Import(a.ctx, st, dossier)
	if err != nil {
		return err
	}

	a.logger.Info("dossier imported",
		zap.String("file", dossier.Root),
		zap.Int("pieces", result.Pieces),
		zap.Int("rejected", len(result.Rejected)))

	printInfof(ctx.Stdout, "%d journal(s), %d compte(s), %d tiers",
		result.Journals, result.Accounts, result.Counterparties)

	for _, rejected := range result.Rejected {
		printError(ctx.Stderr, rejected.Error())
	}
	if len(result.Rejected) > 0 {
		printError(ctx.Stderr, fmt.Sprintf("%d pièce(s) importée(s), %d refusée(s)", result.Pieces, len(result.Rejected)))
		a.finish()
		return NewCommandError(1)
	}

	printSuccess(ctx.Stdout, fmt.Sprintf("%d pièce(s) importée(s) dans %s",
		result.Pieces, pathStyle.Render(st.Path())))
	return nil
}
