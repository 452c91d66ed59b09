package cli

import (
	stdErrors "errors"
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/Eudes8/Compta/port"
)

type DeleteCmd struct {
	Number string `help:"Piece number." arg:""`
	Yes    bool   `help:"Delete without asking for confirmation." short:"y"`
	Remote string `help:"Backend URL, overrides server.url."`
}

func (cmd *DeleteCmd) Run(ctx *kong.Context, globals *Globals) error {
	a, err := globals.setup(ctx, "delete "+cmd.Number, false)
	if err != nil {
		return err
	}
	defer a.finish()

	backend, release, err := a.backend(cmd.Remote)
	if err != nil {
		return err
	}
	defer release()

	if _, err := backend.FetchDocument(a.ctx, cmd.Number); err != nil {
		if stdErrors.Is(err, port.ErrNotFound) {
			printError(ctx.Stderr, fmt.Sprintf("Pièce %s introuvable", cmd.Number))
			a.finish()
			return NewCommandError(1)
		}
		return err
	}

	if !cmd.Yes {
		confirmed, err := promptYesNo(fmt.Sprintf("Supprimer la pièce %s ?", cmd.Number))
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		if !confirmed {
			printInfof(ctx.Stdout, "Suppression annulée")
			return nil
		}
	}

	result, err := backend.DeleteDocument(a.ctx, cmd.Number)
	if err != nil {
		return err
	}
	if !result.Success {
		printError(ctx.Stderr, result.Message)
		a.finish()
		return NewCommandError(1)
	}

	printSuccess(ctx.Stdout, fmt.Sprintf("Pièce %s supprimée", cmd.Number))
	return nil
}
