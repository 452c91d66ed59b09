package cli

import (
	"fmt"

	"github.com/alecthomas/kong"
)

type NextNumberCmd struct {
	Journal string `help:"Journal code." arg:""`
	Remote  string `help:"Backend URL, overrides server.url."`
}

func (cmd *NextNumberCmd) Run(ctx *kong.Context, globals *Globals) error {
	a, err := globals.setup(ctx, "next-number "+cmd.Journal, false)
	if err != nil {
		return err
	}
	defer a.finish()

	backend, release, err := a.backend(cmd.Remote)
	if err != nil {
		return err
	}
	defer release()

	number, err := backend.SuggestNextNumber(a.ctx, cmd.Journal)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(ctx.Stdout, number)
	return err
}
