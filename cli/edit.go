package cli

import (
	stdErrors "errors"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/Eudes8/Compta/lookup"
	"github.com/Eudes8/Compta/piece"
	"github.com/Eudes8/Compta/session"
	"github.com/Eudes8/Compta/tui"
)

type EditCmd struct {
	Journal string `help:"Journal code." short:"j" required:""`
	Number  string `help:"Open this piece instead of a new one."`
	View    bool   `help:"Open the piece given by --number read-only."`
	Date    string `help:"Date of new pieces (JJ/MM/AAAA), defaults to today."`
	Remote  string `help:"Backend URL, overrides server.url."`
}

func (cmd *EditCmd) Validate() error {
	if cmd.View && cmd.Number == "" {
		return stdErrors.New("--view requires --number")
	}
	return nil
}

func (cmd *EditCmd) Run(ctx *kong.Context, globals *Globals) error {
	if !isTerminal() || !isTerminalWriter(ctx.Stdout) {
		return stdErrors.New("the editor needs an interactive terminal")
	}

	a, err := globals.setup(ctx, "edit "+cmd.Journal, true)
	if err != nil {
		return err
	}
	defer a.finish()

	backend, release, err := a.backend(cmd.Remote)
	if err != nil {
		return err
	}
	defer release()

	sess := session.New(backend,
		session.WithConfig(a.pieces),
		session.WithLogger(a.logger),
		session.WithTimeout(a.cfg.Port.Timeout),
	)
	if err := cmd.open(a, sess); err != nil {
		return err
	}

	m := tui.New(a.ctx, sess, backend,
		tui.WithLogger(a.logger),
		tui.WithLookupOptions(
			lookup.WithMinLength(a.cfg.Lookup.MinChars),
			lookup.WithDebounce(a.cfg.Lookup.Debounce),
			lookup.WithLimit(a.cfg.Lookup.Limit),
			lookup.WithTimeout(a.cfg.Lookup.Timeout),
			lookup.WithLogger(a.logger),
		),
	)
	return tui.Run(a.ctx, m, os.Stdin, ctx.Stdout)
}

// open prepares the session before the editor takes the screen, so that
// an unknown journal or piece is reported on the command line.
func (cmd *EditCmd) open(a *app, sess *session.Session) error {
	if err := sess.ChangeJournal(a.ctx, cmd.Journal); err != nil {
		return fmt.Errorf("journal %s: %w", cmd.Journal, err)
	}

	if cmd.Date != "" {
		date, err := piece.ParseDate(cmd.Date)
		if err != nil {
			return fmt.Errorf("--date: %w", err)
		}
		if err := sess.ChangePeriod(a.ctx, date); err != nil {
			return err
		}
	}

	switch {
	case cmd.Number == "":
		return nil
	case cmd.View:
		return sess.View(a.ctx, cmd.Number)
	default:
		return sess.Edit(a.ctx, cmd.Number)
	}
}
