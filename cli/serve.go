package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/Eudes8/Compta/loader"
	"github.com/Eudes8/Compta/web"
)

const emptyDossier = `# Dossier compta
journals: []
accounts: []
counterparties: []
pieces: []
`

type ServeCmd struct {
	Dossier  string `help:"Dossier file to import and watch, overrides dossier.file." type:"path"`
	Host     string `help:"Host to listen on, overrides server.host."`
	Port     int    `help:"Port to listen on, overrides server.port."`
	Create   bool   `help:"Create the dossier file if it doesn't exist (no confirmation prompt)." short:"c"`
	ReadOnly bool   `help:"Enable read-only mode (no write operations allowed)." short:"r"`
}

func (cmd *ServeCmd) Run(ctx *kong.Context, globals *Globals) error {
	a, err := globals.setup(ctx, "serve", false)
	if err != nil {
		return err
	}
	defer a.finish()

	host, port := a.cfg.Server.Host, a.cfg.Server.Port
	if cmd.Host != "" {
		host = cmd.Host
	}
	if cmd.Port != 0 {
		port = cmd.Port
	}
	readOnly := cmd.ReadOnly || a.cfg.Server.ReadOnly

	dossierFile := cmd.Dossier
	if dossierFile == "" {
		dossierFile = a.cfg.Dossier.File
	}
	if dossierFile != "" {
		if dossierFile, err = ensureDossier(ctx, dossierFile, cmd.Create); err != nil {
			return err
		}
	}

	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	opts := []web.Option{
		web.WithAddress(host, port),
		web.WithReadOnly(readOnly),
		web.WithLogger(a.logger),
		web.WithPieceConfig(a.pieces),
	}
	if dossierFile != "" {
		ldr := loader.New(loader.WithFollowIncludes(), loader.WithCodec(a.pieces.Codec))
		opts = append(opts, web.WithDossier(dossierFile, st, ldr))
	}
	server := web.New(st, opts...)

	printInfof(ctx.Stdout, "Starting compta %s on %s", versionString(), server.Addr())
	printInfof(ctx.Stdout, "Database: %s", pathStyle.Render(st.Path()))
	if dossierFile != "" {
		printInfof(ctx.Stdout, "Watching dossier: %s", pathStyle.Render(dossierFile))
	}
	if readOnly {
		printInfof(ctx.Stdout, "Server running in READ-ONLY mode")
	}

	return server.Start(a.ctx)
}

// ensureDossier resolves file and offers to create it when missing.
func ensureDossier(ctx *kong.Context, file string, create bool) (string, error) {
	dossierFile, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	if _, err := os.Stat(dossierFile); err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to access file: %w", err)
		}

		shouldCreate := create
		if !shouldCreate {
			confirmed, err := promptYesNo(fmt.Sprintf("Le fichier %q n'existe pas. Le créer ?", dossierFile))
			if err != nil {
				return "", fmt.Errorf("failed to read confirmation: %w", err)
			}
			shouldCreate = confirmed
		}
		if !shouldCreate {
			return "", fmt.Errorf("file does not exist: %s", dossierFile)
		}

		if err := os.MkdirAll(filepath.Dir(dossierFile), 0o755); err != nil {
			return "", fmt.Errorf("failed to create parent directory: %w", err)
		}
		if err := os.WriteFile(dossierFile, []byte(emptyDossier), 0o600); err != nil {
			return "", fmt.Errorf("failed to create file: %w", err)
		}
		printInfof(ctx.Stdout, "Created empty dossier file: %s", pathStyle.Render(dossierFile))
	}
	return dossierFile, nil
}
