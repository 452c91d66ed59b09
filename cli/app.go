package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/Eudes8/Compta/config"
	"github.com/Eudes8/Compta/logging"
	"github.com/Eudes8/Compta/output"
	"github.com/Eudes8/Compta/piece"
	"github.com/Eudes8/Compta/port"
	"github.com/Eudes8/Compta/store"
	"github.com/Eudes8/Compta/telemetry"
	"github.com/Eudes8/Compta/web"
)

// app is what every command needs once flags are parsed.
type app struct {
	ctx    context.Context
	cfg    *config.Config
	pieces *piece.Config
	logger *zap.Logger

	collector *telemetry.TimingCollector
	timer     telemetry.Timer
	stderr    io.Writer
	once      sync.Once
}

// setup loads the configuration and builds the logger. When quiet is set,
// logs written to the terminal are dropped; the editor owns the screen.
func (g *Globals) setup(kctx *kong.Context, name string, quiet bool) (*app, error) {
	var opts []config.Option
	if g.Config != "" {
		opts = append(opts, config.WithFile(g.Config))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, err
	}
	if g.Database != "" {
		cfg.Database.Path = g.Database
	}
	if g.LogLevel != "" {
		cfg.Log.Level = g.LogLevel
	}
	if g.LogFormat != "" {
		cfg.Log.Format = g.LogFormat
	}
	if quiet {
		switch strings.ToLower(cfg.Log.Output) {
		case "stdout", "stderr", "":
			cfg.Log.Output = "none"
		}
	}

	pieces, err := cfg.PieceConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging())
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &app{
		ctx:    logging.WithContext(context.Background(), logger),
		cfg:    cfg,
		pieces: pieces,
		logger: logger,
		stderr: kctx.Stderr,
	}
	if cfg.File != "" {
		logger.Debug("configuration loaded", zap.String("file", cfg.File))
	}

	if g.Telemetry {
		a.collector = telemetry.NewTimingCollector()
		a.ctx = telemetry.WithCollector(a.ctx, a.collector)
		a.timer = a.collector.Start(name)
	}

	return a, nil
}

// finish ends the command timer, prints the telemetry report and flushes
// the logger. It is safe to call more than once.
func (a *app) finish() {
	a.once.Do(func() {
		if a.collector != nil {
			a.timer.End()
			_, _ = fmt.Fprintln(a.stderr)
			a.collector.Report(a.stderr, output.NewStyles(a.stderr))
		}
		_ = a.logger.Sync()
	})
}

func (a *app) openStore() (*store.Store, error) {
	timer := telemetry.FromContext(a.ctx).Start("store.open")
	defer timer.End()

	st, err := store.Open(a.cfg.Database.Path,
		store.WithLogger(a.logger),
		store.WithPieceConfig(a.pieces),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", a.cfg.Database.Path, err)
	}
	return st, nil
}

// backend returns the HTTP client when remote (or server.url) is set and the
// local database otherwise. The returned func releases it.
func (a *app) backend(remote string) (port.Port, func(), error) {
	if remote == "" {
		remote = a.cfg.Server.URL
	}
	if remote != "" {
		client, err := web.NewClient(remote,
			web.WithTimeout(a.cfg.Port.Timeout),
			web.WithClientLogger(a.logger),
		)
		if err != nil {
			return nil, nil, err
		}
		return client, func() {}, nil
	}

	st, err := a.openStore()
	if err != nil {
		return nil, nil, err
	}
	return st, func() { _ = st.Close() }, nil
}
