package cli

import (
	"fmt"
	"io"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"

	"github.com/Eudes8/Compta/config"
	"github.com/Eudes8/Compta/output"
)

// DoctorCmd provides utilities for inspecting an installation.
type DoctorCmd struct {
	Config   DoctorConfigCmd   `cmd:"" help:"Print the effective configuration as YAML."`
	Journals DoctorJournalsCmd `cmd:"" help:"List the journals of the database with their last number."`
}

// DoctorConfigCmd prints the configuration after files, .env and
// environment variables are merged.
type DoctorConfigCmd struct{}

type effectiveConfig struct {
	File     string `yaml:"file,omitempty"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Server struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		ReadOnly bool   `yaml:"readonly"`
		URL      string `yaml:"url,omitempty"`
	} `yaml:"server"`
	Dossier struct {
		File string `yaml:"file,omitempty"`
	} `yaml:"dossier"`
	Engine struct {
		Tolerance            string   `yaml:"tolerance"`
		CounterpartyPrefixes []string `yaml:"counterparty_prefixes,flow"`
	} `yaml:"engine"`
	Locale struct {
		DecimalSeparator string `yaml:"decimal_separator"`
		GroupSeparator   string `yaml:"group_separator"`
	} `yaml:"locale"`
	Lookup struct {
		MinChars int    `yaml:"min_chars"`
		Debounce string `yaml:"debounce"`
		Limit    int    `yaml:"limit"`
		Timeout  string `yaml:"timeout"`
	} `yaml:"lookup"`
	Port struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"port"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
}

func newEffectiveConfig(cfg *config.Config) effectiveConfig {
	var out effectiveConfig
	out.File = cfg.File
	out.Database.Path = cfg.Database.Path
	out.Server.Host = cfg.Server.Host
	out.Server.Port = cfg.Server.Port
	out.Server.ReadOnly = cfg.Server.ReadOnly
	out.Server.URL = cfg.Server.URL
	out.Dossier.File = cfg.Dossier.File
	out.Engine.Tolerance = cfg.Engine.Tolerance
	out.Engine.CounterpartyPrefixes = cfg.Engine.CounterpartyPrefixes
	out.Locale.DecimalSeparator = cfg.Locale.DecimalSeparator
	out.Locale.GroupSeparator = cfg.Locale.GroupSeparator
	out.Lookup.MinChars = cfg.Lookup.MinChars
	out.Lookup.Debounce = cfg.Lookup.Debounce.String()
	out.Lookup.Limit = cfg.Lookup.Limit
	out.Lookup.Timeout = cfg.Lookup.Timeout.String()
	out.Port.Timeout = cfg.Port.Timeout.String()
	out.Log.Level = cfg.Log.Level
	out.Log.Format = cfg.Log.Format
	out.Log.Output = cfg.Log.Output
	return out
}

func writeConfigYAML(w io.Writer, cfg *config.Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(newEffectiveConfig(cfg)); err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	return enc.Close()
}

// Run executes the config command.
func (cmd *DoctorConfigCmd) Run(ctx *kong.Context, globals *Globals) error {
	a, err := globals.setup(ctx, "doctor config", false)
	if err != nil {
		return err
	}
	defer a.finish()

	return writeConfigYAML(ctx.Stdout, a.cfg)
}

// DoctorJournalsCmd lists the journals stored in the database.
type DoctorJournalsCmd struct{}

// Run executes the journals command.
func (cmd *DoctorJournalsCmd) Run(ctx *kong.Context, globals *Globals) error {
	a, err := globals.setup(ctx, "doctor journals", false)
	if err != nil {
		return err
	}
	defer a.finish()

	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	journals, err := st.Journals(a.ctx)
	if err != nil {
		return err
	}
	if len(journals) == 0 {
		printInfof(ctx.Stdout, "Aucun journal dans %s", pathStyle.Render(st.Path()))
		return nil
	}

	styles := output.NewStyles(ctx.Stdout)
	for _, j := range journals {
		last := j.LastNumber
		if last == "" {
			last = "-"
		}
		_, _ = fmt.Fprintf(ctx.Stdout, "%s %s %s %s\n",
			styles.Keyword(output.PadRight(j.Code, 4)),
			output.PadRight(j.Label, 24),
			output.PadRight(string(j.Kind), 12),
			styles.Number(last))
	}
	return nil
}
