// Package config loads the application settings.
//
// Priority (highest to lowest):
//  1. environment variables with the COMPTA_ prefix (COMPTA_DATABASE_PATH)
//  2. a .env file, loaded into the environment
//  3. compta.yaml in the working directory or ~/.config/compta
//  4. built-in defaults
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Eudes8/Compta/amount"
	"github.com/Eudes8/Compta/logging"
	"github.com/Eudes8/Compta/piece"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Dossier  DossierConfig
	Engine   EngineConfig
	Locale   LocaleConfig
	Lookup   LookupConfig
	Port     PortConfig
	Log      LogConfig

	// File is the configuration file that was read, if any.
	File string
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string
}

// ServerConfig holds HTTP backend settings.
type ServerConfig struct {
	Host     string
	Port     int
	ReadOnly bool
	// URL is the backend used by `edit --remote` when set.
	URL string
}

// DossierConfig points at the dossier file the server watches.
type DossierConfig struct {
	File string
}

// EngineConfig holds the piece validation settings.
type EngineConfig struct {
	Tolerance            string
	CounterpartyPrefixes []string
}

// LocaleConfig holds the amount separators.
type LocaleConfig struct {
	DecimalSeparator string
	GroupSeparator   string
}

// LookupConfig tunes account and counterparty suggestions.
type LookupConfig struct {
	MinChars int
	Debounce time.Duration
	Limit    int
	Timeout  time.Duration
}

// PortConfig bounds backend calls made by the editor.
type PortConfig struct {
	Timeout time.Duration
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, none, or a file path
}

// Option adjusts how configuration is loaded.
type Option func(*loadOptions)

type loadOptions struct {
	file    string
	envFile string
	paths   []string
}

// WithFile reads settings from path instead of searching for compta.yaml.
func WithFile(path string) Option {
	return func(o *loadOptions) {
		o.file = path
	}
}

// WithEnvFile loads path instead of ./.env. A missing file is an error.
func WithEnvFile(path string) Option {
	return func(o *loadOptions) {
		o.envFile = path
	}
}

// WithSearchPaths replaces the directories searched for compta.yaml.
func WithSearchPaths(paths ...string) Option {
	return func(o *loadOptions) {
		o.paths = paths
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "compta.db")
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readonly", false)
	v.SetDefault("server.url", "")
	v.SetDefault("dossier.file", "")
	v.SetDefault("engine.tolerance", "0.01")
	v.SetDefault("engine.counterparty_prefixes", []string{"401", "411", "421"})
	v.SetDefault("locale.decimal_separator", ",")
	v.SetDefault("locale.group_separator", " ")
	v.SetDefault("lookup.min_chars", 2)
	v.SetDefault("lookup.debounce", 150*time.Millisecond)
	v.SetDefault("lookup.limit", 50)
	v.SetDefault("lookup.timeout", 5*time.Second)
	v.SetDefault("port.timeout", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stderr")
}

func defaultSearchPaths() []string {
	paths := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "compta"))
	}
	return paths
}

// Load builds the configuration.
func Load(opts ...Option) (*Config, error) {
	o := loadOptions{paths: defaultSearchPaths()}
	for _, opt := range opts {
		opt(&o)
	}

	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	} else {
		// A missing .env is fine.
		_ = godotenv.Load()
	}

	v := viper.New()
	setDefaults(v)

	if o.file != "" {
		v.SetConfigFile(o.file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		v.SetConfigName("compta")
		v.SetConfigType("yaml")
		for _, path := range o.paths {
			v.AddConfigPath(path)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix("COMPTA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Database: DatabaseConfig{
			Path: v.GetString("database.path"),
		},
		Server: ServerConfig{
			Host:     v.GetString("server.host"),
			Port:     v.GetInt("server.port"),
			ReadOnly: v.GetBool("server.readonly"),
			URL:      v.GetString("server.url"),
		},
		Dossier: DossierConfig{
			File: v.GetString("dossier.file"),
		},
		Engine: EngineConfig{
			Tolerance:            v.GetString("engine.tolerance"),
			CounterpartyPrefixes: splitList(v.GetStringSlice("engine.counterparty_prefixes")),
		},
		Locale: LocaleConfig{
			DecimalSeparator: v.GetString("locale.decimal_separator"),
			GroupSeparator:   v.GetString("locale.group_separator"),
		},
		Lookup: LookupConfig{
			MinChars: v.GetInt("lookup.min_chars"),
			Debounce: v.GetDuration("lookup.debounce"),
			Limit:    v.GetInt("lookup.limit"),
			Timeout:  v.GetDuration("lookup.timeout"),
		},
		Port: PortConfig{
			Timeout: v.GetDuration("port.timeout"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		File: v.ConfigFileUsed(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitList accepts both YAML lists and comma separated environment values.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database.path is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if _, err := piece.ParseTolerance(c.Engine.Tolerance); err != nil {
		return fmt.Errorf("engine.tolerance: %w", err)
	}
	if _, err := c.Codec(); err != nil {
		return err
	}
	if c.Lookup.MinChars < 1 {
		return fmt.Errorf("lookup.min_chars must be at least 1, got %d", c.Lookup.MinChars)
	}
	if c.Lookup.Limit < 1 {
		return fmt.Errorf("lookup.limit must be at least 1, got %d", c.Lookup.Limit)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// Codec returns the amount codec for the configured separators.
func (c *Config) Codec() (amount.Codec, error) {
	dec, err := singleRune("locale.decimal_separator", c.Locale.DecimalSeparator)
	if err != nil {
		return amount.Codec{}, err
	}
	group, err := singleRune("locale.group_separator", c.Locale.GroupSeparator)
	if err != nil {
		return amount.Codec{}, err
	}
	if dec == group {
		return amount.Codec{}, errors.New("locale: decimal and group separators must differ")
	}
	return amount.Codec{Decimal: dec, Group: group}, nil
}

func singleRune(key, value string) (rune, error) {
	if utf8.RuneCountInString(value) != 1 {
		return 0, fmt.Errorf("%s must be a single character, got %q", key, value)
	}
	r, _ := utf8.DecodeRuneInString(value)
	return r, nil
}

// PieceConfig returns the validation settings of the engine.
func (c *Config) PieceConfig() (*piece.Config, error) {
	tolerance, err := piece.ParseTolerance(c.Engine.Tolerance)
	if err != nil {
		return nil, err
	}
	codec, err := c.Codec()
	if err != nil {
		return nil, err
	}

	cfg := piece.NewConfig()
	cfg.Tolerance = tolerance
	cfg.CounterpartyPrefixes = append([]string(nil), c.Engine.CounterpartyPrefixes...)
	cfg.Codec = codec
	return cfg, nil
}

// Logging returns the logger settings.
func (c *Config) Logging() *logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.Log.Level
	cfg.Format = c.Log.Format
	cfg.Output = c.Log.Output
	return cfg
}

// Addr is the listen address of the HTTP backend.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}
