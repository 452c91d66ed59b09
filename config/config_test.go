package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(WithSearchPaths(t.TempDir()))
	assert.NoError(t, err)

	assert.Equal(t, "compta.db", cfg.Database.Path)
	assert.Equal(t, "127.0.0.1:8080", cfg.Addr())
	assert.False(t, cfg.Server.ReadOnly)
	assert.Equal(t, []string{"401", "411", "421"}, cfg.Engine.CounterpartyPrefixes)
	assert.Equal(t, 2, cfg.Lookup.MinChars)
	assert.Equal(t, 150*time.Millisecond, cfg.Lookup.Debounce)
	assert.Equal(t, 50, cfg.Lookup.Limit)
	assert.Equal(t, 10*time.Second, cfg.Port.Timeout)
	assert.Equal(t, "", cfg.File)

	pc, err := cfg.PieceConfig()
	assert.NoError(t, err)
	assert.True(t, pc.Tolerance.Equal(decimal.RequireFromString("0.01")))
	assert.Equal(t, ',', pc.Codec.Decimal)
	assert.Equal(t, ' ', pc.Codec.Group)

	logCfg := cfg.Logging()
	assert.Equal(t, "info", logCfg.Level)
	assert.Equal(t, "stderr", logCfg.Output)
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, "compta.yaml", `
database:
  path: /var/lib/compta/dossier.db
server:
  port: 9000
  readonly: true
engine:
  tolerance: "0.05"
  counterparty_prefixes: ["401", "411"]
locale:
  decimal_separator: "."
  group_separator: ","
lookup:
  debounce: 300ms
  limit: 20
log:
  format: json
`)

	cfg, err := Load(WithFile(path))
	assert.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "/var/lib/compta/dossier.db", cfg.Database.Path)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.True(t, cfg.Server.ReadOnly)
	assert.Equal(t, []string{"401", "411"}, cfg.Engine.CounterpartyPrefixes)
	assert.Equal(t, 300*time.Millisecond, cfg.Lookup.Debounce)
	assert.Equal(t, 20, cfg.Lookup.Limit)
	assert.Equal(t, "json", cfg.Log.Format)

	pc, err := cfg.PieceConfig()
	assert.NoError(t, err)
	assert.True(t, pc.Tolerance.Equal(decimal.RequireFromString("0.05")))
	assert.Equal(t, '.', pc.Codec.Decimal)
}

func TestLoadSearchPath(t *testing.T) {
	path := writeFile(t, "compta.yaml", "database:\n  path: found.db\n")

	cfg, err := Load(WithSearchPaths(filepath.Dir(path)))
	assert.NoError(t, err)
	assert.Equal(t, "found.db", cfg.Database.Path)
	assert.Equal(t, path, cfg.File)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("COMPTA_SERVER_PORT", "9090")
	t.Setenv("COMPTA_ENGINE_COUNTERPARTY_PREFIXES", "401, 411")
	t.Setenv("COMPTA_LOOKUP_TIMEOUT", "2s")

	cfg, err := Load(WithSearchPaths(t.TempDir()))
	assert.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"401", "411"}, cfg.Engine.CounterpartyPrefixes)
	assert.Equal(t, 2*time.Second, cfg.Lookup.Timeout)
}

func TestLoadEnvFile(t *testing.T) {
	path := writeFile(t, ".env", "COMPTA_DATABASE_PATH=from-dotenv.db\n")
	t.Cleanup(func() { _ = os.Unsetenv("COMPTA_DATABASE_PATH") })

	cfg, err := Load(WithEnvFile(path), WithSearchPaths(t.TempDir()))
	assert.NoError(t, err)
	assert.Equal(t, "from-dotenv.db", cfg.Database.Path)

	_, err = Load(WithEnvFile(filepath.Join(t.TempDir(), "missing.env")))
	assert.Error(t, err)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"tolerance", "engine:\n  tolerance: abc\n"},
		{"negative tolerance", "engine:\n  tolerance: \"-1\"\n"},
		{"same separators", "locale:\n  decimal_separator: \",\"\n  group_separator: \",\"\n"},
		{"long separator", "locale:\n  decimal_separator: \",,\"\n"},
		{"port", "server:\n  port: 70000\n"},
		{"lookup", "lookup:\n  min_chars: 0\n"},
		{"log level", "log:\n  level: loud\n"},
		{"syntax", "database: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(WithFile(writeFile(t, "compta.yaml", tt.yaml)))
			assert.Error(t, err)
		})
	}

	_, err := Load(WithFile(filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Error(t, err)
}
