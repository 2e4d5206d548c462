package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lkerrors "github.com/conneroisu/lenskit/internal/errors"
	"github.com/conneroisu/lenskit/internal/logging"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "counter", cfg.App.Demo)
	assert.Equal(t, 16*time.Millisecond, cfg.App.TickInterval)
	assert.Equal(t, 256, cfg.App.InboxSize)
	assert.Equal(t, 100*time.Millisecond, cfg.Theme.Debounce)
	assert.Equal(t, "localhost", cfg.Inspector.Host)
	assert.Equal(t, 7777, cfg.Inspector.Port)
	assert.Equal(t, "json", cfg.Inspector.Format)
	assert.Equal(t, "en", cfg.Locale.Language)
}

func TestLoadFrom(t *testing.T) {
	tests := []struct {
		name      string
		set       map[string]interface{}
		wantField string
		check     func(t *testing.T, cfg *Config)
	}{
		{
			name: "defaults",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, Default(), cfg)
			},
		},
		{
			name: "overrides",
			set: map[string]interface{}{
				"inspector.port":    9000,
				"inspector.format":  "cbor",
				"app.demo":          "static_list",
				"app.tick_interval": "50ms",
				"theme.debounce":    "1s",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9000, cfg.Inspector.Port)
				assert.Equal(t, "cbor", cfg.Inspector.Format)
				assert.Equal(t, "static_list", cfg.App.Demo)
				assert.Equal(t, 50*time.Millisecond, cfg.App.TickInterval)
				assert.Equal(t, time.Second, cfg.Theme.Debounce)
			},
		},
		{
			name: "log-level flag wins",
			set:  map[string]interface{}{"logging.level": "info", "log-level": "debug"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Logging.Level)
			},
		},
		{
			name:      "undecodable port",
			set:       map[string]interface{}{"inspector.port": "invalid_port"},
			wantField: "",
		},
		{
			name:      "unknown format",
			set:       map[string]interface{}{"inspector.format": "xml"},
			wantField: "inspector.format",
		},
		{
			name:      "unknown demo",
			set:       map[string]interface{}{"app.demo": "nope"},
			wantField: "app.demo",
		},
		{
			name:      "bad level",
			set:       map[string]interface{}{"logging.level": "loud"},
			wantField: "logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper()
			for k, val := range tt.set {
				v.Set(k, val)
			}

			cfg, err := LoadFrom(v)
			if tt.check != nil {
				require.NoError(t, err)
				tt.check(t, cfg)
				return
			}

			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Equal(t, lkerrors.ErrCodeConfigInvalid, lkerrors.CodeOf(err))
			if tt.wantField != "" {
				var re *lkerrors.ReactorError
				require.ErrorAs(t, err, &re)
				assert.Contains(t, re.Context["fields"], tt.wantField)
			}
		})
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sampleConfig = `
theme:
  path: theme.toml
  watch: true
  debounce: 250ms
logging:
  level: warn
  format: json
inspector:
  host: 127.0.0.1
  port: 8123
  allowed_origins:
    - http://localhost:3000
locale:
  language: de
  catalogs:
    - language: fr
      messages:
        greeting: Bonjour
app:
  demo: number_input
  inbox_size: 8
`

func TestInitReadsExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "lenskit.yml", sampleConfig)

	v := viper.New()
	require.NoError(t, Init(v, path))
	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, "theme.toml", cfg.Theme.Path)
	assert.True(t, cfg.Theme.Watch)
	assert.Equal(t, 250*time.Millisecond, cfg.Theme.Debounce)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "127.0.0.1", cfg.Inspector.Host)
	assert.Equal(t, 8123, cfg.Inspector.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Inspector.AllowedOrigins)
	assert.Equal(t, "de", cfg.Locale.Language)
	require.Len(t, cfg.Locale.Catalogs, 1)
	assert.Equal(t, "fr", cfg.Locale.Catalogs[0].Language)
	assert.Equal(t, "number_input", cfg.App.Demo)
	assert.Equal(t, 8, cfg.App.InboxSize)
	assert.Equal(t, 16*time.Millisecond, cfg.App.TickInterval)
}

func TestInitMissingFiles(t *testing.T) {
	t.Chdir(t.TempDir())

	require.NoError(t, Init(viper.New(), ""), "a missing default file is fine")

	err := Init(viper.New(), filepath.Join(t.TempDir(), "absent.yml"))
	require.Error(t, err)
	assert.Equal(t, lkerrors.ErrCodeConfigInvalid, lkerrors.CodeOf(err))
}

func TestInitMalformedFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.yml", "inspector: [unclosed")
	err := Init(viper.New(), path)
	require.Error(t, err)
	assert.Equal(t, lkerrors.ErrCodeConfigInvalid, lkerrors.CodeOf(err))
}

func TestInitDefaultFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, dir, ".lenskit.yml", "app:\n  demo: static_list\n")
	t.Setenv("LENSKIT_INSPECTOR_PORT", "9100")
	t.Setenv("LENSKIT_LOGGING_LEVEL", "debug")

	v := viper.New()
	require.NoError(t, Init(v, ""))
	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, "static_list", cfg.App.Demo)
	assert.Equal(t, 9100, cfg.Inspector.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestInitConfigFileEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeFile(t, t.TempDir(), "custom.yml", "inspector:\n  port: 9200\n")
	t.Setenv(EnvConfigFile, path)

	v := viper.New()
	require.NoError(t, Init(v, ""))
	assert.Equal(t, path, v.ConfigFileUsed())

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, 9200, cfg.Inspector.Port)
}

func TestValidateWithDetails(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *Config)
		errors   []string
		warnings []string
	}{
		{name: "default", mutate: func(c *Config) {}},
		{
			name:     "privileged port",
			mutate:   func(c *Config) { c.Inspector.Port = 80 },
			warnings: []string{"inspector.port"},
		},
		{
			name:   "port out of range",
			mutate: func(c *Config) { c.Inspector.Port = 70000 },
			errors: []string{"inspector.port"},
		},
		{
			name:     "all interfaces",
			mutate:   func(c *Config) { c.Inspector.Host = "0.0.0.0" },
			warnings: []string{"inspector.host"},
		},
		{
			name:   "dangerous host",
			mutate: func(c *Config) { c.Inspector.Host = "host;rm -rf /" },
			errors: []string{"inspector.host"},
		},
		{
			name:   "bad origin",
			mutate: func(c *Config) { c.Inspector.AllowedOrigins = []string{"ftp://x", "http://ok:1"} },
			errors: []string{"inspector.allowed_origins[0]"},
		},
		{
			name:   "theme extension",
			mutate: func(c *Config) { c.Theme.Path = "theme.json" },
			errors: []string{"theme.path"},
		},
		{
			name:     "watch without path",
			mutate:   func(c *Config) { c.Theme.Watch = true },
			warnings: []string{"theme.watch"},
		},
		{
			name: "several",
			mutate: func(c *Config) {
				c.App.InboxSize = -1
				c.App.TickInterval = -time.Second
				c.Locale.Language = "not a tag"
				c.Logging.Format = "xml"
			},
			errors: []string{"logging.format", "locale.language", "app.tick_interval", "app.inbox_size"},
		},
	}

	fields := func(issues []ValidationError) []string {
		var out []string
		for _, i := range issues {
			out = append(out, i.Field)
		}
		return out
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			result := cfg.ValidateWithDetails()
			assert.Equal(t, tt.errors, fields(result.Errors))
			assert.Equal(t, tt.warnings, fields(result.Warnings))
			assert.Equal(t, len(tt.errors) > 0, cfg.Validate() != nil)
		})
	}
}

func TestValidationResultString(t *testing.T) {
	cfg := Default()
	cfg.Inspector.Format = "xml"
	cfg.Inspector.Port = 443

	out := cfg.ValidateWithDetails().String()
	assert.Contains(t, out, "Errors:")
	assert.Contains(t, out, "inspector.format")
	assert.Contains(t, out, "Use json or cbor")
	assert.Contains(t, out, "Warnings:")

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, lkerrors.FormatSuggestions(err.Error(), lkerrors.Suggest(err, nil)), "lenskit config")
}

func TestLoggerConfig(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "warn"
	cfg.Logging.Format = "json"

	lc, err := cfg.LoggerConfig()
	require.NoError(t, err)
	assert.Equal(t, logging.LevelWarn, lc.Level)
	assert.Equal(t, "json", lc.Format)

	var out bytes.Buffer
	l, closer, err := cfg.Logger(&out)
	require.NoError(t, err)
	assert.Nil(t, closer)
	l.Warn(context.Background(), nil, "console only")
	assert.Contains(t, out.String(), `"msg":"console only"`)

	cfg.Logging.Level = "loud"
	_, _, err = cfg.Logger(nil)
	assert.Error(t, err)
}

func TestLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lenskit.log")
	cfg := Default()
	cfg.Logging.File = path
	cfg.Logging.Format = "text"

	var out bytes.Buffer
	l, closer, err := cfg.Logger(&out)
	require.NoError(t, err)
	require.NotNil(t, closer)

	l.Info(context.Background(), "mounted", "demo", "counter")
	require.NoError(t, closer.Close())

	assert.Contains(t, out.String(), "msg=mounted")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"mounted"`)
	assert.Contains(t, string(data), `"demo":"counter"`)

	cfg.Logging.File = filepath.Join(t.TempDir(), "missing", "lenskit.log")
	_, _, err = cfg.Logger(nil)
	assert.Error(t, err)
	assert.True(t, cfg.ValidateWithDetails().HasErrors())
}

func TestLoadTheme(t *testing.T) {
	cfg := Default()
	theme, err := cfg.LoadTheme()
	require.NoError(t, err)
	assert.Equal(t, "default", theme.Name)

	dir := t.TempDir()
	cfg.Theme.Path = writeFile(t, dir, "dark.yml", "name: dark\nrules:\n  - selector: label\n    properties:\n      color: \"#ffffff\"\n")
	theme, err = cfg.LoadTheme()
	require.NoError(t, err)
	assert.Equal(t, "dark", theme.Name)

	cfg.Theme.Path = filepath.Join(dir, "missing.yml")
	_, err = cfg.LoadTheme()
	assert.Equal(t, lkerrors.ErrCodeThemeInvalid, lkerrors.CodeOf(err))
}

func TestLocalizer(t *testing.T) {
	cfg := Default()
	cfg.Locale.Language = "de"
	cfg.Locale.Catalogs = []Catalog{
		{Language: "de", Messages: map[string]string{"counter.increment": "Mehr"}},
		{Language: "de", Messages: map[string]string{"greeting": "Hallo"}},
	}

	l, err := cfg.Localizer()
	require.NoError(t, err)
	assert.Equal(t, "Mehr", l.Localize("counter.increment"))
	assert.Equal(t, "Verringern", l.Localize("counter.decrement"))
	assert.Equal(t, "Hallo", l.Localize("greeting"))
}
