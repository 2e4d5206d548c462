package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/lenskit/internal/config"
	lkerrors "github.com/conneroisu/lenskit/internal/errors"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgFile, configFile, configStrict = "", "", false
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func configFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lenskit.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersionCommand(t *testing.T) {
	t.Cleanup(func() { versionFormat, versionShort = "text", false })

	out, err := execute(t, "version", "--short")
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	versionShort = false
	out, err = execute(t, "version", "--format", "json")
	require.NoError(t, err)
	var info map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Contains(t, info, "go_version")
	assert.Contains(t, info, "platform")

	_, err = execute(t, "version", "--format", "xml")
	assert.Error(t, err)
}

func TestConfigShow(t *testing.T) {
	t.Cleanup(func() { configFormat = "yaml" })
	path := configFixture(t, "inspector:\n  port: 9300\napp:\n  demo: static_list\n")

	out, err := execute(t, "config", "show", "--format", "json", "--config", path)
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, 9300, cfg.Inspector.Port)
	assert.Equal(t, "static_list", cfg.App.Demo)
	assert.Equal(t, "json", cfg.Inspector.Format)

	out, err = execute(t, "config", "--format", "yaml", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "port: 9300")
	assert.Contains(t, out, "# Config file: "+path)
}

func TestConfigValidate(t *testing.T) {
	bad := configFixture(t, "inspector:\n  format: xml\n")
	out, err := execute(t, "config", "validate", "--file", bad)
	require.Error(t, err)
	assert.Contains(t, out, "inspector.format")
	assert.Equal(t, lkerrors.ErrCodeConfigInvalid, lkerrors.CodeOf(err))

	warn := configFixture(t, "inspector:\n  port: 80\n")
	out, err = execute(t, "config", "validate", "--file", warn)
	require.NoError(t, err)
	assert.Contains(t, out, "valid with 1 warnings")

	_, err = execute(t, "config", "validate", "--file", warn, "--strict")
	require.Error(t, err)

	good := configFixture(t, "app:\n  demo: counter\n")
	out, err = execute(t, "config", "validate", "--file", good)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid.")
}

func TestRunHeadless(t *testing.T) {
	path := configFixture(t, "app:\n  tick_interval: 5ms\nlogging:\n  level: off\n")

	out, err := execute(t, "run", "counter", "--events", "3", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"Count: 0"`)
	assert.Contains(t, out, "window #")
	assert.Contains(t, out, "models=demo.Counter")
}

func TestRunUnknownDemo(t *testing.T) {
	path := configFixture(t, "logging:\n  level: off\n")

	_, err := execute(t, "run", "nope", "--config", path)
	require.Error(t, err)
	assert.Equal(t, lkerrors.ErrCodeUnknownComponent, lkerrors.CodeOf(err))
}

func TestBadConfigFile(t *testing.T) {
	path := configFixture(t, "app: [unclosed")

	_, err := execute(t, "config", "show", "--config", path)
	require.Error(t, err)
	msg := formatError(err)
	assert.Contains(t, msg, "lenskit config")
	assert.Contains(t, msg, "\nCause: ")

	assert.NotContains(t, formatError(lkerrors.NewConfigError(lkerrors.ErrCodeConfigInvalid, "bad")), "Cause:")
}

func TestRunWritesLogFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "run.log")
	path := configFixture(t, "app:\n  tick_interval: 5ms\nlogging:\n  level: debug\n  file: "+logPath+"\n")

	_, err := execute(t, "run", "counter", "--events", "2", "--config", path)
	require.NoError(t, err)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"demo mounted"`)
	assert.Contains(t, string(data), `"demo":"counter"`)
}

func TestUnderscoreFlags(t *testing.T) {
	t.Cleanup(func() {
		configFormat = "yaml"
		f := rootCmd.PersistentFlags().Lookup("log-level")
		_ = f.Value.Set("info")
		f.Changed = false
	})
	path := configFixture(t, "logging:\n  level: error\n")

	out, err := execute(t, "config", "show", "--format", "json", "--config", path, "--log_level", "warn")
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "warn", cfg.Logging.Level)
}
