// Package config loads lenskit settings with Viper from a YAML file,
// LENSKIT_ environment variables and command-line flags.
//
// Every key has a default, so a missing file is not an error. Keys are
// addressed as section.option (inspector.port) and map to environment
// variables as LENSKIT_SECTION_OPTION (LENSKIT_INSPECTOR_PORT).
package config

import (
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	lkerrors "github.com/conneroisu/lenskit/internal/errors"
	"github.com/conneroisu/lenskit/internal/locale"
	"github.com/conneroisu/lenskit/internal/logging"
	"github.com/conneroisu/lenskit/internal/style"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "LENSKIT"
	// EnvConfigFile names the variable holding a config file path.
	EnvConfigFile = "LENSKIT_CONFIG_FILE"
	// DefaultName is the config file looked up in the working directory.
	DefaultName = ".lenskit"
)

type Config struct {
	Theme     ThemeConfig     `yaml:"theme" mapstructure:"theme"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	Inspector InspectorConfig `yaml:"inspector" mapstructure:"inspector"`
	Locale    LocaleConfig    `yaml:"locale" mapstructure:"locale"`
	App       AppConfig       `yaml:"app" mapstructure:"app"`
}

type ThemeConfig struct {
	// Path is a YAML or TOML theme file. Empty uses the built-in theme.
	Path     string        `yaml:"path" mapstructure:"path"`
	Watch    bool          `yaml:"watch" mapstructure:"watch"`
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	// File receives a JSON copy of every record, next to the console output.
	File string `yaml:"file" mapstructure:"file"`
}

type InspectorConfig struct {
	Host           string   `yaml:"host" mapstructure:"host"`
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	Format         string   `yaml:"format" mapstructure:"format"`
}

type LocaleConfig struct {
	Language string    `yaml:"language" mapstructure:"language"`
	Catalogs []Catalog `yaml:"catalogs" mapstructure:"catalogs"`
}

// Catalog adds or overrides messages for one language. Catalogs are a list
// because viper would split dotted message keys in a map.
type Catalog struct {
	Language string            `yaml:"language" mapstructure:"language"`
	Messages map[string]string `yaml:"messages" mapstructure:"messages"`
}

type AppConfig struct {
	Demo         string        `yaml:"demo" mapstructure:"demo"`
	TickInterval time.Duration `yaml:"tick_interval" mapstructure:"tick_interval"`
	InboxSize    int           `yaml:"inbox_size" mapstructure:"inbox_size"`
}

var defaults = map[string]interface{}{
	"theme.path":                "",
	"theme.watch":               false,
	"theme.debounce":            "100ms",
	"logging.level":             "info",
	"logging.format":            "text",
	"logging.file":              "",
	"inspector.host":            "localhost",
	"inspector.port":            7777,
	"inspector.allowed_origins": []string{},
	"inspector.format":          "json",
	"locale.language":           "en",
	"app.demo":                  "counter",
	"app.tick_interval":         "16ms",
	"app.inbox_size":            256,
}

// SetDefaults registers every known key on v so environment variables can
// override keys that appear in no file.
func SetDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// Init points v at a config file and enables LENSKIT_ environment
// overrides. An explicit file wins over LENSKIT_CONFIG_FILE, which wins over
// .lenskit.yml in the working directory. A missing default file is not an
// error; a missing or malformed explicit file is.
func Init(v *viper.Viper, file string) error {
	explicit := true
	switch {
	case file != "":
		v.SetConfigFile(file)
	case os.Getenv(EnvConfigFile) != "":
		v.SetConfigFile(os.Getenv(EnvConfigFile))
	default:
		explicit = false
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(DefaultName)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !explicit && errors.As(err, &notFound) {
			return nil
		}
		return lkerrors.WrapConfig(err, lkerrors.ErrCodeConfigInvalid, "reading config file").
			WithContext("file", v.ConfigFileUsed())
	}
	return nil
}

// Load reads the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom resolves v and validates the result.
func LoadFrom(v *viper.Viper) (*Config, error) {
	cfg, err := Resolve(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolve unmarshals v and fills zero values with defaults without
// validating.
func Resolve(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, lkerrors.WrapConfig(err, lkerrors.ErrCodeConfigInvalid, "decoding configuration")
	}

	// The log-level flag is bound at the top level.
	if v.IsSet("log-level") {
		cfg.Logging.Level = v.GetString("log-level")
	}
	// A comma separated env value can decode to nothing when the key has a
	// slice default.
	if v.IsSet("inspector.allowed_origins") && len(cfg.Inspector.AllowedOrigins) == 0 {
		cfg.Inspector.AllowedOrigins = v.GetStringSlice("inspector.allowed_origins")
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Theme.Debounce == 0 {
		c.Theme.Debounce = 100 * time.Millisecond
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Inspector.Host == "" {
		c.Inspector.Host = "localhost"
	}
	if c.Inspector.Port == 0 {
		c.Inspector.Port = 7777
	}
	if len(c.Inspector.AllowedOrigins) == 0 {
		c.Inspector.AllowedOrigins = nil
	}
	if c.Inspector.Format == "" {
		c.Inspector.Format = "json"
	}
	if c.Locale.Language == "" {
		c.Locale.Language = "en"
	}
	if c.App.Demo == "" {
		c.App.Demo = "counter"
	}
	if c.App.TickInterval == 0 {
		c.App.TickInterval = 16 * time.Millisecond
	}
	if c.App.InboxSize == 0 {
		c.App.InboxSize = 256
	}
}

// LoggerConfig converts the logging section.
func (c *Config) LoggerConfig() (*logging.LoggerConfig, error) {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, lkerrors.WrapConfig(err, lkerrors.ErrCodeConfigInvalid, "logging.level")
	}
	lc := logging.DefaultConfig()
	lc.Level = level
	lc.Format = c.Logging.Format
	return lc, nil
}

// Logger builds the logger described by the logging section. A non-nil
// output replaces stderr. When logging.file is set records are also
// appended to that file as JSON and the returned closer releases it; the
// closer is nil otherwise.
func (c *Config) Logger(output io.Writer) (logging.Logger, io.Closer, error) {
	lc, err := c.LoggerConfig()
	if err != nil {
		return nil, nil, err
	}
	if output != nil {
		lc.Output = output
	}
	console := logging.NewLogger(lc)
	if c.Logging.File == "" {
		return console, nil, nil
	}

	f, err := os.OpenFile(c.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, lkerrors.WrapIO(err, lkerrors.ErrCodeConfigInvalid, "opening log file").
			WithContext("file", c.Logging.File)
	}
	file := logging.NewLogger(&logging.LoggerConfig{
		Level:     lc.Level,
		Format:    "json",
		Output:    f,
		Component: lc.Component,
	})
	return logging.NewMultiLogger(console, file), f, nil
}

// LoadTheme returns the configured theme, or the built-in one when no path
// is set.
func (c *Config) LoadTheme() (*style.Theme, error) {
	if c.Theme.Path == "" {
		return style.DefaultTheme(), nil
	}
	return style.LoadTheme(c.Theme.Path)
}

// Localizer builds the translator for the locale section.
func (c *Config) Localizer() (*locale.Localizer, error) {
	extra := make(map[string]map[string]string, len(c.Locale.Catalogs))
	for _, cat := range c.Locale.Catalogs {
		if extra[cat.Language] == nil {
			extra[cat.Language] = make(map[string]string, len(cat.Messages))
		}
		for k, v := range cat.Messages {
			extra[cat.Language][k] = v
		}
	}
	return locale.New(c.Locale.Language, extra)
}
