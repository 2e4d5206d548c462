package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"

	"github.com/conneroisu/lenskit/internal/demo"
	lkerrors "github.com/conneroisu/lenskit/internal/errors"
	"github.com/conneroisu/lenskit/internal/logging"
)

// ValidationError describes one invalid setting.
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder
	write := func(title string, issues []ValidationError) {
		if len(issues) == 0 {
			return
		}
		builder.WriteString(title + ":\n")
		for _, issue := range issues {
			builder.WriteString(fmt.Sprintf("  • %s: %s\n", issue.Field, issue.Message))
			for _, suggestion := range issue.Suggestions {
				builder.WriteString(fmt.Sprintf("    → %s\n", suggestion))
			}
		}
	}
	write("Errors", vr.Errors)
	write("Warnings", vr.Warnings)
	return builder.String()
}

func (vr *ValidationResult) fail(field string, value interface{}, msg string, suggestions ...string) {
	vr.Errors = append(vr.Errors, ValidationError{Field: field, Value: value, Message: msg, Suggestions: suggestions})
}

func (vr *ValidationResult) warn(field string, value interface{}, msg string, suggestions ...string) {
	vr.Warnings = append(vr.Warnings, ValidationError{Field: field, Value: value, Message: msg, Suggestions: suggestions})
}

// Validate returns a config ReactorError naming every invalid field, or nil.
func (c *Config) Validate() error {
	result := c.ValidateWithDetails()
	if !result.HasErrors() {
		return nil
	}

	fields := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		fields = append(fields, e.Field)
	}
	first := result.Errors[0]
	msg := first.Error()
	if len(result.Errors) > 1 {
		msg = fmt.Sprintf("%s (and %d more)", msg, len(result.Errors)-1)
	}
	return lkerrors.NewConfigError(lkerrors.ErrCodeConfigInvalid, msg).
		WithContext("fields", fields).
		WithContext("details", result.String())
}

// ValidateWithDetails checks every section and keeps warnings too.
func (c *Config) ValidateWithDetails() *ValidationResult {
	result := &ValidationResult{}
	validateTheme(&c.Theme, result)
	validateLogging(&c.Logging, result)
	validateInspector(&c.Inspector, result)
	validateLocale(&c.Locale, result)
	validateApp(&c.App, result)
	return result
}

func validateTheme(t *ThemeConfig, result *ValidationResult) {
	if t.Debounce < 0 {
		result.fail("theme.debounce", t.Debounce, "debounce cannot be negative", "Use a duration such as 100ms")
	}
	if t.Watch && t.Path == "" {
		result.warn("theme.watch", t.Watch, "watching is enabled but no theme path is set",
			"Set theme.path to a .yml or .toml file")
	}
	if t.Path != "" {
		switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(t.Path), ".")); ext {
		case "yml", "yaml", "toml":
		default:
			result.fail("theme.path", t.Path, fmt.Sprintf("unsupported theme format %q", ext),
				"Theme files end in .yml, .yaml or .toml")
		}
	}
}

func validateLogging(l *LoggingConfig, result *ValidationResult) {
	if _, err := logging.ParseLevel(l.Level); err != nil {
		result.fail("logging.level", l.Level, err.Error(), "Use debug, info, warn, error or off")
	}
	if l.Format != "text" && l.Format != "json" {
		result.fail("logging.format", l.Format, fmt.Sprintf("unknown log format %q", l.Format), "Use text or json")
	}
	if l.File != "" {
		if info, err := os.Stat(filepath.Dir(l.File)); err != nil || !info.IsDir() {
			result.fail("logging.file", l.File, "log file directory does not exist",
				"Create the directory or leave logging.file empty")
		}
	}
}

func validateInspector(i *InspectorConfig, result *ValidationResult) {
	if i.Port < 1 || i.Port > 65535 {
		result.fail("inspector.port", i.Port, fmt.Sprintf("port %d is not in valid range 1-65535", i.Port))
	} else if i.Port < 1024 {
		result.warn("inspector.port", i.Port, "port below 1024 requires elevated privileges",
			"Consider using a port above 1024 for development")
	}

	if err := validateHostname(i.Host); err != nil {
		result.fail("inspector.host", i.Host, err.Error(),
			"Use 'localhost' for local development",
			"Use a valid IP address or hostname")
	} else if i.Host == "0.0.0.0" || i.Host == "::" {
		result.warn("inspector.host", i.Host, "the inspector accepts presses from every interface")
	}

	for idx, origin := range i.AllowedOrigins {
		u, err := url.Parse(origin)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			result.fail(fmt.Sprintf("inspector.allowed_origins[%d]", idx), origin,
				"origin must be an http or https URL with a host",
				"Example: http://localhost:3000")
		}
	}

	if i.Format != "json" && i.Format != "cbor" {
		result.fail("inspector.format", i.Format, fmt.Sprintf("unknown snapshot format %q", i.Format), "Use json or cbor")
	}
}

func validateLocale(l *LocaleConfig, result *ValidationResult) {
	if _, err := language.Parse(l.Language); err != nil {
		result.fail("locale.language", l.Language, err.Error(), "Use a BCP 47 tag such as en or de")
	}
	for i, cat := range l.Catalogs {
		if _, err := language.Parse(cat.Language); err != nil {
			result.fail(fmt.Sprintf("locale.catalogs[%d].language", i), cat.Language, err.Error())
		}
	}
}

func validateApp(a *AppConfig, result *ValidationResult) {
	if _, err := demo.Lookup(a.Demo); err != nil {
		result.fail("app.demo", a.Demo, err.Error(), "Available demos: "+strings.Join(demo.Names(), ", "))
	}
	if a.TickInterval <= 0 {
		result.fail("app.tick_interval", a.TickInterval, "tick interval must be positive")
	}
	if a.InboxSize <= 0 {
		result.fail("app.inbox_size", a.InboxSize, "inbox size must be positive")
	}
}

// validateHostname rejects empty hosts and shell metacharacters.
func validateHostname(host string) error {
	if host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if strings.ContainsAny(host, ";&|$`()<>\"'\\ /\t\n\r") {
		return fmt.Errorf("host contains invalid characters")
	}
	if net.ParseIP(host) != nil {
		return nil
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" || len(label) > 63 {
			return fmt.Errorf("invalid hostname %q", host)
		}
	}
	return nil
}
