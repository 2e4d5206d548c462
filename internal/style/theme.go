package style

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	lkerrors "github.com/conneroisu/lenskit/internal/errors"
)

// Rule is one selector with its properties. Supported selectors are an
// element name ("label"), a class (".selected") or both ("label.selected").
// The stylesheet grammar itself is parsed elsewhere; themes only carry
// already-split rules.
type Rule struct {
	Selector   string            `yaml:"selector" toml:"selector"`
	Properties map[string]string `yaml:"properties" toml:"properties"`
}

// Theme is the default stylesheet handed to the root context.
type Theme struct {
	Name  string `yaml:"name" toml:"name"`
	Rules []Rule `yaml:"rules" toml:"rules"`
}

// DefaultTheme is used when no theme file is configured.
func DefaultTheme() *Theme {
	return &Theme{
		Name: "default",
		Rules: []Rule{
			{Selector: "label", Properties: map[string]string{"color": "#d0d0d0"}},
			{Selector: "button", Properties: map[string]string{"color": "#ffffff", "background-color": "#3a6ea5"}},
			{Selector: ".checked", Properties: map[string]string{"color": "#7fd962"}},
			{Selector: "label.list_item", Properties: map[string]string{"padding": "2px"}},
		},
	}
}

// LoadTheme reads a YAML (.yml, .yaml) or TOML (.toml) theme file.
func LoadTheme(path string) (*Theme, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, lkerrors.WrapIO(err, lkerrors.ErrCodeThemeInvalid, "reading theme "+path)
	}
	return ParseTheme(raw, strings.TrimPrefix(filepath.Ext(path), "."))
}

// ParseTheme decodes a theme in the given format ("yaml", "yml" or "toml").
func ParseTheme(raw []byte, format string) (*Theme, error) {
	var t Theme
	switch strings.ToLower(format) {
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&t); err != nil {
			return nil, lkerrors.WrapConfig(err, lkerrors.ErrCodeThemeInvalid, "decoding YAML theme")
		}
	case "toml":
		md, err := toml.Decode(string(raw), &t)
		if err != nil {
			return nil, lkerrors.WrapConfig(err, lkerrors.ErrCodeThemeInvalid, "decoding TOML theme")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, lkerrors.NewConfigError(lkerrors.ErrCodeThemeInvalid,
				fmt.Sprintf("unknown theme keys: %v", undecoded))
		}
	default:
		return nil, lkerrors.NewConfigError(lkerrors.ErrCodeThemeInvalid, "unsupported theme format: "+format)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks every selector.
func (t *Theme) Validate() error {
	for i, r := range t.Rules {
		if _, _, err := parseSelector(r.Selector); err != nil {
			return lkerrors.WrapConfig(err, lkerrors.ErrCodeThemeInvalid, fmt.Sprintf("rule %d", i))
		}
	}
	return nil
}

func parseSelector(sel string) (element, class string, err error) {
	sel = strings.TrimSpace(sel)
	if sel == "" || strings.ContainsAny(sel, " >+~#[]:*") {
		return "", "", fmt.Errorf("unsupported selector %q", sel)
	}
	element, class, _ = strings.Cut(sel, ".")
	if strings.Contains(class, ".") {
		return "", "", fmt.Errorf("unsupported selector %q", sel)
	}
	return element, class, nil
}

// specificity orders element < class < element.class.
func specificity(element, class string) int {
	s := 0
	if element != "" {
		s++
	}
	if class != "" {
		s += 2
	}
	return s
}

// Resolve returns the properties applying to an entity with the given
// element name and classes. More specific rules win; among equally specific
// rules the later one wins.
func (t *Theme) Resolve(element string, classes []string) map[string]string {
	type match struct {
		spec, order int
		props       map[string]string
	}
	var matches []match
	for i, r := range t.Rules {
		el, cl, err := parseSelector(r.Selector)
		if err != nil {
			continue
		}
		if el != "" && el != element {
			continue
		}
		if cl != "" && !slices.Contains(classes, cl) {
			continue
		}
		matches = append(matches, match{spec: specificity(el, cl), order: i, props: r.Properties})
	}
	slices.SortStableFunc(matches, func(a, b match) int {
		if a.spec != b.spec {
			return a.spec - b.spec
		}
		return a.order - b.order
	})

	out := make(map[string]string)
	for _, m := range matches {
		for k, v := range m.props {
			out[k] = v
		}
	}
	return out
}
