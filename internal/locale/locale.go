// Package locale translates view strings through golang.org/x/text message
// catalogs. Built-in English and German messages cover the demo
// applications; configuration can add languages or override keys.
package locale

import (
	"fmt"
	"sort"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	lkerrors "github.com/conneroisu/lenskit/internal/errors"
)

var builtin = map[string]map[string]string{
	"en": {
		"counter.increment": "Increment",
		"counter.decrement": "Decrement",
		"counter.value":     "Count: %d",
		"list.selected":     "You have selected: %d",
		"remove-bookmark":   "Remove bookmark %q",
		"number.label":      "Number: %d",
	},
	"de": {
		"counter.increment": "Erhöhen",
		"counter.decrement": "Verringern",
		"counter.value":     "Zähler: %d",
		"list.selected":     "Ausgewählt: %d",
		"remove-bookmark":   "Lesezeichen %q entfernen",
		"number.label":      "Zahl: %d",
	},
}

// Localizer formats message keys in one language.
type Localizer struct {
	tag     language.Tag
	printer *message.Printer
}

// New builds a localizer for lang. extra maps a language to key/message
// pairs and overrides built-in messages.
func New(lang string, extra map[string]map[string]string) (*Localizer, error) {
	tag, err := language.Parse(lang)
	if err != nil {
		return nil, lkerrors.WrapConfig(err, lkerrors.ErrCodeConfigInvalid, "invalid locale "+lang)
	}

	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for _, src := range []map[string]map[string]string{builtin, extra} {
		for _, l := range sortedKeys(src) {
			lt, err := language.Parse(l)
			if err != nil {
				return nil, lkerrors.WrapConfig(err, lkerrors.ErrCodeConfigInvalid, "invalid catalog language "+l)
			}
			for key, msg := range src[l] {
				if err := b.SetString(lt, key, msg); err != nil {
					return nil, lkerrors.WrapConfig(err, lkerrors.ErrCodeConfigInvalid,
						fmt.Sprintf("invalid message %s for %s", key, l))
				}
			}
		}
	}

	return &Localizer{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(b)),
	}, nil
}

// Default returns the English localizer.
func Default() *Localizer {
	l, err := New("en", nil)
	if err != nil {
		panic(err)
	}
	return l
}

// Language returns the active language tag.
func (l *Localizer) Language() language.Tag {
	return l.tag
}

// Localize formats key with args. Unknown keys are used as the format.
func (l *Localizer) Localize(key string, args ...any) string {
	return l.printer.Sprintf(key, args...)
}

// Title capitalizes s the way demo names are displayed.
func Title(s string) string {
	return cases.Title(language.English).String(s)
}

func sortedKeys(m map[string]map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
