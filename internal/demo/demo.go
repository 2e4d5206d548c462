// Package demo holds the example applications shipped with the CLI. Each
// demo attaches its models at the root and declares its views; hosts drive
// it through events.
package demo

import (
	"sort"

	"github.com/conneroisu/lenskit/internal/entity"
	lkerrors "github.com/conneroisu/lenskit/internal/errors"
	"github.com/conneroisu/lenskit/internal/state"
)

// Demo is a runnable application.
type Demo struct {
	Name        string
	Description string
	Build       func(cx *state.Context)
	// Keys maps a key name to the message a host posts to the root when
	// the key is pressed.
	Keys map[string]any
	// Parse turns a REPL command into a message and the node to send it
	// to, or reports false.
	Parse func(cx *state.Context, cmd string, args []string) (entity.Entity, any, bool)
}

var registry = map[string]Demo{}

func register(d Demo) {
	registry[d.Name] = d
}

// Lookup returns the demo called name.
func Lookup(name string) (Demo, error) {
	d, ok := registry[name]
	if !ok {
		return Demo{}, lkerrors.NewConfigError(lkerrors.ErrCodeUnknownComponent, "unknown demo: "+name).
			WithContext("available", Names())
	}
	return d, nil
}

// Names lists the demo names in order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// FindElement returns the first node, in document order, whose element name
// is name.
func FindElement(cx *state.Context, name string) (entity.Entity, bool) {
	var walk func(e entity.Entity) (entity.Entity, bool)
	walk = func(e entity.Entity) (entity.Entity, bool) {
		if cx.Element(e) == name {
			return e, true
		}
		for _, c := range cx.Tree().Children(e) {
			if found, ok := walk(c); ok {
				return found, true
			}
		}
		return entity.Null, false
	}
	return walk(entity.Root)
}
