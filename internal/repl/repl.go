// Package repl drives an app from a line-oriented prompt. Each command
// posts messages and steps the app synchronously, so the session goroutine
// owns the app's context.
package repl

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/conneroisu/lenskit/internal/app"
	"github.com/conneroisu/lenskit/internal/demo"
	"github.com/conneroisu/lenskit/internal/entity"
	lkerrors "github.com/conneroisu/lenskit/internal/errors"
	"github.com/conneroisu/lenskit/internal/snapshot"
	"github.com/conneroisu/lenskit/internal/style"
)

// Session executes commands against one app.
type Session struct {
	app  *app.App
	demo demo.Demo
	out  io.Writer
}

// New creates a session writing its output to out.
func New(a *app.App, d demo.Demo, out io.Writer) *Session {
	return &Session{app: a, demo: d, out: out}
}

func (s *Session) completer() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("tree"),
		readline.PcItem("press"),
		readline.PcItem("key"),
		readline.PcItem("theme"),
		readline.PcItem("diag", readline.PcItem("clear")),
		readline.PcItem("snapshot", readline.PcItem("json"), readline.PcItem("cbor")),
		readline.PcItem("step"),
		readline.PcItem("quit"),
	)
}

// Run reads commands until EOF, quit or ctx is done.
func (s *Session) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          s.demo.Name + "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    s.completer(),
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	s.out = rl.Stdout()
	s.printHelp()
	PrintTree(s.out, s.app.Snapshot())

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			return nil
		}
		if s.Exec(line) {
			return nil
		}
	}
}

// Exec runs one command line and reports whether the session should end.
func (s *Session) Exec(line string) bool {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return false
	}
	cmd, args := strings.ToLower(parts[0]), parts[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()
	case "tree", "t":
		PrintTree(s.out, s.app.Snapshot())
	case "press", "p":
		s.cmdPress(args)
	case "key", "k":
		s.cmdKey(args)
	case "theme":
		s.cmdTheme(args)
	case "diag", "d":
		s.cmdDiag(args)
	case "snapshot":
		s.cmdSnapshot(args)
	case "step":
		s.step()
	case "quit", "exit", "q":
		fmt.Fprintln(s.out, "Exiting...")
		return true
	default:
		if s.demo.Parse == nil {
			fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
			return false
		}
		target, msg, ok := s.demo.Parse(s.app.Context(), cmd, args)
		if !ok {
			fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
			return false
		}
		s.post(target, msg)
	}
	return false
}

func (s *Session) printHelp() {
	fmt.Fprintf(s.out, `
%s commands:
  tree               - Print the entity tree
  press <id>         - Press an entity
  key <name>         - Send a demo key (%s)
  theme <file>       - Load a theme file
  diag [code|clear]  - Show diagnostics with hints, or clear them
  snapshot [json|cbor] - Print the current snapshot
  step               - Process pending messages
  quit               - Exit
`, s.demo.Name, strings.Join(s.keyNames(), " "))
	if s.demo.Description != "" {
		fmt.Fprintf(s.out, "\n%s; other commands go to the demo.\n", s.demo.Description)
	}
}

func (s *Session) keyNames() []string {
	names := make([]string, 0, len(s.demo.Keys))
	for k := range s.demo.Keys {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (s *Session) cmdPress(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: press <id>")
		return
	}
	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		fmt.Fprintf(s.out, "Invalid id: %s\n", args[0])
		return
	}
	if err := s.app.Press(entity.Entity(id)); err != nil {
		s.report(err)
		return
	}
	s.step()
}

func (s *Session) cmdKey(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: key <name>")
		return
	}
	msg, ok := s.demo.Keys[args[0]]
	if !ok {
		fmt.Fprintf(s.out, "Unknown key: %s\n", args[0])
		return
	}
	s.post(entity.Root, msg)
}

func (s *Session) cmdTheme(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: theme <file>")
		return
	}
	theme, err := style.LoadTheme(args[0])
	if err != nil {
		s.report(err)
		return
	}
	if err := s.app.ReloadTheme(theme); err != nil {
		s.report(err)
		return
	}
	s.step()
}

func (s *Session) cmdDiag(args []string) {
	diags := s.app.Context().Diagnostics()
	if !diags.HasErrors() {
		fmt.Fprintln(s.out, "No diagnostics")
		return
	}
	all := diags.GetDiagnostics()
	if len(args) > 0 {
		if strings.EqualFold(args[0], "clear") {
			diags.Clear()
			fmt.Fprintln(s.out, "Diagnostics cleared")
			s.step()
			return
		}
		all = diags.GetByCode(strings.ToUpper(args[0]))
		if len(all) == 0 {
			fmt.Fprintf(s.out, "No diagnostics with code %s\n", strings.ToUpper(args[0]))
			return
		}
	}
	for _, d := range all {
		s.report(d.Err)
	}
}

func (s *Session) cmdSnapshot(args []string) {
	snap := s.app.Snapshot()
	if snap == nil {
		fmt.Fprintln(s.out, "No snapshot yet")
		return
	}
	format := "json"
	if len(args) > 0 {
		format = strings.ToLower(args[0])
	}
	switch format {
	case "json":
		raw, err := snap.JSON()
		if err != nil {
			s.report(err)
			return
		}
		fmt.Fprintln(s.out, string(raw))
	case "cbor":
		raw, err := snap.CBOR()
		if err != nil {
			s.report(err)
			return
		}
		fmt.Fprintf(s.out, "%d bytes\n%s", len(raw), hex.Dump(raw))
	default:
		fmt.Fprintf(s.out, "Unknown format: %s (json, cbor)\n", format)
	}
}

func (s *Session) post(target entity.Entity, msg any) {
	if err := s.app.Post(target, msg); err != nil {
		s.report(err)
		return
	}
	s.step()
}

func (s *Session) step() {
	if err := s.app.Step(); err != nil {
		s.report(err)
	}
	PrintTree(s.out, s.app.Snapshot())
}

// report prints err with fix hints.
func (s *Session) report(err error) {
	var models []string
	if snap := s.app.Snapshot(); snap != nil {
		snap.Walk(func(n *snapshot.Node, _ int) bool {
			models = append(models, n.Models...)
			return true
		})
	}
	hints := lkerrors.Suggest(err, &lkerrors.SuggestionContext{Models: models})
	fmt.Fprintln(s.out, lkerrors.FormatSuggestions("Error: "+err.Error(), hints))
}
