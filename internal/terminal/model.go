package terminal

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/conneroisu/lenskit/internal/app"
	"github.com/conneroisu/lenskit/internal/entity"
	lkerrors "github.com/conneroisu/lenskit/internal/errors"
	"github.com/conneroisu/lenskit/internal/snapshot"
	"github.com/conneroisu/lenskit/internal/views"
)

// DefaultTick is the refresh interval when none is configured.
const DefaultTick = 100 * time.Millisecond

// tickMsg drives the app between key presses so posts from other goroutines
// such as theme reloads are applied.
type tickMsg time.Time

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171"))
)

// Model is the bubbletea model hosting an app. Update steps the app on the
// bubbletea goroutine, which therefore owns the app's context.
type Model struct {
	app   *app.App
	title string
	keys  map[string]any
	tick  time.Duration

	focus    int
	draft    *string
	status   string
	err      error
	width    int
	quitting bool
}

// New creates a model. keys maps key names to messages posted to the root.
func New(a *app.App, title string, keys map[string]any, tick time.Duration) Model {
	if tick <= 0 {
		tick = DefaultTick
	}
	return Model{app: a, title: title, keys: keys, tick: tick, focus: -1}
}

// Err returns the fatal error that ended the program, if any.
func (m Model) Err() error { return m.err }

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.tick, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init starts the refresh ticks.
func (m Model) Init() tea.Cmd {
	return m.tickCmd()
}

// focusable lists the nodes that take focus, in document order.
func focusable(s *snapshot.Snapshot) []uint32 {
	var ids []uint32
	if s == nil {
		return nil
	}
	s.Walk(func(n *snapshot.Node, _ int) bool {
		if n.Display != "none" && (n.Pressable || n.Element == "textbox") {
			ids = append(ids, n.ID)
		}
		return true
	})
	return ids
}

func (m Model) focused() (uint32, bool) {
	ids := focusable(m.app.Snapshot())
	if m.focus < 0 || m.focus >= len(ids) {
		return 0, false
	}
	return ids[m.focus], true
}

func (m Model) focusedNode() *snapshot.Node {
	id, ok := m.focused()
	if !ok {
		return nil
	}
	return m.app.Snapshot().Find(id)
}

// Update handles keys and ticks.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		m = m.step()
		if m.quitting {
			return m, tea.Quit
		}
		return m, m.tickCmd()

	case tea.KeyMsg:
		m = m.key(msg)
		if m.quitting {
			return m, tea.Quit
		}
		return m, nil
	}
	return m, nil
}

func (m Model) key(msg tea.KeyMsg) Model {
	k := msg.String()
	if k == "ctrl+c" {
		m.quitting = true
		return m
	}

	if m.draft != nil {
		return m.edit(msg)
	}

	switch k {
	case "q", "esc":
		m.quitting = true
		return m
	case "tab":
		m.focus = m.cycle(1)
		return m
	case "shift+tab":
		m.focus = m.cycle(-1)
		return m
	case "enter", " ":
		return m.activate()
	}

	if ev, ok := m.keys[k]; ok {
		m = m.post(entity.Root, ev)
		return m.step()
	}
	return m
}

func (m Model) cycle(dir int) int {
	n := len(focusable(m.app.Snapshot()))
	if n == 0 {
		return -1
	}
	if m.focus < 0 {
		if dir > 0 {
			return 0
		}
		return n - 1
	}
	return ((m.focus+dir)%n + n) % n
}

func (m Model) activate() Model {
	n := m.focusedNode()
	if n == nil {
		return m
	}
	if n.Element == "textbox" {
		draft := n.Text
		m.draft = &draft
		m.status = "editing: enter to submit, esc to cancel"
		return m
	}
	if err := m.app.Press(entity.Entity(n.ID)); err != nil {
		m.status = err.Error()
		return m
	}
	return m.step()
}

func (m Model) edit(msg tea.KeyMsg) Model {
	switch msg.Type {
	case tea.KeyEsc:
		m.draft = nil
		m.status = ""
	case tea.KeyEnter:
		id, ok := m.focused()
		text := *m.draft
		m.draft = nil
		m.status = ""
		if ok {
			m = m.post(entity.Entity(id), views.Edit{Text: text})
			m = m.step()
		}
	case tea.KeyBackspace:
		if r := []rune(*m.draft); len(r) > 0 {
			s := string(r[:len(r)-1])
			m.draft = &s
		}
	case tea.KeyRunes, tea.KeySpace:
		s := *m.draft + string(msg.Runes)
		m.draft = &s
	}
	return m
}

func (m Model) post(target entity.Entity, msg any) Model {
	if err := m.app.Post(target, msg); err != nil {
		m.status = err.Error()
	}
	return m
}

func (m Model) step() Model {
	if err := m.app.Step(); err != nil {
		if lkerrors.IsFatal(err) {
			m.err = err
			m.quitting = true
		}
		m.status = err.Error()
	}
	if ids := focusable(m.app.Snapshot()); m.focus >= len(ids) {
		m.focus = len(ids) - 1
	}
	return m
}

// View draws the title, the tree and a status line.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	r := Renderer{Draft: m.draft}
	if id, ok := m.focused(); ok {
		r.Focus, r.HasFocus = id, true
	}
	body := r.Render(m.app.Snapshot())
	if m.width > 0 {
		body = lipgloss.NewStyle().MaxWidth(m.width).Render(body)
	}

	status := m.status
	if status == "" {
		status = "tab: focus  enter: press  q: quit"
	}
	style := statusStyle
	if m.err != nil {
		style = errorStyle
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(m.title),
		"",
		body,
		"",
		style.Render(status),
	)
}

// Run runs m full screen until the user quits or ctx is done.
func Run(ctx context.Context, m Model, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)
	final, err := tea.NewProgram(m, opts...).Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(Model); ok {
		return fm.Err()
	}
	return nil
}
