// Package app hosts a state.Context on a single goroutine. Other goroutines
// talk to it by posting messages into a bounded inbox and observe it through
// snapshots published after every processed batch.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/conneroisu/lenskit/internal/entity"
	lkerrors "github.com/conneroisu/lenskit/internal/errors"
	"github.com/conneroisu/lenskit/internal/logging"
	"github.com/conneroisu/lenskit/internal/snapshot"
	"github.com/conneroisu/lenskit/internal/state"
	"github.com/conneroisu/lenskit/internal/style"
)

const (
	DefaultInboxSize = 256

	subscriberBuffer = 1
)

// Tick is emitted to the root once per tick interval.
type Tick struct {
	Frame uint64
	At    time.Time
}

type message struct {
	target entity.Entity
	msg    any
	press  bool
	theme  *style.Theme
}

// App owns a context and the loop that drives it.
type App struct {
	cx      *state.Context
	logger  logging.Logger
	handler *lkerrors.ErrorHandler

	inbox chan message
	tick  time.Duration
	frame uint64

	mu     sync.RWMutex
	latest *snapshot.Snapshot

	subsMu  sync.Mutex
	subs    map[int]chan *snapshot.Snapshot
	nextSub int
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger used for loop errors.
func WithLogger(l logging.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l.WithComponent("app")
		}
	}
}

// WithTickInterval enables Tick messages. Zero disables them.
func WithTickInterval(d time.Duration) Option {
	return func(a *App) { a.tick = d }
}

// WithInboxSize bounds the number of messages waiting for the loop.
func WithInboxSize(n int) Option {
	return func(a *App) {
		if n > 0 {
			a.inbox = make(chan message, n)
		}
	}
}

// New wraps cx, which must already be mounted, and publishes its first
// snapshot.
func New(cx *state.Context, opts ...Option) *App {
	a := &App{
		cx:     cx,
		logger: logging.NewNop(),
		inbox:  make(chan message, DefaultInboxSize),
		subs:   make(map[int]chan *snapshot.Snapshot),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.handler = lkerrors.NewErrorHandler(a.logger)
	a.publish()
	return a
}

// Context returns the hosted context. Only the goroutine running the loop
// may use it.
func (a *App) Context() *state.Context { return a.cx }

// Post queues msg for target. It never blocks; a full inbox is an error.
func (a *App) Post(target entity.Entity, msg any) error {
	return a.enqueue(message{target: target, msg: msg})
}

// Press queues a press on target.
func (a *App) Press(target entity.Entity) error {
	return a.enqueue(message{target: target, press: true})
}

// ReloadTheme swaps the theme on the loop goroutine.
func (a *App) ReloadTheme(t *style.Theme) error {
	if t == nil {
		return lkerrors.NewConfigError(lkerrors.ErrCodeThemeInvalid, "nil theme")
	}
	return a.enqueue(message{target: entity.Null, theme: t})
}

func (a *App) enqueue(m message) error {
	select {
	case a.inbox <- m:
		return nil
	default:
		return lkerrors.NewInternalError(lkerrors.ErrCodeInboxFull, "inbox full", nil).
			WithContext("capacity", cap(a.inbox))
	}
}

func (a *App) apply(m message) {
	switch {
	case m.theme != nil:
		a.cx.SetTheme(m.theme)
		a.logger.Info(context.Background(), "theme reloaded", "theme", m.theme.Name)
	case m.press:
		a.cx.Press(m.target)
	default:
		a.cx.EmitTo(m.target, m.msg)
	}
}

// Step applies every queued message, processes the resulting events and
// publishes a snapshot. It is the synchronous form of one loop iteration,
// for hosts that already own the context's goroutine.
func (a *App) Step() error {
	for {
		select {
		case m := <-a.inbox:
			a.apply(m)
		default:
			return a.process()
		}
	}
}

func (a *App) process() error {
	err := a.cx.ProcessEvents()
	a.frame++
	a.publish()
	return err
}

// Run drives the loop until ctx is done or processing fails with a fatal
// error. Recoverable failures are logged and the loop continues.
func (a *App) Run(ctx context.Context) error {
	var ticks <-chan time.Time
	if a.tick > 0 {
		ticker := time.NewTicker(a.tick)
		defer ticker.Stop()
		ticks = ticker.C
	}

	a.logger.Info(ctx, "app loop started", "tick", a.tick.String())
	defer a.logger.Info(ctx, "app loop stopped", "frames", a.frame)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m := <-a.inbox:
			a.apply(m)
		case now := <-ticks:
			a.cx.EmitTo(entity.Root, Tick{Frame: a.frame, At: now})
		}

		if err := a.Step(); err != nil {
			a.handler.Handle(ctx, err)
			if lkerrors.IsFatal(err) {
				return err
			}
		}
	}
}

// Frame returns the number of processed batches.
func (a *App) Frame() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.latest == nil {
		return 0
	}
	return a.latest.Frame
}

// Snapshot returns the most recently published snapshot.
func (a *App) Snapshot() *snapshot.Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.latest
}

// Subscribe returns a channel receiving every published snapshot and a
// function ending the subscription. A slow subscriber only sees the newest
// snapshot.
func (a *App) Subscribe() (<-chan *snapshot.Snapshot, func()) {
	ch := make(chan *snapshot.Snapshot, subscriberBuffer)

	a.subsMu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = ch
	if s := a.Snapshot(); s != nil {
		ch <- s
	}
	a.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.subsMu.Lock()
			delete(a.subs, id)
			a.subsMu.Unlock()
			close(ch)
		})
	}
}

func (a *App) publish() {
	s := snapshot.Capture(a.cx, a.frame)

	a.mu.Lock()
	a.latest = s
	a.mu.Unlock()

	a.subsMu.Lock()
	defer a.subsMu.Unlock()
	for _, ch := range a.subs {
		select {
		case ch <- s:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- s
		}
	}
}
