// Package inspector serves a live view of an app's entity tree over HTTP.
// Browsers receive snapshots over a websocket and can press entities.
package inspector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/lenskit/internal/app"
	"github.com/conneroisu/lenskit/internal/entity"
	lkerrors "github.com/conneroisu/lenskit/internal/errors"
	"github.com/conneroisu/lenskit/internal/logging"
	"github.com/conneroisu/lenskit/internal/snapshot"
	"github.com/conneroisu/lenskit/internal/version"
)

const (
	FormatJSON = "json"
	FormatCBOR = "cbor"
)

// Config holds the listener and encoding settings.
type Config struct {
	Host           string
	Port           int
	AllowedOrigins []string
	Format         string
	Title          string
}

// Server is the inspector HTTP server.
type Server struct {
	cfg    Config
	app    *app.App
	hub    *hub
	logger logging.Logger

	serverMutex sync.RWMutex
	httpServer  *http.Server
	listener    net.Listener
}

// Update is the JSON message pushed to clients for every snapshot.
type Update struct {
	Type      string             `json:"type"`
	Frame     uint64             `json:"frame"`
	HTML      string             `json:"html"`
	Snapshot  *snapshot.Snapshot `json:"snapshot"`
	Timestamp time.Time          `json:"timestamp"`
}

// Command is a message sent by a client.
type Command struct {
	Type string `json:"type"`
	ID   uint32 `json:"id,omitempty"`
}

type reply struct {
	Type    string `json:"type"`
	Client  string `json:"client,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// New creates a server for a. A nil logger discards output.
func New(cfg Config, a *app.App, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.Format == "" {
		cfg.Format = FormatJSON
	}
	if cfg.Title == "" {
		cfg.Title = "lenskit inspector"
	}
	logger = logger.WithComponent("inspector")
	s := &Server{cfg: cfg, app: a, hub: newHub(logger), logger: logger}
	s.hub.commands = s.handleCommand
	return s
}

// Handler returns the routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/api/snapshot", s.cors(http.HandlerFunc(s.handleSnapshot)))
	mux.Handle("/api/press", s.cors(http.HandlerFunc(s.handlePress)))
	return chain(mux, s.recoverPanics, s.logRequests, securityHeaders)
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return lkerrors.WrapIO(err, lkerrors.ErrCodeConfigInvalid, "listening on "+addr)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.run(ctx)

	s.serverMutex.Lock()
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn(shutdownCtx, err, "inspector shutdown")
		}
	}()

	s.logger.Info(ctx, "inspector listening", "addr", ln.Addr().String())
	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("inspector server: %w", err)
	}
	return nil
}

// Addr returns the bound address once serving.
func (s *Server) Addr() string {
	s.serverMutex.RLock()
	defer s.serverMutex.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int { return s.hub.Clients() }

// run starts the hub and the snapshot forwarder.
func (s *Server) run(ctx context.Context) {
	go s.hub.run(ctx)

	updates, cancel := s.app.Subscribe()
	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-updates:
				if !ok {
					return
				}
				f, err := s.encode(snap)
				if err != nil {
					s.logger.Error(ctx, err, "encoding snapshot", "frame", snap.Frame)
					continue
				}
				s.hub.publish(f)
			}
		}
	}()
}

func (s *Server) encode(snap *snapshot.Snapshot) (frame, error) {
	tree, err := RenderTree(snap)
	if err != nil {
		return frame{}, err
	}
	j, err := json.Marshal(Update{
		Type:      "snapshot",
		Frame:     snap.Frame,
		HTML:      tree,
		Snapshot:  snap,
		Timestamp: time.Now(),
	})
	if err != nil {
		return frame{}, err
	}
	c, err := snap.CBOR()
	if err != nil {
		return frame{}, err
	}
	return frame{json: j, cbor: c}, nil
}

func (s *Server) handleCommand(ctx context.Context, c *client, raw []byte) {
	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		c.reply(reply{Type: "error", Message: "malformed command"})
		return
	}
	switch cmd.Type {
	case "press":
		if err := s.app.Press(entity.Entity(cmd.ID)); err != nil {
			s.logger.Warn(ctx, err, "press rejected", "client", c.id, "entity", cmd.ID)
			c.reply(reply{Type: "error", Code: lkerrors.CodeOf(err), Message: err.Error()})
		}
	case "ping":
		c.reply(reply{Type: "pong", Client: c.id})
	default:
		c.reply(reply{Type: "error", Message: "unknown command: " + cmd.Type})
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.checkOrigin(r) {
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.allowedHosts(),
	})
	if err != nil {
		s.logger.Warn(r.Context(), err, "websocket upgrade failed")
		return
	}

	binary := s.format(r) == FormatCBOR
	c := newClient(s.hub, conn, binary)
	ctx := r.Context()

	c.reply(reply{Type: "hello", Client: c.id})
	if snap := s.app.Snapshot(); snap != nil {
		if f, err := s.encode(snap); err == nil {
			c.enqueue(f)
		}
	}

	select {
	case s.hub.register <- c:
	case <-ctx.Done():
		conn.Close(websocket.StatusGoingAway, "")
		return
	}

	go c.writePump(ctx)
	c.readPump(ctx)
}

// allowedHosts lists the origin hosts accepted for websocket upgrades.
func (s *Server) allowedHosts() []string {
	port := strconv.Itoa(s.cfg.Port)
	hosts := []string{
		net.JoinHostPort(s.cfg.Host, port),
		net.JoinHostPort("localhost", port),
		net.JoinHostPort("127.0.0.1", port),
	}
	for _, o := range s.cfg.AllowedOrigins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
		}
	}
	return hosts
}

// checkOrigin requires an http(s) Origin naming an allowed host.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	for _, allowed := range s.allowedHosts() {
		if u.Host == allowed {
			return true
		}
	}
	return false
}

func (s *Server) format(r *http.Request) string {
	switch f := r.URL.Query().Get("format"); f {
	case FormatJSON, FormatCBOR:
		return f
	}
	if r.Header.Get("Accept") == "application/cbor" {
		return FormatCBOR
	}
	return s.cfg.Format
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page(s.cfg.Title, s.app.Snapshot()).Render(r.Context(), w); err != nil {
		s.logger.Error(r.Context(), err, "rendering inspector page")
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap := s.app.Snapshot()
	if snap == nil {
		http.Error(w, "no snapshot yet", http.StatusServiceUnavailable)
		return
	}

	var (
		body []byte
		err  error
	)
	if s.format(r) == FormatCBOR {
		w.Header().Set("Content-Type", "application/cbor")
		body, err = snap.CBOR()
	} else {
		w.Header().Set("Content-Type", "application/json")
		body, err = snap.JSON()
	}
	if err != nil {
		s.logger.Error(r.Context(), err, "encoding snapshot")
		http.Error(w, "encoding snapshot", http.StatusInternalServerError)
		return
	}
	_, _ = w.Write(body)
}

func (s *Server) handlePress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := strconv.ParseUint(r.URL.Query().Get("id"), 10, 32)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := s.app.Press(entity.Entity(id)); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   version.Short(),
		"clients":   s.hub.Clients(),
		"frame":     s.app.Frame(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.logger.Warn(r.Context(), err, "encoding health response")
	}
}
