package ws

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/nsmarkop/plover-websocket-server/internal/config"
	"github.com/nsmarkop/plover-websocket-server/internal/engine"
)

// State is the server lifecycle phase. Transitions run
// Stopped -> Starting -> Running -> Stopping -> Stopped; only one
// Starting or Stopping may be in flight at a time.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrServerRunning  = errors.New("server already running")
	ErrStopInProgress = errors.New("server stop in progress")
	ErrBindFailed     = errors.New("bind failed")
)

// Server owns the listener, the connection registry, and the broadcast
// loop, and subscribes the broadcaster to the engine while running.
// Start and Stop are safe to call from different goroutines.
type Server struct {
	cfg    *config.Config
	source engine.Source

	mu       sync.Mutex
	state    State
	settling chan struct{} // closed when the in-flight transition lands

	// Owned by the running instance between a successful Start and the
	// Stop that tears it down.
	ln          net.Listener
	httpSrv     *http.Server
	reg         *Registry
	broadcaster *Broadcaster
	unsubscribe func()
}

func NewServer(cfg *config.Config, source engine.Source) *Server {
	return &Server{cfg: cfg, source: source}
}

func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Addr reports the bound listen address, or "" when not running. With
// port 0 in the config this is how callers learn the real port.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Start binds the listener, starts the broadcast loop, and subscribes
// to the engine. It fails with ErrServerRunning unless the server is
// stopped, and with ErrStopInProgress while a stop is still tearing
// down; a bind failure rolls back to stopped and wraps ErrBindFailed.
func (s *Server) Start() error {
	s.mu.Lock()
	switch s.state {
	case StateStopping:
		s.mu.Unlock()
		return ErrStopInProgress
	case StateStarting, StateRunning:
		s.mu.Unlock()
		return ErrServerRunning
	}
	s.state = StateStarting
	settled := make(chan struct{})
	s.settling = settled
	s.mu.Unlock()

	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		s.mu.Lock()
		s.state = StateStopped
		s.settling = nil
		s.mu.Unlock()
		close(settled)
		return fmt.Errorf("%w: %v", ErrBindFailed, err)
	}

	reg := NewRegistry()
	b := NewBroadcaster(reg, s.cfg.Queue.IntakeSize)
	go b.Run()

	httpSrv := &http.Server{Handler: s.routes(reg, b, time.Now())}
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http serve error: %v", err)
		}
	}()

	unsubscribe := s.source.Subscribe(b.Notify)

	s.mu.Lock()
	s.ln = ln
	s.httpSrv = httpSrv
	s.reg = reg
	s.broadcaster = b
	s.unsubscribe = unsubscribe
	s.state = StateRunning
	s.settling = nil
	s.mu.Unlock()
	close(settled)

	log.Printf("listening on %s", ln.Addr())
	return nil
}

// Stop deregisters from the engine, stops the broadcast loop, closes
// every connection, and releases the listener. Calling it on a stopped
// server is a no-op; concurrent callers all return once teardown is
// complete. Each wait is bounded by the configured shutdown timeout.
func (s *Server) Stop() error {
	for {
		s.mu.Lock()
		switch s.state {
		case StateStopped:
			s.mu.Unlock()
			return nil
		case StateStarting, StateStopping:
			settled := s.settling
			s.mu.Unlock()
			<-settled
			continue
		}
		s.state = StateStopping
		settled := make(chan struct{})
		s.settling = settled
		ln := s.ln
		b := s.broadcaster
		reg := s.reg
		httpSrv := s.httpSrv
		unsubscribe := s.unsubscribe
		s.mu.Unlock()

		timeout := s.cfg.ShutdownTimeout

		// No further events reach the intake.
		unsubscribe()

		// No new observers may join; current members get torn down below.
		conns := reg.Close()

		// The loop exits before connections close under it.
		if !b.Stop(timeout) {
			log.Printf("broadcast loop did not exit within %v", timeout)
		}

		for _, c := range conns {
			c.shutdown()
		}
		if !joinConns(conns, timeout) {
			log.Printf("some observers did not close within %v", timeout)
		}

		// Releases the listener so an immediate restart can rebind.
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := httpSrv.Shutdown(ctx); err != nil {
			httpSrv.Close()
		}
		cancel()

		// Shutdown closes only listeners the serve goroutine has had time
		// to register, so close ours directly; the port must be free
		// before Stop returns. A second close just reports ErrClosed.
		ln.Close()

		s.mu.Lock()
		s.ln = nil
		s.httpSrv = nil
		s.reg = nil
		s.broadcaster = nil
		s.unsubscribe = nil
		s.state = StateStopped
		s.settling = nil
		s.mu.Unlock()
		close(settled)

		log.Printf("server stopped")
		return nil
	}
}

// joinConns waits for every connection to finish closing, sharing one
// deadline across all of them.
func joinConns(conns []*Conn, timeout time.Duration) bool {
	if len(conns) == 0 {
		return true
	}
	deadline := time.After(timeout)
	for _, c := range conns {
		select {
		case <-c.Done():
		case <-deadline:
			return false
		}
	}
	return true
}

func (s *Server) routes(reg *Registry, b *Broadcaster, startedAt time.Time) http.Handler {
	r := chi.NewRouter()
	r.Get("/", s.handleIndex)
	r.Get("/websocket", s.handleWebsocket(reg))
	r.Get("/status", s.handleStatus(reg, b, startedAt))
	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "index")
}

func (s *Server) handleWebsocket(reg *Registry) http.HandlerFunc {
	// Observers are local tools (tape displays, dictionary lookups), so
	// any origin may connect.
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}

	return func(w http.ResponseWriter, r *http.Request) {
		wsc, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("ws upgrade error: %v", err)
			return
		}

		c := newConn(wsc, reg, s.cfg.Queue.PerConnectionSize)
		if err := reg.Add(c); err != nil {
			// Raced with server stop; turn the observer away cleanly.
			deadline := time.Now().Add(closeGracePeriod)
			wsc.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopping"), deadline)
			wsc.Close()
			return
		}

		log.Printf("observer connected: %s from %s (total: %d)", c.id, r.RemoteAddr, reg.Len())
		c.run()
		log.Printf("observer disconnected: %s (total: %d)", c.id, reg.Len())
	}
}
