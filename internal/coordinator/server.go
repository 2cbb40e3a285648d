package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"github.com/lotas/setuptabs/internal/applog"
)

const (
	notifyAttempts = 5
	notifyDelay    = 500 * time.Millisecond
)

// Server exposes the coordinator over a local websocket. Surfaces connect,
// register a role, and exchange envelopes; the most recently registered
// page surface is the rebroadcast target.
type Server struct {
	port  int
	coord *Coordinator

	// NotifyDelay overrides the retry spacing (tests).
	NotifyDelay time.Duration

	mu         sync.Mutex
	conns      map[*websocket.Conn]string // conn -> role
	activePage *websocket.Conn
	pageCtx    context.Context
}

// NewServer wires a Coordinator to a websocket listener on the given port.
func NewServer(port int, coord *Coordinator) *Server {
	s := &Server{
		port:        port,
		coord:       coord,
		NotifyDelay: notifyDelay,
		conns:       make(map[*websocket.Conn]string),
	}
	coord.notify = s.NotifyActive
	return s
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}

// HasPageSurface reports whether a page surface is currently registered.
func (s *Server) HasPageSurface() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activePage != nil
}

// NotifyActive delivers a rebroadcast to the active page surface. Delivery
// is best effort: up to 5 attempts 500ms apart while no surface is
// registered, then the notification is dropped. Surfaces recover lost
// notifications by re-fetching on their own triggers.
func (s *Server) NotifyActive(msg Message) {
	go func() {
		for attempt := 0; attempt < notifyAttempts; attempt++ {
			s.mu.Lock()
			conn := s.activePage
			ctx := s.pageCtx
			s.mu.Unlock()

			if conn != nil {
				data, err := json.Marshal(Notification{Message: msg})
				if err != nil {
					applog.Error("notify.encode", err, "what", msg.What)
					return
				}
				if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
					applog.Error("notify.send", err, "what", msg.What)
					return
				}
				applog.Info("notify.sent", "what", msg.What)
				return
			}
			time.Sleep(s.NotifyDelay)
		}
		applog.Warn("notify.dropped", "what", msg.What)
	}()
}

// Handler returns an http.Handler that accepts websocket upgrades from
// surfaces.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			applog.Error("ws.accept", err)
			return
		}

		ctx := r.Context()
		s.mu.Lock()
		s.conns[conn] = ""
		s.mu.Unlock()
		applog.Info("ws.connected", "remote", r.RemoteAddr)

		defer func() {
			s.mu.Lock()
			delete(s.conns, conn)
			if s.activePage == conn {
				s.activePage = nil
				s.pageCtx = nil
			}
			s.mu.Unlock()
			conn.CloseNow()
			applog.Info("ws.disconnected")
		}()

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var env Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				applog.Error("ws.parse", err)
				continue
			}
			applog.Info("ws.recv", "what", env.Message.What)

			if env.Message.What == WhatRegister {
				s.register(ctx, conn, env.Message.Role)
			}

			resp := s.coord.Handle(env)
			out, err := json.Marshal(resp)
			if err != nil {
				applog.Error("ws.encode", err)
				continue
			}
			if err := conn.Write(ctx, websocket.MessageText, out); err != nil {
				return
			}
		}
	})
}

func (s *Server) register(ctx context.Context, conn *websocket.Conn, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn] = role
	if role == RolePage {
		s.activePage = conn
		s.pageCtx = ctx
	}
	applog.Info("surface.registered", "role", role)
}

// ListenAndServe starts the websocket server on 127.0.0.1.
func (s *Server) ListenAndServe(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/", s.Handler())

	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	applog.Info("server.start", "addr", addr)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	return srv.ListenAndServe()
}
