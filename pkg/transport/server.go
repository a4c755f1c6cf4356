// Package transport exposes rooms over websockets and a few read-only HTTP endpoints.
package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/astromechza/toggle-rooms/pkg/room"
)

type Options struct {
	OutboundBuffer  int
	WriteTimeout    time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	AllowAllOrigins bool
}

func DefaultOptions() Options {
	return Options{
		OutboundBuffer: 64,
		WriteTimeout:   10 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 4096,
	}
}

type Server struct {
	hub      *room.Hub
	counters *room.Counters
	log      *slog.Logger
	opts     Options
	upgrader websocket.Upgrader
	// live websocket handlers; http.Server.Shutdown does not wait for hijacked connections
	handlers sync.WaitGroup
}

func NewServer(hub *room.Hub, counters *room.Counters, log *slog.Logger, opts Options) *Server {
	s := &Server{
		hub:      hub,
		counters: counters,
		log:      log,
		opts:     opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	if opts.AllowAllOrigins {
		s.upgrader.CheckOrigin = func(*http.Request) bool { return true }
	}
	return s
}

// Handler returns the routes wrapped in access logging.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			m := httpsnoop.CaptureMetrics(handler, writer, request)
			s.log.Info("handled", "method", request.Method, "url", request.URL, "duration", m.Duration, "status", m.Code)
		})
	})

	r.Methods(http.MethodGet).Path("/rooms/{room}/ws").HandlerFunc(s.joinRoom)
	r.Methods(http.MethodGet).Path("/rooms/{room}/state").HandlerFunc(s.getState)
	r.Methods(http.MethodGet).Path("/stats").HandlerFunc(s.getStats)
	r.Methods(http.MethodGet).Path("/healthz").HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusNoContent)
	})
	return r
}

func (s *Server) joinRoom(writer http.ResponseWriter, request *http.Request) {
	roomID := mux.Vars(request)["room"]
	conn, err := s.upgrader.Upgrade(writer, request, nil)
	if err != nil {
		s.log.Error("failed to upgrade", "room", roomID, "err", err)
		return
	}

	s.handlers.Add(1)
	defer s.handlers.Done()

	ctx, cancel := context.WithCancel(request.Context())
	defer cancel()

	p := newPeer(uuid.NewString(), conn, s.opts, s.log.With("room", roomID))
	wg := new(sync.WaitGroup)
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.writeLoop(ctx)
	}()

	coordinator := s.hub.Room(roomID)
	if err := coordinator.Join(ctx, p); err != nil {
		s.log.Error("failed to join", "room", roomID, "conn", p.ID(), "err", err)
		p.closeWith(websocket.CloseInternalServerErr, "room state unavailable")
		wg.Wait()
		return
	}

	if err := p.readLoop(func(msg []byte) {
		// failures are already logged and counted by the coordinator
		_ = coordinator.HandleMessage(ctx, p, msg)
	}); err != nil {
		s.log.Debug("connection ended", "room", roomID, "conn", p.ID(), "err", err)
	}

	coordinator.Leave(p)
	p.close()
	wg.Wait()
}

// Wait blocks until every websocket handler has returned or ctx ends.
func (s *Server) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.handlers.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) getState(writer http.ResponseWriter, request *http.Request) {
	roomID := mux.Vars(request)["room"]
	state, ok, err := s.hub.Snapshot(request.Context(), roomID)
	if err != nil {
		s.log.Error("failed to load state", "room", roomID, "err", err)
		writer.WriteHeader(http.StatusInternalServerError)
		return
	}
	if !ok {
		writer.WriteHeader(http.StatusNotFound)
		return
	}
	s.writeJSON(writer, state)
}

type stats struct {
	room.Stats
	Rooms int `json:"rooms"`
}

func (s *Server) getStats(writer http.ResponseWriter, _ *http.Request) {
	s.writeJSON(writer, stats{Stats: s.counters.Stats(), Rooms: len(s.hub.Rooms())})
}

func (s *Server) writeJSON(writer http.ResponseWriter, value any) {
	writer.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(writer).Encode(value); err != nil {
		s.log.Error("failed to write out", "err", err)
	}
}
