// Package gateway is the websocket transport: it upgrades client
// connections, mints a player identity per connection, and runs one
// reader/writer session pair that bridges the wire to the room
// registry.
package gateway

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/memorycell/go/internal/room"
)

// Config holds websocket tuning for client sessions.
type Config struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	// OutboundQueue is the per-session send buffer; a session that
	// falls this far behind is dropped from its room.
	OutboundQueue int
}

// DefaultConfig returns the standard websocket tuning.
func DefaultConfig() Config {
	return Config{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		OutboundQueue:   64,
	}
}

// Handler upgrades HTTP requests into game sessions.
type Handler struct {
	registry *room.Registry
	upgrader websocket.Upgrader
	config   Config
}

// NewHandler creates a websocket handler bound to a room registry.
func NewHandler(registry *room.Registry, config Config) *Handler {
	return &Handler{
		registry: registry,
		config:   config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				// Origin policy is enforced by the CORS layer in front.
				return true
			},
		},
	}
}

// HandleGame upgrades the connection and starts its session. Each
// connection gets a freshly generated player id; that id is the
// session's identity for every registry operation it performs.
func (h *Handler) HandleGame(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade websocket connection")
		return
	}

	s := &Session{
		id:       uuid.New().String(),
		playerID: uuid.New().String(),
		conn:     conn,
		send:     make(chan []byte, h.config.OutboundQueue),
		registry: h.registry,
		config:   h.config,
	}

	go s.writePump()
	go s.readPump()

	log.Info().
		Str("session_id", s.id).
		Str("player_id", s.playerID).
		Str("remote_addr", r.RemoteAddr).
		Msg("websocket connection established")
}

// HandleStats reports live room and connection counts.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"rooms":%d}`, h.registry.Count())
}

// RegisterRoutes attaches the gateway endpoints to a mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.HandleGame)
	mux.HandleFunc("/stats", h.HandleStats)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}
