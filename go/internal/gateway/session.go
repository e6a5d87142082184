package gateway

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/memorycell/go/internal/events"
	"github.com/mcdev12/memorycell/go/internal/room"
)

// Session is one connected client: a reader that decodes inbound
// frames into registry operations and a writer that drains the
// outbound queue to the socket. The send channel doubles as the
// room output registered on create/join; the registry only writes to
// it while the session is still a member of the room, so closing it
// after Leave is safe.
type Session struct {
	id       string
	playerID string
	conn     *websocket.Conn
	send     chan []byte
	registry *room.Registry
	config   Config

	// roomID tracks the room this connection created or joined; only
	// the reader goroutine touches it.
	roomID string
}

// readPump consumes frames until the peer disconnects or the stream
// breaks, then leaves the room and shuts the writer down.
func (s *Session) readPump() {
	defer func() {
		if s.roomID != "" {
			s.registry.Leave(s.roomID, s.playerID)
		}
		close(s.send)
		s.conn.Close()
		log.Info().
			Str("session_id", s.id).
			Str("player_id", s.playerID).
			Msg("session closed")
	}()

	s.conn.SetReadLimit(s.config.MaxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("session_id", s.id).
					Msg("unexpected websocket close")
			}
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		s.handleMessage(data)
	}
}

// writePump drains the outbound queue to the socket and keeps the
// connection alive with pings.
func (s *Session) writePump() {
	ticker := time.NewTicker(s.config.PingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case data, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().
					Err(err).
					Str("session_id", s.id).
					Msg("failed to write message")
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage routes one decoded client frame. Malformed frames are
// logged and dropped with no reply.
func (s *Session) handleMessage(data []byte) {
	msg, err := events.Decode(data)
	if err != nil {
		log.Warn().
			Err(err).
			Str("session_id", s.id).
			Msg("dropping malformed client message")
		return
	}

	switch msg.Type {
	case events.ClientCreateGame:
		if s.roomID != "" {
			s.reply(events.Error("already in a room"))
			return
		}
		s.roomID = s.registry.CreateRoom(s.playerID, s.send)
		s.reply(events.GameCreated(s.roomID, s.playerID))

	case events.ClientJoinGame:
		if s.roomID != "" {
			s.reply(events.Error("already in a room"))
			return
		}
		state, err := s.registry.JoinRoom(msg.RoomID, s.playerID, s.send)
		if err != nil {
			s.reply(events.Error(err.Error()))
			return
		}
		s.roomID = msg.RoomID
		s.reply(events.GameJoined(state))

	case events.ClientStartGame:
		if err := s.registry.StartGame(msg.RoomID, s.playerID); err != nil {
			s.reply(events.Error(err.Error()))
		}

	case events.ClientFlipCard:
		if s.roomID == "" {
			return
		}
		s.registry.FlipCard(s.roomID, s.playerID, msg.CardID)

	default:
		log.Warn().
			Str("session_id", s.id).
			Str("type", string(msg.Type)).
			Msg("unknown client message type")
	}
}

// reply queues a direct response to this connection only.
func (s *Session) reply(msg events.ServerMessage) {
	data, err := msg.Encode()
	if err != nil {
		log.Error().Err(err).Str("session_id", s.id).Msg("failed to encode reply")
		return
	}
	select {
	case s.send <- data:
	default:
		log.Warn().
			Str("session_id", s.id).
			Msg("outbound queue full, dropping reply")
	}
}
