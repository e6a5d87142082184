package gateway_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/memorycell/go/internal/events"
	"github.com/mcdev12/memorycell/go/internal/game"
	"github.com/mcdev12/memorycell/go/internal/gateway"
	"github.com/mcdev12/memorycell/go/internal/room"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	reg := room.NewRegistry(room.Config{GameDuration: 60, MismatchDelay: 50 * time.Millisecond})
	handler := gateway.NewHandler(reg, gateway.DefaultConfig())

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type client struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, srv *httptest.Server) *client {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &client{t: t, conn: conn}
}

func (c *client) send(msg events.ClientMessage) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteJSON(msg))
}

func (c *client) recv() events.ServerMessage {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := c.conn.ReadMessage()
	require.NoError(c.t, err, "expected a server message")
	var msg events.ServerMessage
	require.NoError(c.t, json.Unmarshal(data, &msg))
	return msg
}

// recvType reads frames until one of the wanted kind arrives,
// skipping interleaved countdown ticks.
func (c *client) recvType(typ events.ServerType) events.ServerMessage {
	c.t.Helper()
	for i := 0; i < 70; i++ {
		msg := c.recv()
		if msg.Type == typ {
			return msg
		}
	}
	c.t.Fatalf("no %s message received", typ)
	return events.ServerMessage{}
}

// recvUpdate reads frames until a GameStateUpdate satisfies the
// predicate.
func (c *client) recvUpdate(pred func(*game.State) bool) *game.State {
	c.t.Helper()
	for i := 0; i < 70; i++ {
		msg := c.recv()
		if msg.Type == events.ServerGameStateUpdate && pred(msg.State) {
			return msg.State
		}
	}
	c.t.Fatal("no matching GameStateUpdate received")
	return nil
}

func cardByID(state *game.State, id int) *game.Card {
	for i := range state.Cards {
		if state.Cards[i].ID == id {
			return &state.Cards[i]
		}
	}
	return nil
}

// pairs returns one matching pair of card ids and one mismatched one.
func pairs(state *game.State) (match [2]int, mismatch [2]int) {
	byValue := make(map[int][]int)
	for _, c := range state.Cards {
		byValue[c.Value] = append(byValue[c.Value], c.ID)
	}
	match = [2]int{byValue[0][0], byValue[0][1]}
	mismatch = [2]int{byValue[1][0], byValue[2][0]}
	return match, mismatch
}

func TestFullGameScenario(t *testing.T) {
	srv := newTestServer(t)

	// Player A creates a room and receives their minted identity.
	a := dial(t, srv)
	a.send(events.ClientMessage{Type: events.ClientCreateGame})
	created := a.recvType(events.ServerGameCreated)
	require.NotEmpty(t, created.RoomID)
	require.NotEmpty(t, created.PlayerID)

	// Player B joins: B gets the full state, A sees the same state as
	// a broadcast.
	b := dial(t, srv)
	b.send(events.ClientMessage{Type: events.ClientJoinGame, RoomID: created.RoomID})
	joined := b.recvType(events.ServerGameJoined)
	require.NotNil(t, joined.State)
	require.NotNil(t, joined.State.Players.Two)
	bID := joined.State.Players.Two.ID
	assert.NotEqual(t, created.PlayerID, bID, "each connection gets its own identity")

	update := a.recvType(events.ServerGameStateUpdate)
	require.NotNil(t, update.State.Players.Two)
	assert.Equal(t, bID, update.State.Players.Two.ID)

	// A starts the game.
	a.send(events.ClientMessage{Type: events.ClientStartGame, RoomID: created.RoomID})
	started := a.recvType(events.ServerGameStarted)
	require.NotNil(t, started.Timer)
	assert.Equal(t, 60, *started.Timer)
	b.recvType(events.ServerGameStarted)

	// A (first turn) flips a matching pair: both cards match, A
	// scores, the turn stays with A.
	match, _ := pairs(joined.State)
	a.send(events.ClientMessage{Type: events.ClientFlipCard, CardID: match[0]})
	a.recvUpdate(func(s *game.State) bool {
		return cardByID(s, match[0]).Flipped
	})
	a.send(events.ClientMessage{Type: events.ClientFlipCard, CardID: match[1]})
	state := a.recvUpdate(func(s *game.State) bool {
		return cardByID(s, match[0]).Matched && cardByID(s, match[1]).Matched
	})
	assert.Equal(t, game.Scores{1, 0}, state.Scores)
	assert.Equal(t, created.PlayerID, state.CurrentTurn)
}

func TestMismatchOverTheWire(t *testing.T) {
	srv := newTestServer(t)

	a := dial(t, srv)
	a.send(events.ClientMessage{Type: events.ClientCreateGame})
	created := a.recvType(events.ServerGameCreated)

	b := dial(t, srv)
	b.send(events.ClientMessage{Type: events.ClientJoinGame, RoomID: created.RoomID})
	joined := b.recvType(events.ServerGameJoined)
	bID := joined.State.Players.Two.ID

	a.send(events.ClientMessage{Type: events.ClientStartGame, RoomID: created.RoomID})
	a.recvType(events.ServerGameStarted)

	_, mismatch := pairs(joined.State)
	a.send(events.ClientMessage{Type: events.ClientFlipCard, CardID: mismatch[0]})
	a.send(events.ClientMessage{Type: events.ClientFlipCard, CardID: mismatch[1]})

	// The immediate broadcast shows both cards face up with the turn
	// already transferred.
	state := a.recvUpdate(func(s *game.State) bool {
		return cardByID(s, mismatch[0]).Flipped && cardByID(s, mismatch[1]).Flipped
	})
	assert.Equal(t, bID, state.CurrentTurn)
	assert.Equal(t, game.Scores{0, 0}, state.Scores)

	// B sees the face-up mismatch first, then after the delay both
	// cards land face down again.
	b.recvUpdate(func(s *game.State) bool {
		return cardByID(s, mismatch[0]).Flipped && cardByID(s, mismatch[1]).Flipped
	})
	state = b.recvUpdate(func(s *game.State) bool {
		return !cardByID(s, mismatch[0]).Flipped && !cardByID(s, mismatch[1]).Flipped
	})
	assert.Equal(t, game.Scores{0, 0}, state.Scores)
}

func TestRequestErrorsGoToRequesterOnly(t *testing.T) {
	srv := newTestServer(t)

	a := dial(t, srv)
	a.send(events.ClientMessage{Type: events.ClientCreateGame})
	created := a.recvType(events.ServerGameCreated)

	// Unknown room.
	c := dial(t, srv)
	c.send(events.ClientMessage{Type: events.ClientJoinGame, RoomID: "missing1"})
	errMsg := c.recvType(events.ServerError)
	assert.Equal(t, "room not found", errMsg.Message)

	// Start without a second player.
	a.send(events.ClientMessage{Type: events.ClientStartGame, RoomID: created.RoomID})
	errMsg = a.recvType(events.ServerError)
	assert.Equal(t, "not enough players", errMsg.Message)

	// Full room.
	b := dial(t, srv)
	b.send(events.ClientMessage{Type: events.ClientJoinGame, RoomID: created.RoomID})
	b.recvType(events.ServerGameJoined)

	c.send(events.ClientMessage{Type: events.ClientJoinGame, RoomID: created.RoomID})
	errMsg = c.recvType(events.ServerError)
	assert.Equal(t, "room is full", errMsg.Message)
}

func TestMalformedFrameIsDroppedSilently(t *testing.T) {
	srv := newTestServer(t)

	a := dial(t, srv)
	require.NoError(t, a.conn.WriteMessage(websocket.TextMessage, []byte("flip the third card")))

	// The connection survives and the next valid request works; no
	// Error frame was sent for the garbage.
	a.send(events.ClientMessage{Type: events.ClientCreateGame})
	msg := a.recv()
	assert.Equal(t, events.ServerGameCreated, msg.Type)
}

func TestCreatorDisconnectClosesRoom(t *testing.T) {
	srv := newTestServer(t)

	a := dial(t, srv)
	a.send(events.ClientMessage{Type: events.ClientCreateGame})
	created := a.recvType(events.ServerGameCreated)

	b := dial(t, srv)
	b.send(events.ClientMessage{Type: events.ClientJoinGame, RoomID: created.RoomID})
	b.recvType(events.ServerGameJoined)

	require.NoError(t, a.conn.Close())
	msg := b.recvType(events.ServerPlayerLeft)
	assert.Equal(t, events.ServerPlayerLeft, msg.Type)
}
