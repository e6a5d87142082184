package room

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/memorycell/go/internal/events"
	"github.com/mcdev12/memorycell/go/internal/game"
)

// Output is the write end of one connected session's outbound queue.
// Broadcasts never block on it: a queue that is full gets the session
// dropped from the room instead.
type Output chan<- []byte

// Room is one isolated game session between up to two players. Every
// read or mutation of its state happens behind its own mutex, so
// unrelated rooms never contend (the registry lock only guards the
// map itself).
type Room struct {
	id        string
	creatorID string

	mu      sync.Mutex
	state   *game.State
	outputs map[string]Output
	started bool

	// ctx scopes the countdown and delayed-unflip tasks to the room's
	// lifetime; cancel fires when the game finishes or the room is
	// removed from the registry.
	ctx    context.Context
	cancel context.CancelFunc
}

func newRoom(creator game.Player, timerSeconds int, shuffle func(n int, swap func(i, j int))) *Room {
	ctx, cancel := context.WithCancel(context.Background())
	return &Room{
		id:        newRoomID(),
		creatorID: creator.ID,
		state:     game.NewState(creator, timerSeconds, shuffle),
		outputs:   make(map[string]Output),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// ID returns the room's public join code.
func (r *Room) ID() string {
	return r.id
}

// broadcast fans one encoded message out to every registered output
// and returns how many outputs remain. Sends happen under the room
// lock so no message can race a session's removal, but they are
// non-blocking: a session whose queue is full is pruned from the set
// rather than stalling the room.
func (r *Room) broadcast(msg events.ServerMessage) int {
	return r.broadcastExcept("", msg)
}

// broadcastExcept is broadcast minus one player, used when the joiner
// already received the same state in a direct reply.
func (r *Room) broadcastExcept(skipPlayerID string, msg events.ServerMessage) int {
	data, err := msg.Encode()
	if err != nil {
		log.Error().Err(err).Str("room_id", r.id).Msg("failed to encode broadcast")
		r.mu.Lock()
		n := len(r.outputs)
		r.mu.Unlock()
		return n
	}

	r.mu.Lock()
	for playerID, out := range r.outputs {
		if playerID == skipPlayerID {
			continue
		}
		select {
		case out <- data:
		default:
			delete(r.outputs, playerID)
			log.Warn().
				Str("room_id", r.id).
				Str("player_id", playerID).
				Msg("outbound queue full, pruning output from room")
		}
	}
	n := len(r.outputs)
	r.mu.Unlock()
	return n
}

const (
	roomIDLength  = 8
	roomIDCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// newRoomID generates the short public join code.
func newRoomID() string {
	buf := make([]byte, roomIDLength)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())[:roomIDLength]
	}
	for i, b := range buf {
		buf[i] = roomIDCharset[int(b)%len(roomIDCharset)]
	}
	return string(buf)
}
