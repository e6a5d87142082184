// Package room owns the live game sessions: the registry that maps
// join codes to rooms, the turn-based flip resolution, and the
// concurrent countdown and mismatch-unflip tasks that mutate room
// state outside the request cycle.
package room

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/memorycell/go/internal/events"
	"github.com/mcdev12/memorycell/go/internal/game"
)

// Errors reported back to the requesting connection only; they never
// affect other members of a room.
var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomFull         = errors.New("room is full")
	ErrNotEnoughPlayers = errors.New("not enough players")
)

// Names shown for the two seats. Identity is the per-connection id;
// these are only display labels.
const (
	playerOneName = "Player 1"
	playerTwoName = "Player 2"
)

// Config holds the gameplay timing knobs.
type Config struct {
	// GameDuration is the countdown start value in seconds.
	GameDuration int
	// MismatchDelay is how long a mismatched pair stays face up
	// before the delayed unflip fires.
	MismatchDelay time.Duration
}

// DefaultConfig returns the standard 60-second game with a one-second
// mismatch reveal.
func DefaultConfig() Config {
	return Config{
		GameDuration:  60,
		MismatchDelay: time.Second,
	}
}

// Registry is the entry point for every client-triggered operation.
// Its lock guards only the join-code map; each room serializes its
// own state behind its own mutex.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	cfg     Config
	clock   clockwork.Clock
	shuffle func(n int, swap func(i, j int))
}

// Option customizes a Registry, mainly for tests.
type Option func(*Registry)

// WithClock substitutes the clock driving the countdown and the
// mismatch delay. Tests pass a clockwork fake clock.
func WithClock(clock clockwork.Clock) Option {
	return func(r *Registry) { r.clock = clock }
}

// WithShuffle substitutes the deck shuffle, letting tests deal a
// known board.
func WithShuffle(shuffle func(n int, swap func(i, j int))) Option {
	return func(r *Registry) { r.shuffle = shuffle }
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg Config, opts ...Option) *Registry {
	reg := &Registry{
		rooms:   make(map[string]*Room),
		cfg:     cfg,
		clock:   clockwork.NewRealClock(),
		shuffle: rand.Shuffle,
	}
	for _, opt := range opts {
		opt(reg)
	}
	return reg
}

// CreateRoom builds a new room with a shuffled deck, seats the caller
// as player one and registers their output. It always succeeds and
// returns the room's join code.
func (reg *Registry) CreateRoom(playerID string, out Output) string {
	rm := newRoom(game.Player{ID: playerID, Name: playerOneName}, reg.cfg.GameDuration, reg.shuffle)
	rm.outputs[playerID] = out

	reg.mu.Lock()
	reg.rooms[rm.id] = rm
	reg.mu.Unlock()

	log.Info().
		Str("room_id", rm.id).
		Str("player_id", playerID).
		Msg("room created")
	return rm.id
}

// JoinRoom seats the caller as player two and registers their output.
// On success it returns a snapshot of the full state and broadcasts
// the updated state to everyone who was already connected.
func (reg *Registry) JoinRoom(roomID, playerID string, out Output) (*game.State, error) {
	rm, ok := reg.get(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}

	rm.mu.Lock()
	if !rm.state.SeatSecond(game.Player{ID: playerID, Name: playerTwoName}) {
		rm.mu.Unlock()
		return nil, ErrRoomFull
	}
	rm.outputs[playerID] = out
	snap := rm.state.Clone()
	rm.mu.Unlock()

	rm.broadcastExcept(playerID, events.GameStateUpdate(snap))

	log.Info().
		Str("room_id", roomID).
		Str("player_id", playerID).
		Msg("player joined room")
	return snap, nil
}

// StartGame moves the room into play and spawns its countdown task.
// It requires both seats filled; a second start request is a no-op.
func (reg *Registry) StartGame(roomID, playerID string) error {
	rm, ok := reg.get(roomID)
	if !ok {
		return ErrRoomNotFound
	}

	rm.mu.Lock()
	if rm.state.Players.Two == nil {
		rm.mu.Unlock()
		return ErrNotEnoughPlayers
	}
	if rm.started {
		rm.mu.Unlock()
		return nil
	}
	rm.started = true
	rm.state.Start()
	timer := rm.state.Timer
	rm.mu.Unlock()

	go reg.runCountdown(rm)
	reg.broadcast(rm, events.GameStarted(timer))

	log.Info().
		Str("room_id", roomID).
		Str("player_id", playerID).
		Int("timer", timer).
		Msg("game started")
	return nil
}

// FlipCard applies one flip. Invalid requests (unknown room, wrong
// turn, face-up or matched target, room not in play) change nothing
// and produce no reply. A mismatch hands the turn over immediately
// and schedules the delayed unflip; the broadcast sent now still
// shows both cards face up so both players see the reveal. When the
// last pair matches, the game ends with a GameOver broadcast instead
// of a state update.
func (reg *Registry) FlipCard(roomID, playerID string, cardID int) {
	rm, ok := reg.get(roomID)
	if !ok {
		return
	}

	rm.mu.Lock()
	outcome, pair := rm.state.Flip(playerID, cardID)
	if outcome == game.FlipIgnored {
		rm.mu.Unlock()
		return
	}

	var over *events.ServerMessage
	if rm.state.AllMatched() {
		winner := rm.state.DetermineWinner()
		rm.state.Finish(winner)
		msg := events.GameOver(winner, rm.state.Scores)
		over = &msg
		rm.cancel()
	}
	snap := rm.state.Clone()
	rm.mu.Unlock()

	if outcome == game.FlipMismatched {
		go reg.runUnflip(rm, pair)
	}

	if over != nil {
		reg.broadcast(rm, *over)
		log.Info().
			Str("room_id", roomID).
			Str("winner", *snap.Winner).
			Msg("all pairs matched, game over")
		return
	}
	reg.broadcast(rm, events.GameStateUpdate(snap))
}

// Leave handles a session disconnect. The creator leaving removes the
// room: PlayerLeft goes out to the remaining outputs before the
// room's tasks are cancelled. The second player leaving mid-game
// forfeits it to the creator; outside of play only PlayerLeft is
// broadcast and the room stays.
func (reg *Registry) Leave(roomID, playerID string) {
	rm, ok := reg.get(roomID)
	if !ok {
		return
	}

	if rm.creatorID == playerID {
		reg.remove(rm)
		rm.mu.Lock()
		delete(rm.outputs, playerID)
		rm.mu.Unlock()
		rm.broadcast(events.PlayerLeft())
		rm.cancel()
		log.Info().
			Str("room_id", roomID).
			Str("player_id", playerID).
			Msg("creator left, room removed")
		return
	}

	rm.mu.Lock()
	delete(rm.outputs, playerID)
	var over *events.ServerMessage
	if rm.state.Status == game.StatusPlaying {
		rm.state.Finish(rm.creatorID)
		msg := events.GameOver(rm.creatorID, rm.state.Scores)
		over = &msg
		rm.cancel()
	}
	rm.mu.Unlock()

	reg.broadcast(rm, events.PlayerLeft())
	if over != nil {
		reg.broadcast(rm, *over)
		log.Info().
			Str("room_id", roomID).
			Str("player_id", playerID).
			Msg("player left mid-game, forfeited to creator")
		return
	}
	log.Info().
		Str("room_id", roomID).
		Str("player_id", playerID).
		Msg("player left room")
}

// Count returns the number of live rooms.
func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// broadcast fans the message out and reaps the room once no live
// outputs remain.
func (reg *Registry) broadcast(rm *Room, msg events.ServerMessage) {
	if rm.broadcast(msg) == 0 {
		reg.reap(rm)
	}
}

// reap removes a room whose last output is gone and cancels its
// tasks.
func (reg *Registry) reap(rm *Room) {
	reg.mu.Lock()
	cur, ok := reg.rooms[rm.id]
	if ok && cur == rm {
		delete(reg.rooms, rm.id)
	}
	reg.mu.Unlock()
	if ok && cur == rm {
		rm.cancel()
		log.Info().Str("room_id", rm.id).Msg("room has no live outputs, removed")
	}
}

func (reg *Registry) get(roomID string) (*Room, bool) {
	reg.mu.RLock()
	rm, ok := reg.rooms[roomID]
	reg.mu.RUnlock()
	return rm, ok
}

func (reg *Registry) remove(rm *Room) {
	reg.mu.Lock()
	delete(reg.rooms, rm.id)
	reg.mu.Unlock()
}
