package game

import (
	"encoding/json"
	"fmt"
)

// Status is the room lifecycle phase. Transitions only move forward:
// Waiting -> Playing -> Finished.
type Status string

const (
	StatusWaiting  Status = "Waiting"
	StatusPlaying  Status = "Playing"
	StatusFinished Status = "Finished"
)

// WinnerDraw is the winner marker broadcast when both players finish
// with equal scores.
const WinnerDraw = "draw"

// Player is one of the two seats in a room.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PlayerSlots holds the two seats of a room. Slot one is the creator
// and is always present; slot two stays nil until someone joins. Once
// a seat is assigned its id never changes for the room's lifetime.
// The wire shape is a two-element array.
type PlayerSlots struct {
	One Player
	Two *Player
}

func (p PlayerSlots) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.One, p.Two})
}

func (p *PlayerSlots) UnmarshalJSON(data []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("player slots: %w", err)
	}
	if err := json.Unmarshal(raw[0], &p.One); err != nil {
		return fmt.Errorf("player slot one: %w", err)
	}
	if len(raw[1]) == 0 || string(raw[1]) == "null" {
		p.Two = nil
		return nil
	}
	p.Two = new(Player)
	if err := json.Unmarshal(raw[1], p.Two); err != nil {
		return fmt.Errorf("player slot two: %w", err)
	}
	return nil
}

// Scores is (player one, player two), serialized as a two-element
// array.
type Scores [2]int

// State is the mutable game data of one room. It carries no locking
// of its own; the owning room serializes access.
type State struct {
	Cards       []Card      `json:"cards"`
	Players     PlayerSlots `json:"players"`
	CurrentTurn string      `json:"current_turn"`
	Scores      Scores      `json:"scores"`
	Timer       int         `json:"timer"`
	Status      Status      `json:"status"`
	Winner      *string     `json:"winner"`
}

// NewState deals a fresh shuffled board for the creator. The creator
// holds the first turn.
func NewState(creator Player, timerSeconds int, shuffle func(n int, swap func(i, j int))) *State {
	return &State{
		Cards:       NewDeck(shuffle),
		Players:     PlayerSlots{One: creator},
		CurrentTurn: creator.ID,
		Timer:       timerSeconds,
		Status:      StatusWaiting,
	}
}

// SeatSecond assigns the second seat. It reports false when the seat
// is already taken.
func (s *State) SeatSecond(p Player) bool {
	if s.Players.Two != nil {
		return false
	}
	s.Players.Two = &p
	return true
}

// Start moves the game into the Playing phase.
func (s *State) Start() {
	s.Status = StatusPlaying
}

// FlipOutcome reports what a flip request did to the board.
type FlipOutcome int

const (
	// FlipIgnored means the request changed nothing: wrong phase,
	// wrong turn, or an invalid target card.
	FlipIgnored FlipOutcome = iota
	// FlipOpen means a card was turned face up without completing a
	// pair; the turn continues.
	FlipOpen
	// FlipMatched means the pair matched: both cards are marked,
	// the acting player scored, and the turn stays with them.
	FlipMatched
	// FlipMismatched means the pair did not match: the turn moved to
	// the opponent and the two cards await the delayed unflip.
	FlipMismatched
)

// Flip applies one flip request for playerID. Phase is checked before
// any card-level validation so a Finished room ignores every request.
// When exactly two unmatched cards are face up the pair is resolved;
// on a mismatch the returned pair carries the two card ids so the
// caller can schedule the delayed unflip.
func (s *State) Flip(playerID string, cardID int) (FlipOutcome, [2]int) {
	var pair [2]int
	if s.Status != StatusPlaying {
		return FlipIgnored, pair
	}
	if s.CurrentTurn != playerID {
		return FlipIgnored, pair
	}
	card := s.card(cardID)
	if card == nil || card.Flipped || card.Matched {
		return FlipIgnored, pair
	}
	card.Flipped = true

	open := s.openCards()
	if len(open) != 2 {
		return FlipOpen, pair
	}
	a, b := open[0], open[1]
	pair = [2]int{a.ID, b.ID}
	if a.Value != b.Value {
		s.CurrentTurn = s.opponent(playerID)
		return FlipMismatched, pair
	}
	a.Matched = true
	b.Matched = true
	s.addScore(playerID)
	return FlipMatched, pair
}

// Unflip turns the two cards of a mismatched pair face down again.
// A card that was matched in the meantime is left alone.
func (s *State) Unflip(aID, bID int) {
	for _, id := range []int{aID, bID} {
		if c := s.card(id); c != nil && !c.Matched {
			c.Flipped = false
		}
	}
}

// TickTimer burns one second off the countdown and returns the
// remaining time.
func (s *State) TickTimer() int {
	if s.Timer > 0 {
		s.Timer--
	}
	return s.Timer
}

// AllMatched reports whether every card on the board is matched.
func (s *State) AllMatched() bool {
	for i := range s.Cards {
		if !s.Cards[i].Matched {
			return false
		}
	}
	return true
}

// DetermineWinner applies the shared end-of-game rule: the strictly
// higher score wins, equal scores are a draw. Both the all-matched
// path and the countdown-expiry path go through here.
func (s *State) DetermineWinner() string {
	switch {
	case s.Scores[0] > s.Scores[1]:
		return s.Players.One.ID
	case s.Scores[1] > s.Scores[0] && s.Players.Two != nil:
		return s.Players.Two.ID
	default:
		return WinnerDraw
	}
}

// Finish moves the game into its terminal phase with the given
// winner. Finished is a one-way door; repeated calls keep the first
// result.
func (s *State) Finish(winner string) {
	if s.Status == StatusFinished {
		return
	}
	s.Status = StatusFinished
	s.Winner = &winner
}

// Clone returns a deep copy safe to hand to encoders after the room
// lock is released.
func (s *State) Clone() *State {
	out := *s
	out.Cards = make([]Card, len(s.Cards))
	copy(out.Cards, s.Cards)
	if s.Players.Two != nil {
		two := *s.Players.Two
		out.Players.Two = &two
	}
	if s.Winner != nil {
		w := *s.Winner
		out.Winner = &w
	}
	return &out
}

func (s *State) card(id int) *Card {
	for i := range s.Cards {
		if s.Cards[i].ID == id {
			return &s.Cards[i]
		}
	}
	return nil
}

// openCards returns the face-up, unmatched cards in board order.
func (s *State) openCards() []*Card {
	var open []*Card
	for i := range s.Cards {
		if s.Cards[i].Flipped && !s.Cards[i].Matched {
			open = append(open, &s.Cards[i])
		}
	}
	return open
}

func (s *State) addScore(playerID string) {
	switch {
	case s.Players.One.ID == playerID:
		s.Scores[0]++
	case s.Players.Two != nil && s.Players.Two.ID == playerID:
		s.Scores[1]++
	}
}

// opponent returns the other player's id. With a single seated player
// the turn stays where it is.
func (s *State) opponent(playerID string) string {
	if s.Players.One.ID == playerID {
		if s.Players.Two != nil {
			return s.Players.Two.ID
		}
		return playerID
	}
	return s.Players.One.ID
}
