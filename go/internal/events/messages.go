// Package events defines the tagged JSON messages exchanged with
// clients over the websocket. Every frame is a flat object carrying a
// "type" tag next to its payload fields, e.g.
//
//	{"type": "JoinGame", "room_id": "a1B2c3D4"}
//	{"type": "GameOver", "winner": "draw", "scores": [3, 3]}
package events

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mcdev12/memorycell/go/internal/game"
)

// ClientType identifies an inbound message kind.
type ClientType string

const (
	ClientCreateGame ClientType = "CreateGame"
	ClientJoinGame   ClientType = "JoinGame"
	ClientStartGame  ClientType = "StartGame"
	ClientFlipCard   ClientType = "FlipCard"
)

// ClientMessage is the decoded form of one inbound frame.
type ClientMessage struct {
	Type   ClientType `json:"type"`
	RoomID string     `json:"room_id,omitempty"`
	CardID int        `json:"card_id,omitempty"`
}

// Decode parses one inbound frame. A frame without a type tag is
// malformed.
func Decode(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ClientMessage{}, fmt.Errorf("decode client message: %w", err)
	}
	if msg.Type == "" {
		return ClientMessage{}, errors.New("client message missing type tag")
	}
	return msg, nil
}

// ServerType identifies an outbound message kind.
type ServerType string

const (
	ServerGameCreated     ServerType = "GameCreated"
	ServerGameJoined      ServerType = "GameJoined"
	ServerGameStateUpdate ServerType = "GameStateUpdate"
	ServerGameStarted     ServerType = "GameStarted"
	ServerGameOver        ServerType = "GameOver"
	ServerPlayerLeft      ServerType = "PlayerLeft"
	ServerError           ServerType = "Error"
)

// ServerMessage is one outbound frame. Unused payload fields are
// omitted, so each kind serializes to exactly its own shape.
type ServerMessage struct {
	Type     ServerType   `json:"type"`
	RoomID   string       `json:"room_id,omitempty"`
	PlayerID string       `json:"player_id,omitempty"`
	State    *game.State  `json:"state,omitempty"`
	Timer    *int         `json:"timer,omitempty"`
	Winner   string       `json:"winner,omitempty"`
	Scores   *game.Scores `json:"scores,omitempty"`
	Message  string       `json:"message,omitempty"`
}

// Encode renders the frame for the wire.
func (m ServerMessage) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s message: %w", m.Type, err)
	}
	return data, nil
}

// GameCreated acknowledges a CreateGame request with the new room id
// and the identity minted for the connection.
func GameCreated(roomID, playerID string) ServerMessage {
	return ServerMessage{Type: ServerGameCreated, RoomID: roomID, PlayerID: playerID}
}

// GameJoined carries the full room state back to a joining player.
func GameJoined(state *game.State) ServerMessage {
	return ServerMessage{Type: ServerGameJoined, State: state}
}

// GameStateUpdate is the snapshot broadcast: the complete state,
// never a delta.
func GameStateUpdate(state *game.State) ServerMessage {
	return ServerMessage{Type: ServerGameStateUpdate, State: state}
}

// GameStarted announces the countdown length at the start of play.
func GameStarted(timer int) ServerMessage {
	return ServerMessage{Type: ServerGameStarted, Timer: &timer}
}

// GameOver announces the terminal result.
func GameOver(winner string, scores game.Scores) ServerMessage {
	s := scores
	return ServerMessage{Type: ServerGameOver, Winner: winner, Scores: &s}
}

// PlayerLeft signals that a room member disconnected.
func PlayerLeft() ServerMessage {
	return ServerMessage{Type: ServerPlayerLeft}
}

// Error reports a request failure to the requesting connection only.
func Error(message string) ServerMessage {
	return ServerMessage{Type: ServerError, Message: message}
}
