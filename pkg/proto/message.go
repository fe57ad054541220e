package proto

import (
	"ctchen222/tictactoe-minimax/internal/game"
	"ctchen222/tictactoe-minimax/internal/minimax"
)

// Client message types.
const (
	TypeMove = "move"
	TypeHint = "hint"
)

// Server message types.
const (
	TypeUpdate = "update"
	TypeError  = "error"
)

// ClientToServerMessage represents a message from the client to the server.
type ClientToServerMessage struct {
	Type     string `json:"type" validate:"required,oneof=move hint"`
	Position []int  `json:"position,omitempty" validate:"omitempty,len=2"`
}

// Action returns the move named by Position. ok is false when Position is absent.
func (m *ClientToServerMessage) Action() (game.Action, bool) {
	if len(m.Position) != 2 {
		return game.Action{}, false
	}
	return game.Action{Row: m.Position[0], Col: m.Position[1]}, true
}

// ServerToClientMessage represents a message from the server to the client.
type ServerToClientMessage struct {
	Type    string        `json:"type" validate:"required"`
	Reason  string        `json:"reason,omitempty"`
	GameID  string        `json:"gameId,omitempty"`
	Board   [][]string    `json:"board,omitempty"`
	Next    string        `json:"next,omitempty"`
	Winner  string        `json:"winner,omitempty"`
	Outcome game.Outcome  `json:"outcome,omitempty"`
	Moves   []game.Action `json:"moves,omitempty"`

	// Set on hint messages only.
	BestMove   *game.Action        `json:"bestMove,omitempty"`
	Value      *int                `json:"value,omitempty"`
	MoveValues []minimax.MoveValue `json:"moveValues,omitempty"`
}

// NewUpdate describes the current state of a session.
func NewUpdate(s *game.Session) *ServerToClientMessage {
	msg := &ServerToClientMessage{
		Type:    TypeUpdate,
		GameID:  s.ID,
		Board:   s.Board.Rows(),
		Winner:  string(s.Board.Winner()),
		Outcome: s.Board.Outcome(),
		Moves:   s.Moves,
	}
	if !s.Board.Terminal() {
		msg.Next = string(s.Board.Player())
	}
	return msg
}

// NewHint reports the analysis of a session's board.
func NewHint(s *game.Session, an minimax.Analysis) *ServerToClientMessage {
	value := an.Value
	msg := &ServerToClientMessage{
		Type:       TypeHint,
		GameID:     s.ID,
		Board:      s.Board.Rows(),
		Next:       string(an.Player),
		Outcome:    s.Board.Outcome(),
		Value:      &value,
		MoveValues: an.Moves,
	}
	if an.HasBest {
		best := an.Best
		msg.BestMove = &best
	}
	return msg
}

func NewError(reason string) *ServerToClientMessage {
	return &ServerToClientMessage{Type: TypeError, Reason: reason}
}
