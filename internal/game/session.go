package game

import "time"

// Session is a game in progress between a human and either another human or
// the computer.
type Session struct {
	ID         string
	Board      Board
	Moves      []Action
	Computer   PlayerMark // None when nobody is played by the computer
	Difficulty string
	OwnerID    string
	Recorded   bool // set once the finished game has been written to history
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewSession starts a session on the initial board.
func NewSession(id string, computer PlayerMark, difficulty, ownerID string, now time.Time) *Session {
	return &Session{
		ID:         id,
		Board:      InitialState(),
		Moves:      make([]Action, 0, 9),
		Computer:   computer,
		Difficulty: difficulty,
		OwnerID:    ownerID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Apply plays the action for whoever is to move and records it.
func (s *Session) Apply(a Action, now time.Time) error {
	next, err := s.Board.Result(a)
	if err != nil {
		return err
	}
	s.Board = next
	s.Moves = append(s.Moves, a)
	s.UpdatedAt = now
	return nil
}

// ComputerToMove reports whether the computer owes the next move.
func (s *Session) ComputerToMove() bool {
	return s.Computer != None && !s.Board.Terminal() && s.Board.Player() == s.Computer
}
