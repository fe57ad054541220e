package models

import (
	"ctchen222/tictactoe-minimax/internal/game"
	"ctchen222/tictactoe-minimax/internal/minimax"
	"ctchen222/tictactoe-minimax/internal/repository"
)

// NewGameRequest starts a game. Computer names the side the computer plays,
// empty for a game between two humans sharing the board.
type NewGameRequest struct {
	Computer   string `json:"computer" binding:"omitempty,oneof=X O"`
	Difficulty string `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
}

// MoveRequest places the next mark. Bounds are checked by the game itself.
type MoveRequest struct {
	Row *int `json:"row" binding:"required"`
	Col *int `json:"col" binding:"required"`
}

// SolveRequest asks for perfect play on an arbitrary board.
type SolveRequest struct {
	Board [][]string `json:"board" binding:"required"`
}

// GameResponse is the public view of a game session.
type GameResponse struct {
	ID         string        `json:"id"`
	Board      [][]string    `json:"board"`
	Next       string        `json:"next,omitempty"`
	Winner     string        `json:"winner,omitempty"`
	Outcome    game.Outcome  `json:"outcome"`
	Computer   string        `json:"computer,omitempty"`
	Difficulty string        `json:"difficulty,omitempty"`
	Moves      []game.Action `json:"moves"`
}

func NewGameResponse(s *game.Session) GameResponse {
	resp := GameResponse{
		ID:         s.ID,
		Board:      s.Board.Rows(),
		Winner:     string(s.Board.Winner()),
		Outcome:    s.Board.Outcome(),
		Computer:   string(s.Computer),
		Difficulty: s.Difficulty,
		Moves:      s.Moves,
	}
	if resp.Moves == nil {
		resp.Moves = []game.Action{}
	}
	if !s.Board.Terminal() {
		resp.Next = string(s.Board.Player())
	}
	return resp
}

// AnalysisResponse reports perfect play from a position.
type AnalysisResponse struct {
	Player   string              `json:"player"`
	Terminal bool                `json:"terminal"`
	Winner   string              `json:"winner,omitempty"`
	Outcome  game.Outcome        `json:"outcome"`
	Value    int                 `json:"value"`
	BestMove *game.Action        `json:"best_move"`
	Moves    []minimax.MoveValue `json:"moves"`
	Nodes    int64               `json:"nodes"`
}

func NewAnalysisResponse(b game.Board, an minimax.Analysis) AnalysisResponse {
	resp := AnalysisResponse{
		Player:   string(an.Player),
		Terminal: an.Terminal,
		Winner:   string(b.Winner()),
		Outcome:  b.Outcome(),
		Value:    an.Value,
		Moves:    an.Moves,
		Nodes:    an.Nodes,
	}
	if resp.Moves == nil {
		resp.Moves = []minimax.MoveValue{}
	}
	if an.HasBest {
		best := an.Best
		resp.BestMove = &best
	}
	return resp
}

// HistoryResponse lists a user's finished games.
type HistoryResponse struct {
	Games []repository.GameRecord `json:"games"`
}
