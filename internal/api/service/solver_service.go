package service

import (
	"context"

	"ctchen222/tictactoe-minimax/internal/game"
	"ctchen222/tictactoe-minimax/internal/minimax"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SolverService answers perfect-play questions about arbitrary boards.
type SolverService interface {
	Solve(ctx context.Context, rows [][]string) (game.Board, minimax.Analysis, error)
}

type solverService struct {
	calculator MoveCalculator
}

// NewSolverService creates a new SolverService.
func NewSolverService(calculator MoveCalculator) SolverService {
	return &solverService{calculator: calculator}
}

// Solve parses and validates rows, then analyzes the position. Invalid boards
// yield game.ErrInvalidBoard.
func (s *solverService) Solve(ctx context.Context, rows [][]string) (game.Board, minimax.Analysis, error) {
	board, err := game.BoardFromRows(rows)
	if err != nil {
		return game.Board{}, minimax.Analysis{}, err
	}

	ctx, span := tracer.Start(ctx, "SolverService.Solve", trace.WithAttributes(
		attribute.String("board", board.Compact()),
	))
	defer span.End()

	an, err := s.calculator.Analyze(ctx, board)
	if err != nil {
		return game.Board{}, minimax.Analysis{}, err
	}
	return board, an, nil
}
