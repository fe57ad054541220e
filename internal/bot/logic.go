package bot

import (
	"context"
	"math/rand/v2"

	"ctchen222/tictactoe-minimax/internal/game"
	"ctchen222/tictactoe-minimax/internal/minimax"
)

// Difficulty levels
const (
	Easy   = "easy"
	Medium = "medium"
	Hard   = "hard"
)

// ValidDifficulty reports whether d names a known difficulty. The empty
// string is accepted and means Hard.
func ValidDifficulty(d string) bool {
	switch d {
	case "", Easy, Medium, Hard:
		return true
	}
	return false
}

// easyMove makes a completely random move.
func easyMove(board game.Board) (game.Action, bool) {
	availableMoves := board.Actions()
	if len(availableMoves) == 0 {
		return game.Action{}, false
	}
	return availableMoves[rand.IntN(len(availableMoves))], true
}

// mediumMove will win if it can, block if it must, otherwise move randomly.
func mediumMove(board game.Board) (game.Action, bool) {
	botMark := board.Player()

	// 1. Win: Check if the bot can win in the next move
	if a, canWin := findWinningMove(board, botMark); canWin {
		return a, true
	}

	// 2. Block: Check if the opponent is about to win and block them
	if a, canBlock := findWinningMove(board, botMark.Opponent()); canBlock {
		return a, true
	}

	// 3. Random: Otherwise, make a random move
	return easyMove(board)
}

// hardMove plays perfectly: the analysis' Best is the move.
func (c *Calculator) hardMove(ctx context.Context, board game.Board) (minimax.Analysis, error) {
	if c.parallel {
		return minimax.AnalyzeParallel(ctx, board)
	}
	return minimax.Analyze(board), nil
}

// findWinningMove checks if a player has a potential winning move (two in a row with an empty third).
func findWinningMove(board game.Board, mark game.PlayerMark) (game.Action, bool) {
	if board.Terminal() {
		return game.Action{}, false
	}
	for _, line := range lines {
		var marks, empties int
		var empty game.Action
		for _, cell := range line {
			switch board[cell.Row][cell.Col] {
			case mark:
				marks++
			case game.None:
				empties++
				empty = cell
			}
		}
		if marks == 2 && empties == 1 {
			return empty, true
		}
	}
	return game.Action{}, false
}

var lines = [8][3]game.Action{
	// rows
	{{0, 0}, {0, 1}, {0, 2}},
	{{1, 0}, {1, 1}, {1, 2}},
	{{2, 0}, {2, 1}, {2, 2}},
	// cols
	{{0, 0}, {1, 0}, {2, 0}},
	{{0, 1}, {1, 1}, {2, 1}},
	{{0, 2}, {1, 2}, {2, 2}},
	// diags
	{{0, 0}, {1, 1}, {2, 2}},
	{{0, 2}, {1, 1}, {2, 0}},
}
