package bot

import (
	"testing"

	"ctchen222/tictactoe-minimax/internal/game"
)

const (
	X = game.PlayerX
	O = game.PlayerO
	E = game.None
)

// moveIn is a helper function to check if a move is in a list of expected moves.
func moveIn(move game.Action, list []game.Action) bool {
	for _, item := range list {
		if item == move {
			return true
		}
	}
	return false
}

func TestFindWinningMove(t *testing.T) {
	tests := []struct {
		name      string
		board     game.Board
		mark      game.PlayerMark
		want      game.Action
		wantFound bool
	}{
		{
			name:      "No winning move - empty board",
			board:     game.Board{},
			mark:      X,
			wantFound: false,
		},
		{
			name: "X can win - first row",
			board: game.Board{
				{X, X, E},
				{O, O, E},
				{E, E, E},
			},
			mark:      X,
			want:      game.Action{Row: 0, Col: 2},
			wantFound: true,
		},
		{
			name: "O can win - second column",
			board: game.Board{
				{X, O, E},
				{X, O, E},
				{E, E, X},
			},
			mark:      O,
			want:      game.Action{Row: 2, Col: 1},
			wantFound: true,
		},
		{
			name: "X can win - main diagonal",
			board: game.Board{
				{X, O, E},
				{E, X, O},
				{E, E, E},
			},
			mark:      X,
			want:      game.Action{Row: 2, Col: 2},
			wantFound: true,
		},
		{
			name: "O can win - anti-diagonal",
			board: game.Board{
				{X, E, O},
				{E, O, X},
				{E, E, X},
			},
			mark:      O,
			want:      game.Action{Row: 2, Col: 0},
			wantFound: true,
		},
		{
			name: "Full board, no win possible",
			board: game.Board{
				{X, O, X},
				{X, O, O},
				{O, X, X},
			},
			mark:      X,
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := findWinningMove(tt.board, tt.mark)
			if found != tt.wantFound || (found && got != tt.want) {
				t.Errorf("findWinningMove() got (%v, %v), want (%v, %v)", got, found, tt.want, tt.wantFound)
			}
		})
	}
}

func TestEasyMove(t *testing.T) {
	t.Run("Only one spot left", func(t *testing.T) {
		board := game.Board{
			{X, O, X},
			{X, O, O},
			{O, E, X},
		}
		got, ok := easyMove(board)
		if !ok || got != (game.Action{Row: 2, Col: 1}) {
			t.Errorf("easyMove should pick the only available spot (2, 1), but got %v", got)
		}
	})

	t.Run("Multiple spots left - always a legal move", func(t *testing.T) {
		board := game.InitialState()
		available := board.Actions()
		for range 50 {
			got, ok := easyMove(board)
			if !ok || !moveIn(got, available) {
				t.Errorf("easyMove returned an invalid move %v", got)
			}
		}
	})

	t.Run("Full board", func(t *testing.T) {
		board := game.Board{
			{X, O, X},
			{X, O, O},
			{O, X, X},
		}
		if got, ok := easyMove(board); ok {
			t.Errorf("easyMove on a full board should return nothing, but got %v", got)
		}
	})
}

func TestMediumMove(t *testing.T) {
	tests := []struct {
		name  string
		board game.Board
		want  game.Action
	}{
		{
			name: "Bot can win",
			board: game.Board{
				{X, X, E},
				{O, O, E},
				{E, E, E},
			},
			want: game.Action{Row: 0, Col: 2},
		},
		{
			name: "Bot must block opponent",
			board: game.Board{
				{O, O, E},
				{X, E, E},
				{X, E, E},
			},
			want: game.Action{Row: 0, Col: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := mediumMove(tt.board)
			if !ok || got != tt.want {
				t.Errorf("mediumMove() got %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("No immediate win or block, random move", func(t *testing.T) {
		board := game.Board{
			{X, E, E},
			{E, O, E},
			{E, E, E},
		}
		got, ok := mediumMove(board)
		if !ok || board[got.Row][got.Col] != E {
			t.Errorf("mediumMove returned a non-empty spot %v", got)
		}
	})
}

func TestValidDifficulty(t *testing.T) {
	for _, d := range []string{"", Easy, Medium, Hard} {
		if !ValidDifficulty(d) {
			t.Errorf("ValidDifficulty(%q) = false", d)
		}
	}
	if ValidDifficulty("impossible") {
		t.Errorf("ValidDifficulty(%q) = true", "impossible")
	}
}
