// Package minimax computes perfect play for tic-tac-toe by exhaustive
// adversarial search. There is no pruning and no caching: the game tree is
// small enough to visit every node.
package minimax

import (
	"math"

	"ctchen222/tictactoe-minimax/internal/game"
)

// Minimax returns the optimal action for the player to move, or false when
// the board is terminal. Among equally valued actions the first in
// game.Board.Actions order is returned.
func Minimax(b game.Board) (game.Action, bool) {
	var s searcher
	best, _, ok := s.best(b)
	return best, ok
}

// MaxValue returns the value of b when X is to move and both sides play perfectly.
func MaxValue(b game.Board) int {
	var s searcher
	return s.maxValue(b)
}

// MinValue returns the value of b when O is to move and both sides play perfectly.
func MinValue(b game.Board) int {
	var s searcher
	return s.minValue(b)
}

// Value returns the game-theoretic value of b: 1 if X forces a win, -1 if O
// does, 0 if perfect play draws.
func Value(b game.Board) int {
	if b.Player() == game.PlayerX {
		return MaxValue(b)
	}
	return MinValue(b)
}

// searcher counts the nodes it visits.
type searcher struct {
	nodes int64
}

func (s *searcher) best(b game.Board) (game.Action, int, bool) {
	s.nodes++
	if b.Terminal() {
		return game.Action{}, b.Utility(), false
	}

	maximizing := b.Player() == game.PlayerX
	var best game.Action
	bestVal := math.MinInt
	if !maximizing {
		bestVal = math.MaxInt
	}

	for _, a := range b.Actions() {
		v := s.childValue(b, a)
		if (maximizing && v > bestVal) || (!maximizing && v < bestVal) {
			bestVal = v
			best = a
		}
	}
	return best, bestVal, true
}

// childValue evaluates the board after a from the opponent's perspective.
func (s *searcher) childValue(b game.Board, a game.Action) int {
	// Actions only yields empty cells, so Result cannot fail here.
	next, _ := b.Result(a)
	if b.Player() == game.PlayerX {
		return s.minValue(next)
	}
	return s.maxValue(next)
}

func (s *searcher) maxValue(b game.Board) int {
	s.nodes++
	if b.Terminal() {
		return b.Utility()
	}
	v := math.MinInt
	for _, a := range b.Actions() {
		next, _ := b.Result(a)
		v = max(v, s.minValue(next))
	}
	return v
}

func (s *searcher) minValue(b game.Board) int {
	s.nodes++
	if b.Terminal() {
		return b.Utility()
	}
	v := math.MaxInt
	for _, a := range b.Actions() {
		next, _ := b.Result(a)
		v = min(v, s.maxValue(next))
	}
	return v
}
