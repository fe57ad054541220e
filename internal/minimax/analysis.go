package minimax

import (
	"context"
	"math"
	"runtime"

	"ctchen222/tictactoe-minimax/internal/game"
	"golang.org/x/sync/errgroup"
)

// MoveValue is the exact value of playing Action, from X's point of view.
type MoveValue struct {
	Action game.Action `json:"action"`
	Value  int         `json:"value"`
}

// Analysis is the full result of searching one position.
type Analysis struct {
	Player   game.PlayerMark
	Terminal bool
	Value    int
	Best     game.Action
	HasBest  bool
	Moves    []MoveValue // in game.Board.Actions order
	Nodes    int64
}

// Analyze searches every legal action of b. Best is the action Minimax would
// return.
func Analyze(b game.Board) Analysis {
	an := Analysis{Player: b.Player()}
	if b.Terminal() {
		an.Terminal = true
		an.Value = b.Utility()
		an.Nodes = 1
		return an
	}

	actions := b.Actions()
	an.Moves = make([]MoveValue, len(actions))
	var s searcher
	s.nodes = 1
	for i, a := range actions {
		an.Moves[i] = MoveValue{Action: a, Value: s.childValue(b, a)}
	}
	an.Nodes = s.nodes
	an.pickBest()
	return an
}

// AnalyzeParallel is Analyze with the root actions searched concurrently, at
// most GOMAXPROCS at a time. The chosen action is the same as Analyze's. Once
// ctx is cancelled no further root action is started and ctx's error is
// returned; searches already running finish first.
func AnalyzeParallel(ctx context.Context, b game.Board) (Analysis, error) {
	return analyzeParallel(ctx, b, runtime.GOMAXPROCS(0))
}

func analyzeParallel(ctx context.Context, b game.Board, limit int) (Analysis, error) {
	an := Analysis{Player: b.Player()}
	if b.Terminal() {
		an.Terminal = true
		an.Value = b.Utility()
		an.Nodes = 1
		return an, nil
	}

	actions := b.Actions()
	an.Moves = make([]MoveValue, len(actions))
	nodes := make([]int64, len(actions))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, a := range actions {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var s searcher
			an.Moves[i] = MoveValue{Action: a, Value: s.childValue(b, a)}
			nodes[i] = s.nodes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Analysis{}, err
	}

	an.Nodes = 1
	for _, n := range nodes {
		an.Nodes += n
	}
	an.pickBest()
	return an, nil
}

// pickBest applies the strict-improvement rule over Moves in order.
func (an *Analysis) pickBest() {
	maximizing := an.Player == game.PlayerX
	an.Value = math.MinInt
	if !maximizing {
		an.Value = math.MaxInt
	}
	for _, mv := range an.Moves {
		if (maximizing && mv.Value > an.Value) || (!maximizing && mv.Value < an.Value) {
			an.Value = mv.Value
			an.Best = mv.Action
			an.HasBest = true
		}
	}
}
