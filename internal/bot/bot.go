package bot

import (
	"context"
	"log/slog"
	"time"

	"ctchen222/tictactoe-minimax/internal/game"
	"ctchen222/tictactoe-minimax/internal/minimax"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("bot")

// Calculator chooses computer moves. It implements service.MoveCalculator.
type Calculator struct {
	parallel bool
	metrics  *searchMetrics
}

// NewCalculator creates a Calculator. With parallel set, perfect-play
// searches evaluate the root moves concurrently.
func NewCalculator(parallel bool) *Calculator {
	return &Calculator{
		parallel: parallel,
		metrics:  newSearchMetrics(otel.Meter("bot")),
	}
}

// CalculateNextMove determines the bot's next move based on the specified difficulty.
// Unknown difficulties play perfectly. It returns false on a terminal board.
func (c *Calculator) CalculateNextMove(ctx context.Context, board game.Board, difficulty string) (game.Action, bool, error) {
	ctx, span := tracer.Start(ctx, "bot.CalculateNextMove", trace.WithAttributes(
		attribute.String("bot.difficulty", difficulty),
		attribute.String("bot.mark", string(board.Player())),
	))
	defer span.End()

	if board.Terminal() {
		return game.Action{}, false, nil
	}

	var (
		move game.Action
		ok   = true
	)
	switch difficulty {
	case Easy:
		move, ok = easyMove(board)
	case Medium:
		move, ok = mediumMove(board)
	default:
		difficulty = Hard
		an, err := c.search(ctx, board)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Search failed")
			return game.Action{}, false, err
		}
		move, ok = an.Best, an.HasBest
	}

	c.metrics.moves.Add(ctx, 1, metric.WithAttributes(attribute.String("bot.difficulty", difficulty)))
	span.SetAttributes(attribute.Int("move.row", move.Row), attribute.Int("move.col", move.Col))
	return move, ok, nil
}

// Analyze returns the perfect-play analysis of board.
func (c *Calculator) Analyze(ctx context.Context, board game.Board) (minimax.Analysis, error) {
	ctx, span := tracer.Start(ctx, "bot.Analyze")
	defer span.End()

	an, err := c.search(ctx, board)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Search failed")
	}
	return an, err
}

func (c *Calculator) search(ctx context.Context, board game.Board) (minimax.Analysis, error) {
	start := time.Now()
	an, err := c.hardMove(ctx, board)
	if err != nil {
		return an, err
	}
	elapsed := time.Since(start)

	attrs := metric.WithAttributes(attribute.Bool("search.parallel", c.parallel))
	c.metrics.nodes.Add(ctx, an.Nodes, attrs)
	c.metrics.duration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int64("search.nodes", an.Nodes),
		attribute.Int("search.value", an.Value),
	)
	slog.DebugContext(ctx, "search finished", "search.nodes", an.Nodes, "search.value", an.Value, "search.elapsed", elapsed)
	return an, nil
}
