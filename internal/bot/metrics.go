package bot

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type searchMetrics struct {
	nodes    metric.Int64Counter
	duration metric.Float64Histogram
	moves    metric.Int64Counter
}

func newSearchMetrics(meter metric.Meter) *searchMetrics {
	fallback := noop.NewMeterProvider().Meter("bot")
	m := &searchMetrics{}

	var err error
	if m.nodes, err = meter.Int64Counter("tictactoe.search.nodes",
		metric.WithDescription("Game tree nodes visited by perfect-play searches"),
	); err != nil {
		otel.Handle(err)
		m.nodes, _ = fallback.Int64Counter("tictactoe.search.nodes")
	}
	if m.duration, err = meter.Float64Histogram("tictactoe.search.duration",
		metric.WithDescription("Duration of perfect-play searches"),
		metric.WithUnit("ms"),
	); err != nil {
		otel.Handle(err)
		m.duration, _ = fallback.Float64Histogram("tictactoe.search.duration")
	}
	if m.moves, err = meter.Int64Counter("tictactoe.bot.moves",
		metric.WithDescription("Moves chosen by the computer player"),
	); err != nil {
		otel.Handle(err)
		m.moves, _ = fallback.Int64Counter("tictactoe.bot.moves")
	}
	return m
}
