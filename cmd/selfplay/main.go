// Command selfplay pits two computer players against each other and prints
// the final board.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"ctchen222/tictactoe-minimax/internal/bot"
	"ctchen222/tictactoe-minimax/internal/game"
	"ctchen222/tictactoe-minimax/internal/logger"
)

func main() {
	start := flag.String("board", ".........", "starting position, nine cells row-major, '.' for empty")
	xLevel := flag.String("x", bot.Hard, "difficulty of the X player")
	oLevel := flag.String("o", bot.Hard, "difficulty of the O player")
	parallel := flag.Bool("parallel", false, "search root moves concurrently")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger.Init(*level)

	board, err := game.ParseCompact(*start)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	final, err := run(context.Background(), bot.NewCalculator(*parallel), board, map[game.PlayerMark]string{
		game.PlayerX: *xLevel,
		game.PlayerO: *oLevel,
	})
	if err != nil {
		slog.Error("self-play failed", "error", err)
		os.Exit(1)
	}

	fmt.Println(final)
	fmt.Println()
	fmt.Println("outcome:", final.Outcome())
}

type mover interface {
	CalculateNextMove(ctx context.Context, board game.Board, difficulty string) (game.Action, bool, error)
}

// run alternates moves until the board is terminal.
func run(ctx context.Context, m mover, board game.Board, levels map[game.PlayerMark]string) (game.Board, error) {
	for ply := 1; !board.Terminal(); ply++ {
		player := board.Player()
		action, ok, err := m.CalculateNextMove(ctx, board, levels[player])
		if err != nil {
			return board, err
		}
		if !ok {
			break
		}
		board, err = board.Result(action)
		if err != nil {
			return board, err
		}
		slog.InfoContext(ctx, "move", "ply", ply, "player", player, "action", action.String(), "board", board.Compact())
	}
	return board, nil
}
