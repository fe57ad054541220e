package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apirepository "ctchen222/tictactoe-minimax/internal/api/repository"
	"ctchen222/tictactoe-minimax/internal/api/service"
	"ctchen222/tictactoe-minimax/internal/bot"
	"ctchen222/tictactoe-minimax/internal/config"
	"ctchen222/tictactoe-minimax/internal/db"
	"ctchen222/tictactoe-minimax/internal/events"
	"ctchen222/tictactoe-minimax/internal/logger"
	"ctchen222/tictactoe-minimax/internal/repository"
	"ctchen222/tictactoe-minimax/internal/server"
	"ctchen222/tictactoe-minimax/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file; environment variables are used when empty")
	flag.Parse()

	cfg := config.MustLoad(*configPath)
	logger.Init(cfg.LogLevel)

	ctx := context.Background()

	// Initialize telemetry
	shutdown, err := telemetry.InitOtel(ctx, cfg.Telemetry)
	if err != nil {
		slog.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Error("error shutting down telemetry", "error", err)
		}
	}()

	// Initialize Redis
	rdb, err := db.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("failed to initialize redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Initialize SQLite DB
	sqlDB, err := db.Open(ctx, cfg.SQLitePath)
	if err != nil {
		slog.Error("failed to initialize sqlite db", "error", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	// Create repositories
	gameRepo := repository.NewGameRepository(rdb, cfg.GameTTL)
	historyRepo := repository.NewHistoryRepository(sqlDB)
	userRepo := apirepository.NewUserRepository(sqlDB)

	// Create services
	bus := events.NewBus(rdb)
	calculator := bot.NewCalculator(cfg.SearchParallel)
	userService := service.NewUserService(userRepo, cfg.JWT)
	gameService := service.NewGameService(gameRepo, historyRepo, calculator, bus)
	solverService := service.NewSolverService(calculator)

	srv := server.NewServer(server.Deps{
		Users:      userService,
		Games:      gameService,
		Solver:     solverService,
		Subscriber: bus,
		Checks: map[string]func(context.Context) error{
			"redis":  func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			"sqlite": sqlDB.PingContext,
		},
	})

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Engine(),
	}

	go func() {
		slog.Info("http server started", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("ListenAndServe failed", "error", err)
			stop <- syscall.SIGTERM
		}
	}()

	<-stop

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("server exiting")
}
