package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ctchen222/tictactoe-minimax/internal/api/models"
	"ctchen222/tictactoe-minimax/internal/bot"
	"ctchen222/tictactoe-minimax/internal/events"
	"ctchen222/tictactoe-minimax/internal/game"
	"ctchen222/tictactoe-minimax/internal/minimax"
	"ctchen222/tictactoe-minimax/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("service")

var (
	ErrGameOver          = errors.New("game is already over")
	ErrNotYourTurn       = errors.New("it is the computer's turn")
	ErrInvalidDifficulty = errors.New("unknown difficulty")
	ErrInvalidComputer   = errors.New("computer must play X, O or nobody")
)

const defaultHistoryLimit = 20

// MoveCalculator defines an interface for an agent that can calculate a game move.
type MoveCalculator interface {
	CalculateNextMove(ctx context.Context, board game.Board, difficulty string) (game.Action, bool, error)
	Analyze(ctx context.Context, board game.Board) (minimax.Analysis, error)
}

// GameService runs games against the computer or between two humans.
type GameService interface {
	NewGame(ctx context.Context, req *models.NewGameRequest, ownerID string) (*game.Session, error)
	GetGame(ctx context.Context, id string) (*game.Session, error)
	Play(ctx context.Context, id string, move game.Action) (*game.Session, error)
	Hint(ctx context.Context, id string) (*game.Session, minimax.Analysis, error)
	History(ctx context.Context, ownerID string, limit int) ([]repository.GameRecord, error)
}

type gameService struct {
	games      repository.GameRepository
	history    repository.HistoryRepository
	calculator MoveCalculator
	publisher  events.Publisher
	now        func() time.Time
	newID      func() string
}

// NewGameService creates a new GameService. publisher may be nil.
func NewGameService(games repository.GameRepository, history repository.HistoryRepository, calculator MoveCalculator, publisher events.Publisher) GameService {
	return &gameService{
		games:      games,
		history:    history,
		calculator: calculator,
		publisher:  publisher,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      func() string { return uuid.New().String() },
	}
}

// NewGame creates a session. If the computer plays X it moves before the
// session is returned.
func (s *gameService) NewGame(ctx context.Context, req *models.NewGameRequest, ownerID string) (*game.Session, error) {
	computer := game.PlayerMark(req.Computer)
	if computer != game.None && computer != game.PlayerX && computer != game.PlayerO {
		return nil, ErrInvalidComputer
	}
	if !bot.ValidDifficulty(req.Difficulty) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDifficulty, req.Difficulty)
	}
	difficulty := req.Difficulty
	if computer != game.None && difficulty == "" {
		difficulty = bot.Hard
	}

	session := game.NewSession(s.newID(), computer, difficulty, ownerID, s.now())

	ctx, span := tracer.Start(ctx, "GameService.NewGame", trace.WithAttributes(
		attribute.String("game.id", session.ID),
		attribute.String("game.computer", string(computer)),
		attribute.String("game.difficulty", difficulty),
	))
	defer span.End()

	if session.ComputerToMove() {
		move, ok, err := s.calculator.CalculateNextMove(ctx, session.Board, difficulty)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Computer failed to move")
			return nil, err
		}
		if ok {
			if err := session.Apply(move, s.now()); err != nil {
				return nil, err
			}
		}
	}

	if err := s.games.Create(ctx, session); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create game")
		return nil, err
	}

	slog.InfoContext(ctx, "game created", "game.id", session.ID, "game.computer", computer, "game.difficulty", difficulty)
	return session, nil
}

// GetGame loads a session and settles it first, so a computer move owed by an
// earlier failed request is played before the session is shown.
func (s *gameService) GetGame(ctx context.Context, id string) (*game.Session, error) {
	session, err := s.games.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	session, err = s.settle(ctx, session)
	if err != nil {
		slog.WarnContext(ctx, "failed to settle game", "game.id", id, "error", err)
	}
	return session, nil
}

// Play applies the human's move, then the computer's reply if it owes one.
func (s *gameService) Play(ctx context.Context, id string, move game.Action) (*game.Session, error) {
	ctx, span := tracer.Start(ctx, "GameService.Play", trace.WithAttributes(
		attribute.String("game.id", id),
		attribute.Int("move.row", move.Row),
		attribute.Int("move.col", move.Col),
	))
	defer span.End()

	current, err := s.games.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load game")
		return nil, err
	}
	// A conflict means another request moved first; the update below
	// re-checks whose turn it is.
	if _, err := s.settle(ctx, current); err != nil && !errors.Is(err, repository.ErrConflict) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Computer failed to move")
		return nil, err
	}

	session, err := s.games.Update(ctx, id, func(session *game.Session) error {
		if session.Board.Terminal() {
			return ErrGameOver
		}
		if session.ComputerToMove() {
			return ErrNotYourTurn
		}
		return session.Apply(move, s.now())
	})
	if err != nil {
		span.SetAttributes(attribute.Bool("move.valid", false))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Move rejected")
		return nil, err
	}
	span.SetAttributes(attribute.Bool("move.valid", true))

	advanced, err := s.advance(ctx, session)
	s.notify(ctx, advanced)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Computer failed to move")
		return nil, err
	}
	return advanced, nil
}

// settle is advance for a session read from storage: subscribers are told
// only when it actually moved.
func (s *gameService) settle(ctx context.Context, session *game.Session) (*game.Session, error) {
	moves := len(session.Moves)
	session, err := s.advance(ctx, session)
	if len(session.Moves) != moves {
		s.notify(ctx, session)
	}
	return session, err
}

// advance plays the computer's owed move and records a finished game that
// history does not hold yet. It outlives ctx's cancellation: a stored human
// move must never be left without its reply. On error the last stored
// session is returned with it.
func (s *gameService) advance(ctx context.Context, session *game.Session) (*game.Session, error) {
	ctx = context.WithoutCancel(ctx)
	if session.ComputerToMove() {
		next, err := s.computerMove(ctx, session)
		if err != nil {
			return session, err
		}
		session = next
	}
	if session.Board.Terminal() {
		s.finish(ctx, session)
	}
	return session, nil
}

func (s *gameService) notify(ctx context.Context, session *game.Session) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishGameUpdated(ctx, session.ID, len(session.Moves)); err != nil {
		slog.WarnContext(ctx, "failed to publish game update", "game.id", session.ID, "error", err)
	}
}

func (s *gameService) computerMove(ctx context.Context, session *game.Session) (*game.Session, error) {
	move, ok, err := s.calculator.CalculateNextMove(ctx, session.Board, session.Difficulty)
	if err != nil {
		return nil, err
	}
	if !ok {
		return session, nil
	}

	seen := session.Board
	return s.games.Update(ctx, session.ID, func(current *game.Session) error {
		if current.Board != seen {
			return repository.ErrConflict
		}
		return current.Apply(move, s.now())
	})
}

// finish writes a terminal session to history once. Failures are logged: the
// game itself is already stored, and the next advance tries again.
func (s *gameService) finish(ctx context.Context, session *game.Session) {
	if session.Recorded {
		return
	}
	if err := s.history.Save(ctx, session, s.now()); err != nil {
		slog.ErrorContext(ctx, "failed to record finished game", "game.id", session.ID, "error", err)
		return
	}

	if _, err := s.games.Update(ctx, session.ID, func(current *game.Session) error {
		current.Recorded = true
		return nil
	}); err != nil {
		slog.WarnContext(ctx, "failed to mark game as recorded", "game.id", session.ID, "error", err)
		return
	}
	session.Recorded = true

	slog.InfoContext(ctx, "game finished", "game.id", session.ID, "game.outcome", session.Board.Outcome())
}

// Hint returns the perfect-play analysis of the session's current board.
func (s *gameService) Hint(ctx context.Context, id string) (*game.Session, minimax.Analysis, error) {
	session, err := s.GetGame(ctx, id)
	if err != nil {
		return nil, minimax.Analysis{}, err
	}
	an, err := s.calculator.Analyze(ctx, session.Board)
	if err != nil {
		return nil, minimax.Analysis{}, err
	}
	return session, an, nil
}

func (s *gameService) History(ctx context.Context, ownerID string, limit int) ([]repository.GameRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultHistoryLimit
	}
	return s.history.ListByOwner(ctx, ownerID, limit)
}
