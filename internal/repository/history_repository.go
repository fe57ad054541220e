package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ctchen222/tictactoe-minimax/internal/game"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

//go:generate mockgen -source=history_repository.go -destination=mocks/history_repository_mock.go -package=mocks

// HistoryRepository stores finished games.
type HistoryRepository interface {
	// Save records a finished session. Saving the same session twice is a no-op.
	Save(ctx context.Context, s *game.Session, finishedAt time.Time) error
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]GameRecord, error)
}

// GameRecord is a finished game.
type GameRecord struct {
	ID         string        `json:"id"`
	OwnerID    string        `json:"-"`
	Computer   string        `json:"computer"`
	Difficulty string        `json:"difficulty,omitempty"`
	Moves      []game.Action `json:"moves"`
	Outcome    game.Outcome  `json:"outcome"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

type gameRow struct {
	ID         string `db:"id"`
	OwnerID    string `db:"owner_id"`
	Computer   string `db:"computer"`
	Difficulty string `db:"difficulty"`
	Moves      string `db:"moves"`
	Outcome    string `db:"outcome"`
	StartedAt  int64  `db:"started_at"`
	FinishedAt int64  `db:"finished_at"`
}

type sqliteHistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository creates a new SQLite-based HistoryRepository.
func NewHistoryRepository(db *sqlx.DB) HistoryRepository {
	return &sqliteHistoryRepository{db: db}
}

func (r *sqliteHistoryRepository) Save(ctx context.Context, s *game.Session, finishedAt time.Time) error {
	ctx, span := tracer.Start(ctx, "HistoryRepository.Save", trace.WithAttributes(
		attribute.String("game.id", s.ID),
	))
	defer span.End()

	moves, err := json.Marshal(s.Moves)
	if err != nil {
		return fmt.Errorf("failed to marshal moves: %w", err)
	}

	row := gameRow{
		ID:         s.ID,
		OwnerID:    s.OwnerID,
		Computer:   string(s.Computer),
		Difficulty: s.Difficulty,
		Moves:      string(moves),
		Outcome:    string(s.Board.Outcome()),
		StartedAt:  s.CreatedAt.UnixMilli(),
		FinishedAt: finishedAt.UnixMilli(),
	}

	query := `INSERT OR IGNORE INTO games (id, owner_id, computer, difficulty, moves, outcome, started_at, finished_at)
		VALUES (:id, :owner_id, :computer, :difficulty, :moves, :outcome, :started_at, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to save game")
		return fmt.Errorf("failed to save game: %w", err)
	}
	return nil
}

func (r *sqliteHistoryRepository) ListByOwner(ctx context.Context, ownerID string, limit int) ([]GameRecord, error) {
	ctx, span := tracer.Start(ctx, "HistoryRepository.ListByOwner", trace.WithAttributes(
		attribute.String("user.id", ownerID),
	))
	defer span.End()

	var rows []gameRow
	query := `SELECT id, owner_id, computer, difficulty, moves, outcome, started_at, finished_at
		FROM games WHERE owner_id = ? ORDER BY finished_at DESC, id LIMIT ?`
	if err := r.db.SelectContext(ctx, &rows, query, ownerID, limit); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list games")
		return nil, fmt.Errorf("failed to list games: %w", err)
	}

	records := make([]GameRecord, 0, len(rows))
	for _, row := range rows {
		var moves []game.Action
		if err := json.Unmarshal([]byte(row.Moves), &moves); err != nil {
			return nil, fmt.Errorf("failed to unmarshal moves of game %s: %w", row.ID, err)
		}
		records = append(records, GameRecord{
			ID:         row.ID,
			OwnerID:    row.OwnerID,
			Computer:   row.Computer,
			Difficulty: row.Difficulty,
			Moves:      moves,
			Outcome:    game.Outcome(row.Outcome),
			StartedAt:  time.UnixMilli(row.StartedAt).UTC(),
			FinishedAt: time.UnixMilli(row.FinishedAt).UTC(),
		})
	}
	return records, nil
}
