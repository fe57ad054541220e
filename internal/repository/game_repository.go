package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"ctchen222/tictactoe-minimax/internal/game"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("repository")

var (
	ErrGameNotFound = errors.New("game not found")
	ErrConflict     = errors.New("game was modified concurrently")
)

// Hash fields of a stored game.
const (
	FieldBoard      = "board"
	FieldMoves      = "moves"
	FieldComputer   = "computer"
	FieldDifficulty = "difficulty"
	FieldOwner      = "owner_id"
	FieldRecorded   = "recorded"
	FieldCreatedAt  = "created_at"
	FieldUpdatedAt  = "updated_at"
)

const maxUpdateRetries = 5

//go:generate mockgen -source=game_repository.go -destination=mocks/game_repository_mock.go -package=mocks

// GameRepository defines the interface for game session operations.
type GameRepository interface {
	Create(ctx context.Context, s *game.Session) error
	FindByID(ctx context.Context, id string) (*game.Session, error)
	// Update loads the session, applies fn and stores the result atomically.
	// An error from fn aborts the update and is returned unchanged.
	Update(ctx context.Context, id string, fn func(*game.Session) error) (*game.Session, error)
	Delete(ctx context.Context, id string) error
}

type redisGameRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewGameRepository creates a new Redis-based GameRepository. Sessions expire
// ttl after their last update.
func NewGameRepository(rdb *redis.Client, ttl time.Duration) GameRepository {
	return &redisGameRepository{rdb: rdb, ttl: ttl}
}

func gameKey(id string) string {
	return fmt.Sprintf("game:%s", id)
}

// Create stores a new game session.
func (r *redisGameRepository) Create(ctx context.Context, s *game.Session) error {
	ctx, span := tracer.Start(ctx, "GameRepository.Create", trace.WithAttributes(
		attribute.String("game.id", s.ID),
	))
	defer span.End()

	fields, err := encodeSession(s)
	if err != nil {
		return err
	}

	key := gameKey(s.ID)
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fields)
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create game")
		return fmt.Errorf("failed to create game in redis: %w", err)
	}
	return nil
}

// FindByID retrieves the current game session from Redis.
func (r *redisGameRepository) FindByID(ctx context.Context, id string) (*game.Session, error) {
	ctx, span := tracer.Start(ctx, "GameRepository.FindByID", trace.WithAttributes(
		attribute.String("game.id", id),
	))
	defer span.End()

	data, err := r.rdb.HGetAll(ctx, gameKey(id)).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to get game")
		return nil, fmt.Errorf("failed to get game state from redis: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrGameNotFound
	}
	return decodeSession(id, data)
}

// Update applies fn inside an optimistic transaction, retrying when another
// writer changes the game first.
func (r *redisGameRepository) Update(ctx context.Context, id string, fn func(*game.Session) error) (*game.Session, error) {
	ctx, span := tracer.Start(ctx, "GameRepository.Update", trace.WithAttributes(
		attribute.String("game.id", id),
	))
	defer span.End()

	key := gameKey(id)
	for attempt := range maxUpdateRetries {
		var updated *game.Session
		txf := func(tx *redis.Tx) error {
			data, err := tx.HGetAll(ctx, key).Result()
			if err != nil {
				return err
			}
			if len(data) == 0 {
				return ErrGameNotFound
			}

			s, err := decodeSession(id, data)
			if err != nil {
				return err
			}
			if err := fn(s); err != nil {
				return err
			}
			fields, err := encodeSession(s)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, key, fields)
				pipe.Expire(ctx, key, r.ttl)
				return nil
			})
			if err == nil {
				updated = s
			}
			return err
		}

		err := r.rdb.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			span.AddEvent("transaction conflict", trace.WithAttributes(attribute.Int("attempt", attempt)))
			continue
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update game")
		return nil, err
	}

	span.SetStatus(codes.Error, "Too many conflicting updates")
	return nil, ErrConflict
}

// Delete removes a game session.
func (r *redisGameRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "GameRepository.Delete", trace.WithAttributes(
		attribute.String("game.id", id),
	))
	defer span.End()

	return r.rdb.Del(ctx, gameKey(id)).Err()
}

func encodeSession(s *game.Session) (map[string]any, error) {
	boardJSON, err := json.Marshal(s.Board)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal board: %w", err)
	}
	moves := s.Moves
	if moves == nil {
		moves = []game.Action{}
	}
	movesJSON, err := json.Marshal(moves)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal moves: %w", err)
	}

	return map[string]any{
		FieldBoard:      string(boardJSON),
		FieldMoves:      string(movesJSON),
		FieldComputer:   string(s.Computer),
		FieldDifficulty: s.Difficulty,
		FieldOwner:      s.OwnerID,
		FieldRecorded:   strconv.FormatBool(s.Recorded),
		FieldCreatedAt:  strconv.FormatInt(s.CreatedAt.UnixNano(), 10),
		FieldUpdatedAt:  strconv.FormatInt(s.UpdatedAt.UnixNano(), 10),
	}, nil
}

func decodeSession(id string, data map[string]string) (*game.Session, error) {
	s := &game.Session{
		ID:         id,
		Computer:   game.PlayerMark(data[FieldComputer]),
		Difficulty: data[FieldDifficulty],
		OwnerID:    data[FieldOwner],
		Recorded:   data[FieldRecorded] == "true",
	}

	if err := json.Unmarshal([]byte(data[FieldBoard]), &s.Board); err != nil {
		return nil, fmt.Errorf("failed to unmarshal board: %w", err)
	}
	if err := json.Unmarshal([]byte(data[FieldMoves]), &s.Moves); err != nil {
		return nil, fmt.Errorf("failed to unmarshal moves: %w", err)
	}

	created, err := strconv.ParseInt(data[FieldCreatedAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FieldCreatedAt, err)
	}
	updated, err := strconv.ParseInt(data[FieldUpdatedAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FieldUpdatedAt, err)
	}
	s.CreatedAt = time.Unix(0, created).UTC()
	s.UpdatedAt = time.Unix(0, updated).UTC()
	return s, nil
}
