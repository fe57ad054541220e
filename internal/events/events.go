// Package events fans game updates out to every server instance over Redis
// Pub/Sub, so a websocket watching a game sees moves made through any
// instance or through the HTTP API.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("events")

const (
	GameUpdated = "game_updated"

	channelPrefix = "channel:game:"
)

// Event represents a message published via Pub/Sub.
type Event struct {
	Type    string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// GameUpdatedPayload is the payload for the "game_updated" event.
type GameUpdatedPayload struct {
	GameID string `json:"game_id"`
	Moves  int    `json:"moves"`
}

// Publisher announces game changes.
type Publisher interface {
	PublishGameUpdated(ctx context.Context, gameID string, moves int) error
}

// Bus publishes and subscribes to per-game channels.
type Bus struct {
	rdb *redis.Client
}

func NewBus(rdb *redis.Client) *Bus {
	return &Bus{rdb: rdb}
}

func channel(gameID string) string {
	return channelPrefix + gameID
}

func (b *Bus) PublishGameUpdated(ctx context.Context, gameID string, moves int) error {
	ctx, span := tracer.Start(ctx, "events.PublishGameUpdated", trace.WithAttributes(
		attribute.String("game.id", gameID),
	))
	defer span.End()

	payload, err := json.Marshal(GameUpdatedPayload{GameID: gameID, Moves: moves})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	event, err := json.Marshal(Event{Type: GameUpdated, Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.rdb.Publish(ctx, channel(gameID), event).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to publish event")
		return fmt.Errorf("failed to publish game update: %w", err)
	}
	return nil
}

// Feed is a live stream of one game's updates.
type Feed interface {
	Updates() <-chan GameUpdatedPayload
	Close() error
}

// Subscription delivers updates for one game until Close is called or its
// context ends.
type Subscription struct {
	pubsub  *redis.PubSub
	updates chan GameUpdatedPayload
}

// SubscribeGame waits for the subscription to be confirmed before returning,
// so no update published afterwards is missed.
func (b *Bus) SubscribeGame(ctx context.Context, gameID string) (Feed, error) {
	pubsub := b.rdb.Subscribe(ctx, channel(gameID))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to game %s: %w", gameID, err)
	}

	sub := &Subscription{pubsub: pubsub, updates: make(chan GameUpdatedPayload, 8)}
	go sub.run(ctx)
	return sub, nil
}

func (s *Subscription) run(ctx context.Context) {
	defer close(s.updates)
	for msg := range s.pubsub.Channel() {
		var event Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			slog.WarnContext(ctx, "dropping malformed event", "channel", msg.Channel, "error", err)
			continue
		}
		if event.Type != GameUpdated {
			continue
		}
		var payload GameUpdatedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			slog.WarnContext(ctx, "dropping malformed game update", "channel", msg.Channel, "error", err)
			continue
		}
		select {
		case s.updates <- payload:
		case <-ctx.Done():
			return
		}
	}
}

// Updates is closed once the subscription ends.
func (s *Subscription) Updates() <-chan GameUpdatedPayload {
	return s.updates
}

func (s *Subscription) Close() error {
	return s.pubsub.Close()
}
