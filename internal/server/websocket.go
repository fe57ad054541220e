package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"ctchen222/tictactoe-minimax/internal/api/response"
	"ctchen222/tictactoe-minimax/internal/events"
	"ctchen222/tictactoe-minimax/internal/validator"
	"ctchen222/tictactoe-minimax/pkg/proto"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const writeWait = 10 * time.Second

// wsClient serializes writes to one connection and remembers how far into the
// game the client has been told.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
	seen int
}

func (c *wsClient) send(ctx context.Context, msg *proto.ServerToClientMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling message", "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if msg.Type == proto.TypeUpdate {
		c.seen = max(c.seen, len(msg.Moves))
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.WarnContext(ctx, "error writing message", "message.type", msg.Type, "error", err)
	}
}

func (c *wsClient) behind(moves int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return moves > c.seen
}

// handleGameSocket upgrades the connection and plays one game over it. Moves
// made elsewhere are pushed as updates when a Subscriber is configured. The
// subscription is taken before the first snapshot is loaded, so a move made
// in between arrives as an update instead of being lost.
func (s *Server) handleGameSocket(c *gin.Context) {
	gameID := c.Param("id")
	ctx, span := tracer.Start(c.Request.Context(), "server.handleGameSocket", trace.WithAttributes(
		attribute.String("game.id", gameID),
	))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var feed events.Feed
	if s.subscriber != nil {
		var err error
		feed, err = s.subscriber.SubscribeGame(ctx, gameID)
		if err != nil {
			slog.WarnContext(ctx, "live updates unavailable", "game.id", gameID, "error", err)
		} else {
			defer feed.Close()
		}
	}

	session, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Game not available")
		span.End()
		response.WriteError(c, err)
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.ErrorContext(ctx, "failed to upgrade connection", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to upgrade connection")
		span.End()
		return
	}
	span.End()

	client := &wsClient{conn: conn}
	defer conn.Close()

	client.send(ctx, proto.NewUpdate(session))
	if feed != nil {
		go s.forwardUpdates(ctx, client, gameID, feed)
	}

	slog.InfoContext(ctx, "websocket connected", "game.id", gameID)
	s.readLoop(ctx, client, gameID)
	slog.InfoContext(ctx, "websocket disconnected", "game.id", gameID)
}

func (s *Server) forwardUpdates(ctx context.Context, client *wsClient, gameID string, feed events.Feed) {
	for update := range feed.Updates() {
		if !client.behind(update.Moves) {
			continue
		}
		session, err := s.games.GetGame(ctx, gameID)
		if err != nil {
			slog.WarnContext(ctx, "could not load updated game", "game.id", gameID, "error", err)
			continue
		}
		client.send(ctx, proto.NewUpdate(session))
	}
}

func (s *Server) readLoop(ctx context.Context, client *wsClient, gameID string) {
	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.WarnContext(ctx, "unexpected websocket close", "game.id", gameID, "error", err)
			}
			return
		}

		var msg proto.ClientToServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			client.send(ctx, proto.NewError("malformed message"))
			continue
		}
		if err := validator.Struct(&msg); err != nil {
			client.send(ctx, proto.NewError(err.Error()))
			continue
		}

		switch msg.Type {
		case proto.TypeMove:
			move, ok := msg.Action()
			if !ok {
				client.send(ctx, proto.NewError("move requires a position"))
				continue
			}
			session, err := s.games.Play(ctx, gameID, move)
			if err != nil {
				client.send(ctx, errorMessage(ctx, err))
				continue
			}
			client.send(ctx, proto.NewUpdate(session))
		case proto.TypeHint:
			session, an, err := s.games.Hint(ctx, gameID)
			if err != nil {
				client.send(ctx, errorMessage(ctx, err))
				continue
			}
			client.send(ctx, proto.NewHint(session, an))
		}
	}
}

func errorMessage(ctx context.Context, err error) *proto.ServerToClientMessage {
	if response.StatusOf(err) == http.StatusInternalServerError {
		slog.ErrorContext(ctx, "websocket request failed", "error", err)
		return proto.NewError(http.StatusText(http.StatusInternalServerError))
	}
	return proto.NewError(err.Error())
}
