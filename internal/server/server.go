package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"ctchen222/tictactoe-minimax/internal/api/controller"
	"ctchen222/tictactoe-minimax/internal/api/middleware"
	"ctchen222/tictactoe-minimax/internal/api/service"
	"ctchen222/tictactoe-minimax/internal/events"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("server")

// Subscriber streams update notifications for one game.
type Subscriber interface {
	SubscribeGame(ctx context.Context, gameID string) (events.Feed, error)
}

// Deps are the services the HTTP surface exposes. Subscriber may be nil, in
// which case websockets only see their own moves.
type Deps struct {
	Users      service.UserService
	Games      service.GameService
	Solver     service.SolverService
	Subscriber Subscriber
	// Checks are run by /healthz, keyed by component name.
	Checks map[string]func(context.Context) error
}

type Server struct {
	engine     *gin.Engine
	upgrader   websocket.Upgrader
	games      service.GameService
	subscriber Subscriber
	checks     map[string]func(context.Context) error
}

func NewServer(d Deps) *Server {
	s := &Server{
		engine:     gin.New(),
		games:      d.Games,
		subscriber: d.Subscriber,
		checks:     d.Checks,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	s.engine.Use(gin.Recovery(), requestLogger())
	s.registerRoutes(d)
	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes(d Deps) {
	userController := controller.NewUserController(d.Users)
	gameController := controller.NewGameController(d.Games)
	solveController := controller.NewSolveController(d.Solver)

	optionalAuth := middleware.Auth(d.Users, false)
	requiredAuth := middleware.Auth(d.Users, true)

	s.engine.GET("/healthz", s.handleHealth)

	v1 := s.engine.Group("/api/v1")
	{
		users := v1.Group("/users")
		users.POST("/register", userController.Register)
		users.POST("/login", userController.Login)
		users.POST("/guest", userController.GuestLogin)

		v1.POST("/solve", solveController.Solve)

		games := v1.Group("/games", optionalAuth)
		games.POST("", gameController.Create)
		games.GET("/:id", gameController.Get)
		games.POST("/:id/moves", gameController.Move)
		games.GET("/:id/hint", gameController.Hint)

		v1.GET("/history", requiredAuth, gameController.History)
		v1.GET("/ws/games/:id", optionalAuth, s.handleGameSocket)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failing := gin.H{}
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			slog.WarnContext(ctx, "health check failed", "component", name, "error", err)
			failing[name] = err.Error()
		}
	}
	if len(failing) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "failing": failing})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
