package controller

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"ctchen222/tictactoe-minimax/internal/api/middleware"
	"ctchen222/tictactoe-minimax/internal/api/models"
	"ctchen222/tictactoe-minimax/internal/api/response"
	"ctchen222/tictactoe-minimax/internal/api/service"
	"ctchen222/tictactoe-minimax/internal/game"

	"github.com/gin-gonic/gin"
)

// GameController handles game sessions, hints and history.
type GameController struct {
	gameService service.GameService
}

func NewGameController(gameService service.GameService) *GameController {
	return &GameController{gameService: gameService}
}

// Create starts a game. An empty body starts a game between two humans.
func (gc *GameController) Create(c *gin.Context) {
	var req models.NewGameRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	session, err := gc.gameService.NewGame(c.Request.Context(), &req, middleware.PlayerID(c))
	if err != nil {
		response.WriteError(c, err)
		return
	}

	response.CreatedResponse(c, models.NewGameResponse(session))
}

func (gc *GameController) Get(c *gin.Context) {
	session, err := gc.gameService.GetGame(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.WriteError(c, err)
		return
	}

	response.SuccessResponse(c, models.NewGameResponse(session))
}

// Move plays the human's move and, when the computer is in the game, its reply.
func (gc *GameController) Move(c *gin.Context) {
	var req models.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	move := game.Action{Row: *req.Row, Col: *req.Col}
	session, err := gc.gameService.Play(c.Request.Context(), c.Param("id"), move)
	if err != nil {
		response.WriteError(c, err)
		return
	}

	response.SuccessResponse(c, models.NewGameResponse(session))
}

func (gc *GameController) Hint(c *gin.Context) {
	session, an, err := gc.gameService.Hint(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.WriteError(c, err)
		return
	}

	response.SuccessResponse(c, models.NewAnalysisResponse(session.Board, an))
}

// History lists the authenticated player's finished games, newest first.
func (gc *GameController) History(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.ErrorResponse(c, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	records, err := gc.gameService.History(c.Request.Context(), middleware.PlayerID(c), limit)
	if err != nil {
		response.WriteError(c, err)
		return
	}

	response.SuccessResponse(c, models.HistoryResponse{Games: records})
}
