package controller

import (
	"net/http"

	"ctchen222/tictactoe-minimax/internal/api/models"
	"ctchen222/tictactoe-minimax/internal/api/response"
	"ctchen222/tictactoe-minimax/internal/api/service"

	"github.com/gin-gonic/gin"
)

// SolveController analyzes boards posted by clients.
type SolveController struct {
	solverService service.SolverService
}

func NewSolveController(solverService service.SolverService) *SolveController {
	return &SolveController{solverService: solverService}
}

func (sc *SolveController) Solve(c *gin.Context) {
	var req models.SolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	board, an, err := sc.solverService.Solve(c.Request.Context(), req.Board)
	if err != nil {
		response.WriteError(c, err)
		return
	}

	response.SuccessResponse(c, models.NewAnalysisResponse(board, an))
}
