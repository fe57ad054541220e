package response

import (
	"errors"
	"log/slog"
	"net/http"

	"ctchen222/tictactoe-minimax/internal/api/service"
	"ctchen222/tictactoe-minimax/internal/game"
	"ctchen222/tictactoe-minimax/internal/repository"

	"github.com/gin-gonic/gin"
)

// Error is the body of a failed request.
type Error struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Extras  string `json:"extras"`
}

func (e Error) Error() string {
	return e.Extras
}

func NewError(success bool, code int, message string) Error {
	return Error{
		Success: success,
		Code:    code,
		Extras:  message,
	}
}

// StatusOf maps a domain error to its HTTP status.
func StatusOf(err error) int {
	var apiErr Error
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Code
	case errors.Is(err, game.ErrInvalidMove),
		errors.Is(err, game.ErrInvalidBoard),
		errors.Is(err, service.ErrGameOver),
		errors.Is(err, service.ErrNotYourTurn):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvalidDifficulty),
		errors.Is(err, service.ErrInvalidComputer):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrGameNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUsernameTaken),
		errors.Is(err, repository.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err with the status StatusOf picks. Internal errors are
// logged and their message is not exposed.
func WriteError(c *gin.Context, err error) {
	code := StatusOf(err)
	message := err.Error()
	if code == http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		message = http.StatusText(code)
	}
	ErrorResponse(c, code, message)
}
