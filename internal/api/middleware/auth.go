package middleware

import (
	"net/http"
	"strings"

	"ctchen222/tictactoe-minimax/internal/api/models"
	"ctchen222/tictactoe-minimax/internal/api/response"

	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

// TokenParser verifies bearer tokens.
type TokenParser interface {
	ParseToken(tokenString string) (*models.Claims, error)
}

// Auth reads a token from the Authorization header or, for websocket
// clients, the "token" query parameter. Without required, requests lacking a
// token pass through anonymously, but a bad token is still rejected.
func Auth(parser TokenParser, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			if required {
				response.ErrorResponse(c, http.StatusUnauthorized, "missing token")
				c.Abort()
				return
			}
			c.Next()
			return
		}

		claims, err := parser.ParseToken(token)
		if err != nil {
			response.ErrorResponse(c, http.StatusUnauthorized, err.Error())
			c.Abort()
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return c.Query("token")
}

// PlayerID returns the authenticated player's id, or "" for anonymous requests.
func PlayerID(c *gin.Context) string {
	v, ok := c.Get(claimsKey)
	if !ok {
		return ""
	}
	claims, ok := v.(*models.Claims)
	if !ok {
		return ""
	}
	return claims.Subject
}
