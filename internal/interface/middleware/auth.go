package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-user-session/pkg/apperror"
	"github.com/oksasatya/go-user-session/pkg/helpers"
	"github.com/oksasatya/go-user-session/pkg/response"
)

// CtxUserIDKey holds the authenticated identity id.
const CtxUserIDKey = "userID"

// AccessVerifier is satisfied by helpers.JWTManager.
type AccessVerifier interface {
	Verify(token string, kind helpers.TokenKind) (*helpers.Claims, error)
}

// Auth validates the access token from the access_token cookie, falling back
// to an "Authorization: Bearer" header, and sets userID in the Gin context.
// Access tokens are stateless; no store lookup happens here.
func Auth(tokens AccessVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := accessToken(c)
		if token == "" {
			response.Fail(c, apperror.Unauthorized("unauthorized request"))
			return
		}
		claims, err := tokens.Verify(token, helpers.AccessToken)
		if err != nil {
			response.Fail(c, apperror.Unauthorized("invalid access token"))
			return
		}
		c.Set(CtxUserIDKey, claims.UserID)
		c.Next()
	}
}

func accessToken(c *gin.Context) string {
	if v, err := c.Cookie(helpers.AccessCookie); err == nil && v != "" {
		return v
	}
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
