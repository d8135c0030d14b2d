package middleware

import (
	"net/http"
	"strings"

	"buildhub/internal/pkg/jwt"
	"buildhub/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	CtxUserID = "user_id"
	CtxEmail  = "email"
	CtxRole   = "role"
)

// JWTAuth validates the bearer token and stores the caller in the context.
// Browsers cannot set headers on websocket upgrades, so a "token" query
// parameter is accepted when the header is absent.
func JWTAuth(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var raw string

		authHeader := c.GetHeader("Authorization")
		switch {
		case authHeader != "":
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				response.Abort(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Authorization header must be Bearer token")
				return
			}
			raw = strings.TrimSpace(parts[1])
		case c.Query("token") != "":
			raw = c.Query("token")
		default:
			response.Abort(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Authorization header is required")
			return
		}

		claims, err := jwtService.ValidateToken(raw)
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired")
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxEmail, claims.Email)
		c.Set(CtxRole, claims.Role)
		c.Next()
	}
}

// UserID returns the authenticated caller id, or "" outside JWTAuth.
func UserID(c *gin.Context) string {
	return c.GetString(CtxUserID)
}
