package middleware

import (
	"strings"

	"momogate/config"
	"momogate/internal/auth"
	"momogate/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const userIDKey = "user_id"

// OptionalAuth records the caller identity when a valid bearer token is present.
// Requests without one, or with one that fails to parse, continue as guests.
func OptionalAuth(cfg *config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || cfg.AccessSecret == "" {
			c.Next()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.Next()
			return
		}
		claims, err := auth.ParseAccessToken(cfg, parts[1])
		if err != nil {
			zerolog.Ctx(c.Request.Context()).Debug().Err(err).Msg("ignoring bearer token")
			c.Next()
			return
		}
		c.Set(userIDKey, claims.Identity())
		c.Next()
	}
}

// GetUserID returns the authenticated caller, or "guest".
func GetUserID(c *gin.Context) string {
	if v := c.GetString(userIDKey); v != "" {
		return v
	}
	return domain.GuestUserID
}
