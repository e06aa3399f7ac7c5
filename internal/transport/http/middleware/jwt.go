package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"travelchat/internal/pkg/jwtutil"
	"travelchat/internal/transport/http/response"
)

const (
	ContextUserIDKey   = "user_id"
	ContextUsernameKey = "username"
)

var (
	errMissingHeader = errors.New("missing authorization header")
	errInvalidScheme = errors.New("invalid authorization scheme")
)

func AuthJWT(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := claimsFromHeader(c, secret)
		if err != nil {
			message := "invalid or expired token"
			if errors.Is(err, errMissingHeader) || errors.Is(err, errInvalidScheme) {
				message = err.Error()
			}
			response.Error(c, 401, response.CodeUnauthorized, message)
			c.Abort()
			return
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextUsernameKey, claims.Username)
		c.Next()
	}
}

// OptionalAuth attaches the owner when a valid token is present. Requests
// without one, or with a token that does not verify, continue anonymously
// and only touch the local session cache.
func OptionalAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := claimsFromHeader(c, secret); err == nil {
			c.Set(ContextUserIDKey, claims.UserID)
			c.Set(ContextUsernameKey, claims.Username)
		}
		c.Next()
	}
}

// OwnerID returns the authenticated user id, or "" for anonymous requests.
func OwnerID(c *gin.Context) string {
	return c.GetString(ContextUserIDKey)
}

func claimsFromHeader(c *gin.Context, secret string) (*jwtutil.Claims, error) {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader == "" {
		return nil, errMissingHeader
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(authHeader, prefix) {
		return nil, errInvalidScheme
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
	return jwtutil.ParseToken(secret, token)
}
