package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/clipforge-backend/internal/auth"
	"github.com/yungbote/clipforge-backend/internal/http/response"
	"github.com/yungbote/clipforge-backend/internal/platform/logger"
)

const claimsKey = "task_claims"

type AuthMiddleware struct {
	log    *logger.Logger
	tokens *auth.TokenService
}

func NewAuthMiddleware(log *logger.Logger, tokens *auth.TokenService) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "AuthMiddleware"), tokens: tokens}
}

// RequireTaskToken verifies the X-Auth-Token bearer JWT on every pipeline
// endpoint. The webhook route is registered outside this middleware.
func (am *AuthMiddleware) RequireTaskToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractBearer(c.GetHeader("X-Auth-Token"))
		if tokenString == "" {
			response.Error(c, http.StatusUnauthorized, fmt.Errorf("missing or invalid token"))
			c.Abort()
			return
		}
		claims, err := am.tokens.Verify(tokenString)
		if err != nil {
			am.log.Debug("Task token rejected", "error", err)
			response.Error(c, http.StatusUnauthorized, fmt.Errorf("missing or invalid token"))
			c.Abort()
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// TaskClaims returns the verified claims attached by RequireTaskToken.
func TaskClaims(c *gin.Context) *auth.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

func extractBearer(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
