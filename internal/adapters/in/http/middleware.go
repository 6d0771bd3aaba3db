package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/malakchat/chatapp/internal/ports/in"
)

// AuthMiddleware 解析 Bearer 令牌并把 user_id 放进上下文
func AuthMiddleware(authUC in.AuthUseCase) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		userID, err := authUC.ResolveToken(c.Request.Context(), strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}
