package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

// AgentAuthMiddleware guards the intake endpoints the check pipeline reports
// to. Agents authenticate with the shared key from AGENT_API_KEY.
func AgentAuthMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		expected := os.Getenv("AGENT_API_KEY")

		if expected == "" {
			ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Agent intake is not configured"})
			return
		}

		provided := ctx.GetHeader("X-Agent-Key")

		if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid agent key"})
			return
		}

		ctx.Next()
	}
}
