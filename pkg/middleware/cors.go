package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORS は指定されたオリジンからのクロスオリジンリクエストを許可するGinミドルウェアを返す。
// ダッシュボードからGatewayのAPIを直接呼び出すために使用する。
// 許可リストに "*" が含まれる場合はすべてのオリジンを許可する。
func CORS(allowedOrigins []string) gin.HandlerFunc {
	originsSet := make(map[string]struct{}, len(allowedOrigins))
	allowAny := false
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAny = true
			continue
		}
		originsSet[o] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		_, ok := originsSet[origin]
		if origin != "" && (ok || allowAny) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
			c.Header("Access-Control-Expose-Headers", "X-Request-ID")
			c.Header("Access-Control-Max-Age", "86400")
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
