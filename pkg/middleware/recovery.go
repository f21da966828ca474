package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// InternalErrorDetail はパニック発生時にクライアントへ返すエラー詳細。
const InternalErrorDetail = "Internal Server Error"

// Recovery はパニックからの回復を行うGinミドルウェアを返す。
// パニック発生時にリクエストIDとスタックトレースをログに出力し、
// {"detail": "Internal Server Error"} を500で返す。
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[PANIC] %s %s request_id=%s: %v\n%s",
					c.Request.Method, c.Request.URL.Path, GetRequestID(c), r, debug.Stack())
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"detail": InternalErrorDetail,
				})
			}
		}()
		c.Next()
	}
}
