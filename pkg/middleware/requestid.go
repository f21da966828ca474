package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderKeyRequestID はリクエストIDを運ぶHTTPヘッダーキー。
const HeaderKeyRequestID = "X-Request-ID"

// contextKeyRequestID はGinコンテキストにリクエストIDを格納するキー。
const contextKeyRequestID = "request_id"

// maxRequestIDLength はクライアントから受け付けるリクエストIDの最大長。
const maxRequestIDLength = 128

// RequestID はリクエストごとに一意なIDを割り当てるGinミドルウェアを返す。
// クライアントがX-Request-IDヘッダーを付けていればそれを引き継ぎ、
// 無い場合や長すぎる場合はUUIDを新規に発行する。IDはレスポンスヘッダーにも設定する。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderKeyRequestID)
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.New().String()
		}

		c.Set(contextKeyRequestID, requestID)
		c.Header(HeaderKeyRequestID, requestID)
		c.Next()
	}
}

// GetRequestID はGinコンテキストからリクエストIDを取得する。
// RequestIDミドルウェアが適用されていない場合は空文字列を返す。
func GetRequestID(c *gin.Context) string {
	requestID, _ := c.Get(contextKeyRequestID)
	if id, ok := requestID.(string); ok {
		return id
	}
	return ""
}
