package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/loadgate/pkg/event"
	"github.com/nao1215/loadgate/pkg/httpclient"
	"github.com/nao1215/loadgate/pkg/middleware"
)

const (
	// defaultForwardLogLimit は転送ログ取得時のデフォルト件数。
	defaultForwardLogLimit = 50
	// maxForwardLogLimit は転送ログ取得時の最大件数。
	maxForwardLogLimit = 500
)

// handleTriggerLoadTest は負荷試験の開始要求を検証して上流サービスへ転送するハンドラを返す。
// ボディが不正な場合は上流サービスを呼ばずに422を返す。
func (s *Server) handleTriggerLoadTest() gin.HandlerFunc {
	const path = "/trigger-load-test"
	return func(c *gin.Context) {
		var body loadTestRequestBody
		if err := c.ShouldBindJSON(&body); err != nil {
			log.Printf("不正なリクエストボディ: request_id=%s, error=%v", middleware.GetRequestID(c), err)
			rec := event.NewForward(middleware.GetRequestID(c), event.OperationTriggerLoadTest, http.MethodPost, s.upstream.URL(path))
			rec.Complete(0, event.OutcomeMalformedRequest)
			s.record(c.Request.Context(), rec)
			c.JSON(http.StatusUnprocessableEntity, errorResponse{Detail: DetailMalformedRequest})
			return
		}

		s.doForward(c, event.OperationTriggerLoadTest, http.MethodPost, path, body.normalize())
	}
}

// handleForward は固定パスへGETリクエストを転送するハンドラを返す。
func (s *Server) handleForward(op event.Operation, path string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.doForward(c, op, http.MethodGet, path, nil)
	}
}

// handleForwardWithParam はURLパラメータを含むパスへGETリクエストを転送するハンドラを返す。
// パラメータは1つのパスセグメントとしてエスケープしたうえでpathPrefixの後ろに連結する。
func (s *Server) handleForwardWithParam(op event.Operation, pathPrefix, paramName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.doForward(c, op, http.MethodGet, pathPrefix+escapePathSegment(c.Param(paramName)), nil)
	}
}

// escapePathSegment はsをパスの1セグメントとしてエスケープする。
// セグメント内で使える文字（RFC 3986のpchar）はそのまま残し、
// "/"、"?"、"#"、"%"や空白などURLの構造を変える文字だけをパーセントエンコードする。
func escapePathSegment(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isSegmentChar(c) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

// isSegmentChar はcがエスケープせずにパスセグメントへ置ける文字かを返す。
func isSegmentChar(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-._~!$&'()*+,;=:@", c) >= 0
}

// doForward はリクエストを上流サービスへ1回だけ転送する共通処理。
// 成功時は上流サービスのJSONボディをステータス200でそのまま返し、
// 失敗時は{"detail": "..."}を返す。
func (s *Server) doForward(c *gin.Context, op event.Operation, method, path string, body any) {
	requestID := middleware.GetRequestID(c)
	ctx := httpclient.WithRequestID(c.Request.Context(), requestID)
	rec := event.NewForward(requestID, op, method, s.upstream.URL(path))

	resp, err := s.upstream.Forward(ctx, method, path, body)
	if err != nil {
		failure := classifyUpstreamError(err)
		rec.Complete(failure.upstreamStatus, failure.outcome)
		s.record(ctx, rec)
		log.Printf("プロキシエラー: request_id=%s, url=%s, error=%v", requestID, rec.UpstreamURL, err)
		c.JSON(failure.status, errorResponse{Detail: failure.detail})
		return
	}

	rec.Complete(resp.StatusCode, event.OutcomeOK)
	s.record(ctx, rec)
	c.Data(http.StatusOK, "application/json; charset=utf-8", resp.Body)
}

// record は転送記録を保存する。失敗してもクライアントへの応答には影響させない。
// クライアントが切断していても記録は残す。
func (s *Server) record(ctx context.Context, rec *event.Forward) {
	if err := s.forwardLog.Record(context.WithoutCancel(ctx), rec); err != nil {
		log.Printf("転送記録の保存エラー: id=%s, error=%v", rec.ID, err)
	}
}

// handleListForwards は新しい順に転送記録を返すハンドラを返す。
// クエリパラメータlimitで件数を指定できる（1〜500、デフォルト50）。
func (s *Server) handleListForwards() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := defaultForwardLogLimit
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > maxForwardLogLimit {
				c.JSON(http.StatusUnprocessableEntity, errorResponse{Detail: DetailInvalidLimit})
				return
			}
			limit = n
		}

		forwards, err := s.forwardLog.Recent(c.Request.Context(), limit)
		if errors.Is(err, ErrForwardLogDisabled) {
			c.JSON(http.StatusNotFound, errorResponse{Detail: DetailForwardLogDisabled})
			return
		}
		if err != nil {
			log.Printf("転送記録の取得エラー: %v", err)
			c.JSON(http.StatusInternalServerError, errorResponse{Detail: middleware.InternalErrorDetail})
			return
		}

		c.JSON(http.StatusOK, gin.H{"forwards": forwards})
	}
}
