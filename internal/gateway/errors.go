package gateway

import (
	"errors"
	"net/http"

	"github.com/nao1215/loadgate/pkg/event"
	"github.com/nao1215/loadgate/pkg/httpclient"
)

const (
	// DetailHTTPError は上流サービスが2xx以外を返した場合のエラー詳細。
	DetailHTTPError = "HTTP Error occurred"
	// DetailRequestError は上流サービスとの通信が完了しなかった場合のエラー詳細。
	DetailRequestError = "Request Error occurred"
	// DetailMalformedRequest はリクエストボディが不正な場合のエラー詳細。
	DetailMalformedRequest = "Malformed request body"
	// DetailForwardLogDisabled は転送ログが無効な場合のエラー詳細。
	DetailForwardLogDisabled = "Forward log is disabled"
	// DetailInvalidLimit はlimitパラメータが不正な場合のエラー詳細。
	DetailInvalidLimit = "Invalid limit"
)

// upstreamFailure は上流サービスとの通信失敗をクライアント向けの応答に変換した結果。
type upstreamFailure struct {
	// status はクライアントに返すHTTPステータスコード。
	status int
	// upstreamStatus は上流サービスが返したステータスコード。応答が無い場合は0。
	upstreamStatus int
	// detail はクライアントに返すエラー詳細。
	detail string
	// outcome は転送記録に残す結果分類。
	outcome event.Outcome
}

// classifyUpstreamError は上流サービスとの通信エラーを分類する。
// 2xx以外の応答は上流サービスのステータスコードをそのまま返し、それ以外はすべて500にする。
func classifyUpstreamError(err error) upstreamFailure {
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		return upstreamFailure{
			status:         statusErr.StatusCode,
			upstreamStatus: statusErr.StatusCode,
			detail:         DetailHTTPError,
			outcome:        event.OutcomeUpstreamHTTPError,
		}
	}
	return upstreamFailure{
		status:  http.StatusInternalServerError,
		detail:  DetailRequestError,
		outcome: event.OutcomeUpstreamUnreachable,
	}
}
