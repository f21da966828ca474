package event

import "time"

// Operation はGatewayが転送する操作の種類を表す。
type Operation string

const (
	// OperationTriggerLoadTest は負荷試験の開始要求（POST /trigger-load-test）を表す。
	OperationTriggerLoadTest Operation = "TriggerLoadTest"
	// OperationGetTestConfig は試験設定の取得（GET /test-config）を表す。
	OperationGetTestConfig Operation = "GetTestConfig"
	// OperationGetNodeMetrics はノード単位のメトリクス取得（GET /metrics/{nodeid}）を表す。
	OperationGetNodeMetrics Operation = "GetNodeMetrics"
	// OperationGetAllMetrics は全ノードのメトリクス取得（GET /all-metrics）を表す。
	OperationGetAllMetrics Operation = "GetAllMetrics"
	// OperationGetHeartbeat はノードのハートビート取得（GET /heartbeat/{nodeid}）を表す。
	OperationGetHeartbeat Operation = "GetHeartbeat"
	// OperationGetAllNodes は登録済みノード一覧の取得（GET /all-nodes）を表す。
	OperationGetAllNodes Operation = "GetAllNodes"
)

// Outcome は転送1回の結果分類を表す。
type Outcome string

const (
	// OutcomeOK は上流サービスが成功応答を返したことを表す。
	OutcomeOK Outcome = "ok"
	// OutcomeUpstreamHTTPError は上流サービスが4xx/5xxを返したことを表す。
	OutcomeUpstreamHTTPError Outcome = "upstream_http_error"
	// OutcomeUpstreamUnreachable は上流サービスとの通信が完了しなかったことを表す。
	OutcomeUpstreamUnreachable Outcome = "upstream_unreachable"
	// OutcomeMalformedRequest はリクエストボディが不正で転送しなかったことを表す。
	OutcomeMalformedRequest Outcome = "malformed_request"
)

// Forward はGatewayが処理した転送1回分の記録。
// 転送ログに追記されるだけで、レスポンスの内容には影響しない。
type Forward struct {
	// ID は記録の一意識別子（UUID）。
	ID string `json:"id"`
	// RequestID は受信リクエストに割り当てられたリクエストID。
	RequestID string `json:"request_id"`
	// Operation は転送した操作の種類。
	Operation Operation `json:"operation"`
	// Method は上流サービスへ送ったHTTPメソッド。
	Method string `json:"method"`
	// UpstreamURL は上流サービスのリクエスト先URL。
	UpstreamURL string `json:"upstream_url"`
	// StatusCode は上流サービスが返したステータスコード。応答が無い場合は0。
	StatusCode int `json:"status_code"`
	// Outcome は転送の結果分類。
	Outcome Outcome `json:"outcome"`
	// DurationMS は上流サービスとの通信に要した時間（ミリ秒）。
	DurationMS int64 `json:"duration_ms"`
	// CreatedAt は記録が作成された日時。
	CreatedAt time.Time `json:"created_at"`
}
