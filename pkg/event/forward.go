package event

import (
	"time"

	"github.com/google/uuid"
)

// NewForward は新しい転送記録を生成する。
// 結果はComplete呼び出しまで未確定のまま保持する。
func NewForward(requestID string, op Operation, method, upstreamURL string) *Forward {
	return &Forward{
		ID:          uuid.New().String(),
		RequestID:   requestID,
		Operation:   op,
		Method:      method,
		UpstreamURL: upstreamURL,
		CreatedAt:   time.Now().UTC(),
	}
}

// Complete は転送結果を記録に設定する。
// 所要時間はCreatedAtからの経過時間として計算する。
func (f *Forward) Complete(statusCode int, outcome Outcome) {
	f.StatusCode = statusCode
	f.Outcome = outcome
	f.DurationMS = time.Since(f.CreatedAt).Milliseconds()
}
