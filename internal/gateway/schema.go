package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
)

// defaultTestServer はtest_serverが省略された場合に使用する試験対象URL。
const defaultTestServer = "http://localhost:8080/ping"

// LoadTestRequest は負荷試験の開始要求。
// 受信したボディを正規化したうえで、そのまま上流サービスへ転送する。
type LoadTestRequest struct {
	// TestType は試験の種類。
	TestType string `json:"test_type"`
	// TestServer は負荷をかける対象サーバーのURL。
	TestServer string `json:"test_server"`
	// TestMessageDelay はメッセージ送信間隔。
	TestMessageDelay int `json:"test_message_delay"`
	// MessageCountPerDriver はドライバーごとの送信メッセージ数。
	MessageCountPerDriver int `json:"message_count_per_driver"`
}

// TestConfig は上流サービスが返すGET /test-configの応答の形。
// Gatewayはこの型にデコードせず、上流サービスの応答をバイト列のまま返す。
// クライアントやテストが応答を読むときのデコード先として公開している。
type TestConfig struct {
	// TestType は実行中の試験の種類。
	TestType string `json:"TestType"`
}

// loadTestRequestBody は受信したJSONボディのバインド先。
// 必須フィールドの有無を0値と区別するためポインタで受ける。
type loadTestRequestBody struct {
	TestType              *string `json:"test_type" binding:"required"`
	TestServer            optionalString `json:"test_server"`
	TestMessageDelay      *int    `json:"test_message_delay" binding:"required"`
	MessageCountPerDriver *int    `json:"message_count_per_driver" binding:"required"`
}

// normalize はデフォルト値を補ったLoadTestRequestを返す。
func (b loadTestRequestBody) normalize() LoadTestRequest {
	req := LoadTestRequest{
		TestType:              *b.TestType,
		TestServer:            defaultTestServer,
		TestMessageDelay:      *b.TestMessageDelay,
		MessageCountPerDriver: *b.MessageCountPerDriver,
	}
	if b.TestServer.set {
		req.TestServer = b.TestServer.value
	}
	return req
}

// errNullValue はnullを受け付けないフィールドにnullが指定されたことを表す。
var errNullValue = errors.New("nullは指定できません")

// optionalString は省略できるがnullは受け付けない文字列フィールド。
type optionalString struct {
	value string
	set   bool
}

// UnmarshalJSON はJSONの文字列を受け取る。nullはエラーにする。
func (o *optionalString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return errNullValue
	}
	if err := json.Unmarshal(data, &o.value); err != nil {
		return err
	}
	o.set = true
	return nil
}

// errorResponse はすべてのエラー応答のJSON構造。
type errorResponse struct {
	// Detail はエラーの詳細メッセージ。
	Detail string `json:"detail"`
}
