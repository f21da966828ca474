package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout は上流サービスへのリクエストのデフォルトタイムアウト。
const DefaultTimeout = 30 * time.Second

// HeaderRequestID はリクエストIDを上流サービスへ伝播するHTTPヘッダーキー。
const HeaderRequestID = "X-Request-ID"

// ErrInvalidJSON は上流サービスの成功レスポンスがJSONとして解釈できないことを表す。
var ErrInvalidJSON = errors.New("レスポンスボディが不正なJSON")

// Client は上流サービスとの通信用HTTPクライアント。
// プロセス全体で1つを共有し、読み取り専用で使用する。
type Client struct {
	// httpClient は内部で使用するHTTPクライアント。コネクションプールを保持する。
	httpClient *http.Client
	// baseURL は接続先サービスのベースURL。末尾のスラッシュは取り除いて保持する。
	baseURL string
}

// Option はClientの生成オプション。
type Option func(*Client)

// WithTimeout はリクエスト全体のタイムアウトを設定する。
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// New は新しいHTTPクライアントを生成する。
// baseURLには接続先サービスのベースURL（例: "http://localhost:8081/"）を指定する。
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			// リダイレクトは追わず、3xxも上流サービスのエラーとして扱う
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StatusError は上流サービスが2xx以外（3xx/4xx/5xx）を返したことを表す。
type StatusError struct {
	// StatusCode は上流サービスが返したHTTPステータスコード。
	StatusCode int
	// Body は上流サービスが返したレスポンスボディ。
	Body []byte
}

// Error はエラーメッセージを返す。
func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTPエラー: status=%d, body=%s", e.StatusCode, string(e.Body))
}

// TransportError は上流サービスとの通信自体が完了しなかったことを表す。
// 接続拒否、タイムアウト、名前解決の失敗などが該当する。
type TransportError struct {
	// Method はHTTPメソッド。
	Method string
	// URL はリクエスト先のURL。
	URL string
	// Err は原因となったエラー。
	Err error
}

// Error はエラーメッセージを返す。
func (e *TransportError) Error() string {
	return fmt.Sprintf("HTTPリクエストの送信に失敗: %s %s: %v", e.Method, e.URL, e.Err)
}

// Unwrap は原因となったエラーを返す。
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Response は上流サービスの成功応答。
type Response struct {
	// StatusCode は上流サービスが返したHTTPステータスコード。
	StatusCode int
	// Body はJSONとして検証済みのレスポンスボディ。
	Body json.RawMessage
}

// URL はベースURLとパスを連結したURLを返す。
func (c *Client) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// Forward は指定パスにリクエストを1回だけ送信し、成功時のJSONボディを加工せずに返す。
// bodyがnilの場合はリクエストボディを付けない。空のレスポンスボディはJSONのnullとして返す。
// 2xx以外は*StatusError、通信失敗は*TransportErrorとして返す。リダイレクトは追わない。
func (c *Client) Forward(ctx context.Context, method, path string, body any) (*Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("リクエストボディのシリアライズに失敗: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	url := c.URL(path)
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// コンテキストからリクエストIDを伝播する
	if requestID, ok := ctx.Value(contextKeyRequestID).(string); ok {
		req.Header.Set(HeaderRequestID, requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Method: method, URL: url, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: method, URL: url, Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: respBody}
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		respBody = []byte("null")
	}
	if !json.Valid(respBody) {
		return nil, fmt.Errorf("%s %s: %w", method, url, ErrInvalidJSON)
	}
	return &Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}

// CloseIdleConnections はコネクションプール内のアイドル接続を閉じる。
// プロセス終了時に呼び出す。
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// contextKey はコンテキストキーの型。
type contextKey string

// contextKeyRequestID はコンテキストにリクエストIDを格納するためのキー。
const contextKeyRequestID contextKey = "request_id"

// WithRequestID はコンテキストにリクエストIDを設定する。
// 上流サービスへの通信時にリクエストIDを伝播するために使用する。
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}
