package gateway

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/nao1215/loadgate/pkg/httpclient"
)

// Config はGatewayの設定。すべて環境変数から読み込む。
type Config struct {
	// Port はサーバーのリッスンポート。
	Port string
	// OrchestratorURL は転送先オーケストレータのベースURL。
	OrchestratorURL string
	// UpstreamTimeout は上流サービスへのリクエストのタイムアウト。
	UpstreamTimeout time.Duration
	// AllowedOrigins はCORSで許可するオリジン。
	AllowedOrigins []string
	// ForwardLogDB は転送ログを保存するSQLiteファイルのパス。空の場合は転送ログを無効にする。
	ForwardLogDB string
}

// LoadConfig は環境変数からGatewayの設定を読み込む。
func LoadConfig() (Config, error) {
	timeout, err := time.ParseDuration(getEnvOr("UPSTREAM_TIMEOUT", httpclient.DefaultTimeout.String()))
	if err != nil {
		return Config{}, fmt.Errorf("UPSTREAM_TIMEOUTの解析に失敗: %w", err)
	}

	cfg := Config{
		Port:            getEnvOr("PORT", "8000"),
		OrchestratorURL: getEnvOr("ORCHESTRATOR_URL", "http://localhost:8081/"),
		UpstreamTimeout: timeout,
		AllowedOrigins:  splitList(getEnvOr("ALLOWED_ORIGINS", "http://localhost:3000")),
		ForwardLogDB:    os.Getenv("GATEWAY_FORWARD_LOG_DB"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate は設定値を検証する。
func (c Config) Validate() error {
	u, err := url.Parse(c.OrchestratorURL)
	if err != nil {
		return fmt.Errorf("ORCHESTRATOR_URLの解析に失敗: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("ORCHESTRATOR_URLはhttp(s)の絶対URLである必要があります: %q", c.OrchestratorURL)
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUTは正の値である必要があります: %s", c.UpstreamTimeout)
	}
	if c.Port == "" {
		return fmt.Errorf("PORTが空です")
	}
	return nil
}

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// splitList はカンマ区切りの文字列を空要素を除いて分割する。
func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
