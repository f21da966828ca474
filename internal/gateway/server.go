package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/loadgate/pkg/event"
	"github.com/nao1215/loadgate/pkg/httpclient"
	"github.com/nao1215/loadgate/pkg/middleware"
)

// shutdownTimeout は停止時に処理中のリクエストの完了を待つ最大時間。
const shutdownTimeout = 10 * time.Second

// Server はGatewayサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// upstream は上流オーケストレータとの通信クライアント。全リクエストで共有する。
	upstream *httpclient.Client
	// forwardLog は転送記録の保存先。
	forwardLog ForwardLog
}

// NewServer は新しいGatewayサーバーを生成する。
// 上流サービスとの通信クライアントはここで1つだけ生成し、Closeで解放する。
func NewServer(ctx context.Context, cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定が不正: %w", err)
	}

	forwardLog, err := openForwardLog(ctx, cfg.ForwardLogDB)
	if err != nil {
		return nil, fmt.Errorf("転送ログの初期化に失敗: %w", err)
	}

	router := gin.New()
	// %2Fを含むnodeidも1つのパスパラメータとして扱う
	router.UseRawPath = true
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	s := &Server{
		router:     router,
		port:       cfg.Port,
		upstream:   httpclient.New(cfg.OrchestratorURL, httpclient.WithTimeout(cfg.UpstreamTimeout)),
		forwardLog: forwardLog,
	}
	s.setupRoutes()

	return s, nil
}

// Handler はGatewayのHTTPハンドラを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はHTTPサーバーを起動し、ctxがキャンセルされるまで待つ。
// キャンセル後は処理中のリクエストの完了を待ってから停止する。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTPサーバーの起動に失敗: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Printf("Gatewayサービスを停止します")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTPサーバーの停止に失敗: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// Close は上流サービスとの接続と転送ログを解放する。
func (s *Server) Close() error {
	s.upstream.CloseIdleConnections()
	if err := s.forwardLog.Close(); err != nil {
		return fmt.Errorf("転送ログのクローズに失敗: %w", err)
	}
	return nil
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	// 負荷試験の開始（ボディを検証して転送）
	s.router.POST("/trigger-load-test", s.handleTriggerLoadTest())

	// 試験設定・メトリクス・ハートビート・ノード一覧（GETをそのまま転送）
	s.router.GET("/test-config", s.handleForward(event.OperationGetTestConfig, "/test-config"))
	s.router.GET("/metrics/:nodeid", s.handleForwardWithParam(event.OperationGetNodeMetrics, "/metrics/", "nodeid"))
	s.router.GET("/all-metrics", s.handleForward(event.OperationGetAllMetrics, "/all-metrics"))
	s.router.GET("/heartbeat/:nodeid", s.handleForwardWithParam(event.OperationGetHeartbeat, "/heartbeat/", "nodeid"))
	s.router.GET("/all-nodes", s.handleForward(event.OperationGetAllNodes, "/all-nodes"))

	// 転送ログ
	s.router.GET("/forward-log", s.handleListForwards())

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "gateway"})
	})
}
