// 負荷試験コントロールGatewayのエントリポイント。
// 受け取った負荷試験の操作要求を上流のオーケストレータへ転送し、その応答を返す。
// 上流サービスのURL、ポート等はすべて環境変数で設定する。
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/loadgate/internal/gateway"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Gatewayサービスの起動に失敗: %v", err)
	}
}

func run() error {
	cfg, err := gateway.LoadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, err := gateway.NewServer(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := server.Close(); err != nil {
			log.Printf("Gatewayサーバーの終了処理に失敗: %v", err)
		}
	}()

	log.Printf("Gatewayサービスを起動します: :%s (upstream=%s)", cfg.Port, cfg.OrchestratorURL)
	return server.Run(ctx)
}
