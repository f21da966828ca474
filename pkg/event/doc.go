// Package event はGatewayが転送したリクエストの記録モデルを提供する。
//
// 転送1回ごとにForwardを1件生成し、上流サービスの応答結果を分類して保持する。
// 記録は転送ログ（SQLite）に追記されるだけで、Gatewayの応答には影響しない。
package event
