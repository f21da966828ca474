// Package gateway は負荷試験コントロールGatewayの内部実装を提供する。
//
// 受け取った負荷試験の操作要求（試験の開始、設定・メトリクス・ハートビート・
// ノード一覧の取得）を上流のオーケストレータへそのまま転送し、その応答を返す。
// Gateway自身は状態を持たず、上流サービスとの通信失敗をクライアント向けの
// エラー応答（{"detail": "..."}）に変換する。
package gateway
