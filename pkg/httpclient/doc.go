// Package httpclient は上流サービス（オーケストレータ）とのHTTP通信を行うクライアントを提供する。
//
// Gatewayが受け取ったリクエストを上流サービスへ転送する際に使用する。
// クライアントはプロセス起動時に1つだけ生成して全リクエストで共有し、
// 2xx以外の応答と通信失敗をそれぞれ型付きのエラーとして返す。
package httpclient
