// Package middleware はGatewayのGin HTTP APIで使用する共通ミドルウェアを提供する。
//
// リクエストIDの付与、パニックリカバリ、ダッシュボード向けのCORS設定を含む。
package middleware
