// Package middleware はGinベースのHTTPサーバーで使用する共通ミドルウェアを提供する。
//
// パニックリカバリ、リクエストIDの採番、アクセスログ、
// CORSヘッダーの付与など、トランスポート層で共通して使用するミドルウェアを含む。
package middleware
