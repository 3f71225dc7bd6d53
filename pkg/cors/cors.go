// Package cors は全レスポンスに付与するクロスオリジン用ヘッダーとJSONヘッダーを定義する。
// 常駐プロセスと関数実行環境のどちらでも同じヘッダーを返すために共有する。
package cors

import "net/http"

const (
	// AllowOrigin はAccess-Control-Allow-Originの値。
	AllowOrigin = "*"
	// AllowHeaders はAccess-Control-Allow-Headersの値。
	AllowHeaders = "Content-Type, Authorization"
	// AllowMethods はAccess-Control-Allow-Methodsの値。
	AllowMethods = "GET, POST, OPTIONS"
	// ContentType はレスポンスのContent-Type。
	ContentType = "application/json"
)

// Headers は付与するヘッダーの新しいコピーを返す。
func Headers() http.Header {
	h := make(http.Header, 4)
	Apply(h)
	return h
}

// Apply はhへヘッダーを設定する。既存の同名ヘッダーは上書きする。
func Apply(h http.Header) {
	h.Set("Access-Control-Allow-Origin", AllowOrigin)
	h.Set("Access-Control-Allow-Headers", AllowHeaders)
	h.Set("Access-Control-Allow-Methods", AllowMethods)
	h.Set("Content-Type", ContentType)
}
