// Package gateway はHTTPトランスポートに依存しないリクエスト処理の中核を提供する。
//
// 受け取ったリクエストを静的なルート表でアクションへ解決し、認証が必要なアクションでは
// Bearerトークンを検証してから、リクエストごとにストアを取得して各コンポーネントへ振り分ける。
// 常駐プロセス（internal/server）と関数実行環境（internal/function）は
// どちらもこのパッケージのHandleを呼び出すため、同じ論理リクエストには同じ応答を返す。
package gateway
