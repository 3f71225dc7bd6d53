// Package server は常駐プロセスとしてリクエストゲートウェイを公開するHTTPサーバーを提供する。
//
// Ginのルーターで受け取ったリクエストをトランスポート非依存の形式へ変換し、
// gateway.Gateway に処理を委譲する。ストアの接続プールはプロセス全体で共有する。
package server
