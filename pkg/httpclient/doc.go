// Package httpclient は外部APIとのHTTP通信を行うクライアントを提供する。
//
// 音声合成プロバイダのように応答時間が読めない相手に対して、
// タイムアウト、Bearer認証、リクエストIDの伝播を統一した形で扱う。
package httpclient
