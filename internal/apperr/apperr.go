// Package apperr はサービス全体で共有するエラー分類を定義する。
//
// 各コンポーネントは自身のセンチネルエラーをここで定義された分類でラップし、
// リクエストゲートウェイは errors.Is で分類を判定してHTTPステータスへ変換する。
package apperr

import (
	"errors"
	"net/http"
)

var (
	// ErrValidation は入力値が不正であることを表す。
	ErrValidation = errors.New("validation failed")
	// ErrConflict は一意制約に違反する登録であることを表す。
	ErrConflict = errors.New("conflict")
	// ErrAuthRequired は認証情報が提示されていないことを表す。
	ErrAuthRequired = errors.New("authentication required")
	// ErrAuthInvalid は提示された認証情報が無効であることを表す。
	ErrAuthInvalid = errors.New("authentication invalid")
	// ErrNotFound は対象が存在しないことを表す。
	ErrNotFound = errors.New("not found")
	// ErrProviderNotConfigured は音声合成プロバイダが設定されていないことを表す。
	ErrProviderNotConfigured = errors.New("provider not configured")
	// ErrInternal はその他の内部エラーを表す。
	ErrInternal = errors.New("internal error")
)

// Status はエラー分類に対応するHTTPステータスコードを返す。
// 分類に該当しないエラーは500として扱う。
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuthRequired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAuthInvalid):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
