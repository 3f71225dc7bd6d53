// Package synth は外部の音声合成プロバイダへの接続を提供する。
//
// 各バックエンドはProviderインターフェースを満たし、テキストを音声データへ変換する。
// APIキーが設定されていないバックエンドはIsAvailableがfalseとなり、呼び出してはならない。
package synth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danyalkhalid764-wq/texttovoice/internal/config"
)

// DefaultContentType はプロバイダがContent-Typeを返さなかった場合に使うMIMEタイプ。
const DefaultContentType = "audio/mpeg"

// ErrEmptyAudio はプロバイダが空の音声データを返したことを表す。
var ErrEmptyAudio = errors.New("provider returned empty audio")

// Result は音声合成の結果。
type Result struct {
	// Audio はエンコード済みの音声データ。
	Audio []byte
	// ContentType は音声データのMIMEタイプ。
	ContentType string
}

// Provider はテキストを音声へ変換する外部サービス。
type Provider interface {
	// Name はログ出力用のバックエンド名を返す。
	Name() string
	// IsAvailable は呼び出しに必要な設定が揃っているかを返す。
	IsAvailable() bool
	// Synthesize はtextを音声へ変換する。
	Synthesize(ctx context.Context, text string) (*Result, error)
}

// Error はプロバイダ呼び出しの失敗を表す。
type Error struct {
	// Provider は失敗したバックエンド名。
	Provider string
	// StatusCode はプロバイダが返したHTTPステータス。通信自体に失敗した場合は0。
	StatusCode int
	// Message はプロバイダが返した説明文。取得できなかった場合は空。
	Message string
	// Err は元のエラー。
	Err error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status=%d: %s", e.Provider, e.StatusCode, e.Details())
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Details はクライアントへ返す診断用の説明文を返す。
func (e *Error) Details() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("request failed with status code %d", e.StatusCode)
}

// Details はerrからクライアントへ返す診断用の説明文を取り出す。
func Details(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "text-to-speech provider timed out"
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Details()
	}
	return err.Error()
}

// New は設定に従ってバックエンドを生成する。
func New(cfg config.TTS) (Provider, error) {
	switch strings.ToLower(cfg.Backend) {
	case config.BackendLemonFox, "":
		return NewLemonFox(cfg.BaseURL, cfg.APIKey, cfg.Voice, cfg.Timeout), nil
	case config.BackendOpenAI:
		return NewOpenAI(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Voice, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("未対応のTTSバックエンドです: %q", cfg.Backend)
	}
}

// timeoutOrDefault は0以下のタイムアウトを既定値に置き換える。
func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 30 * time.Second
	}
	return d
}
