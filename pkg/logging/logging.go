// Package logging は slog ベースの構造化ロガーを構築する。
//
// コンテキストに格納されたリクエストIDを全てのログ行へ自動的に付与するため、
// 各コンポーネントは *slog.Logger の XxxContext 系メソッドでログを出力する。
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// New は JSON 形式でwへ出力するロガーを生成する。
// levelは "debug", "info", "warn", "error" のいずれか。それ以外は info として扱う。
func New(w io.Writer, level string) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return slog.New(&requestIDHandler{Handler: h})
}

// Discard は何も出力しないロガーを返す。テストで使う。
func Discard() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// ParseLevel はログレベル文字列を slog.Level に変換する。
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type contextKey string

const contextKeyRequestID contextKey = "request_id"

// WithRequestID はコンテキストにリクエストIDを設定する。
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// RequestID はコンテキストからリクエストIDを取得する。未設定なら空文字列。
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyRequestID).(string)
	return id
}

// requestIDHandler はレコードにコンテキストのリクエストIDを付与する。
type requestIDHandler struct {
	slog.Handler
}

func (h *requestIDHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := RequestID(ctx); id != "" {
		r.AddAttrs(slog.String("request_id", id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *requestIDHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &requestIDHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *requestIDHandler) WithGroup(name string) slog.Handler {
	return &requestIDHandler{Handler: h.Handler.WithGroup(name)}
}
