// Package tts はテキスト音声変換リクエストの処理手順を管理する。
//
// 1件の変換は Received → Persisted → ProviderCalled → Delivered | FallbackSignaled の順に進む。
// 入力テキストはプロバイダを呼び出す前に必ず履歴へ記録され、
// プロバイダの失敗はエラーではなくクライアント側合成への切り替え指示として返す。
package tts

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/danyalkhalid764-wq/texttovoice/internal/apperr"
	"github.com/danyalkhalid764-wq/texttovoice/internal/history"
	"github.com/danyalkhalid764-wq/texttovoice/internal/synth"
)

var (
	// ErrInvalidInput は空白を除いたテキストが空であることを表す。
	ErrInvalidInput = fmt.Errorf("text is required: %w", apperr.ErrValidation)
	// ErrProviderNotConfigured は音声合成プロバイダが設定されていないことを表す。
	ErrProviderNotConfigured = fmt.Errorf("text-to-speech provider: %w", apperr.ErrProviderNotConfigured)
)

// State は変換処理の段階。
type State int

const (
	// StateReceived はリクエストを受け付けた段階。
	StateReceived State = iota
	// StatePersisted はテキストを履歴へ記録した段階。
	StatePersisted
	// StateProviderCalled はプロバイダを呼び出した段階。
	StateProviderCalled
	// StateDelivered は音声データを返せた終端状態。
	StateDelivered
	// StateFallbackSignaled はクライアント側合成への切り替えを指示した終端状態。
	StateFallbackSignaled
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StatePersisted:
		return "persisted"
	case StateProviderCalled:
		return "provider_called"
	case StateDelivered:
		return "delivered"
	case StateFallbackSignaled:
		return "fallback_signaled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Outcome は変換処理の結果。Stateは必ず終端状態になる。
type Outcome struct {
	State State
	// Text は前後の空白を除いた入力テキスト。
	Text string
	// Audio は "data:<mime>;base64,<データ>" 形式の音声。Delivered の場合のみ設定される。
	Audio string
	// ContentType は音声のMIMEタイプ。Delivered の場合のみ設定される。
	ContentType string
	// UseFallback はクライアント側で合成すべきかを表す。FallbackSignaled の場合のみ true。
	UseFallback bool
	// Details はプロバイダ失敗時の診断用メッセージ。
	Details string
}

// Ledger は履歴の追記と取得を行う。
type Ledger interface {
	Append(ctx context.Context, ownerID int64, text string) (*history.Entry, error)
	List(ctx context.Context, ownerID int64, limit int) ([]history.Entry, error)
}

// Orchestrator は1件のテキスト音声変換を最後まで進める。
type Orchestrator struct {
	ledger   Ledger
	provider synth.Provider
	timeout  time.Duration
	logger   *slog.Logger
}

// NewOrchestrator はOrchestratorを生成する。timeoutはプロバイダ呼び出し1回の上限。
func NewOrchestrator(ledger Ledger, provider synth.Provider, timeout time.Duration, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		ledger:   ledger,
		provider: provider,
		timeout:  timeout,
		logger:   logger,
	}
}

// Convert はownerIDが投稿したtextを音声へ変換する。
//
// 空白のみのテキストは副作用なしにErrInvalidInputを返す。
// それ以外は前後の空白を除いたテキストを必ず履歴へ記録してからプロバイダを呼び出す。
// プロバイダが未設定の場合はErrProviderNotConfiguredを返す（記録は残る）。
// プロバイダの失敗やタイムアウトはエラーにせず、FallbackSignaledのOutcomeとして返す。
func (o *Orchestrator) Convert(ctx context.Context, ownerID int64, text string) (*Outcome, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrInvalidInput
	}
	o.transition(ctx, ownerID, StateReceived)

	if _, err := o.ledger.Append(ctx, ownerID, trimmed); err != nil {
		return nil, fmt.Errorf("変換テキストの記録に失敗: %w", err)
	}
	o.transition(ctx, ownerID, StatePersisted)

	if o.provider == nil || !o.provider.IsAvailable() {
		o.logger.WarnContext(ctx, "音声合成プロバイダが設定されていません", "owner_id", ownerID)
		return nil, ErrProviderNotConfigured
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	o.transition(ctx, ownerID, StateProviderCalled)
	result, err := o.provider.Synthesize(callCtx, trimmed)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
		}
		o.logger.WarnContext(ctx, "音声合成に失敗したためクライアント側合成へ切り替えます",
			"owner_id", ownerID,
			"provider", o.provider.Name(),
			"error", err,
		)
		o.transition(ctx, ownerID, StateFallbackSignaled)
		return &Outcome{
			State:       StateFallbackSignaled,
			Text:        trimmed,
			UseFallback: true,
			Details:     synth.Details(err),
		}, nil
	}

	contentType := result.ContentType
	if contentType == "" {
		contentType = synth.DefaultContentType
	}
	o.transition(ctx, ownerID, StateDelivered)
	return &Outcome{
		State:       StateDelivered,
		Text:        trimmed,
		Audio:       DataURI(contentType, result.Audio),
		ContentType: contentType,
	}, nil
}

// History はownerIDの履歴を新しい順に最大limit件返す。
func (o *Orchestrator) History(ctx context.Context, ownerID int64, limit int) ([]history.Entry, error) {
	entries, err := o.ledger.List(ctx, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("履歴の取得に失敗: %w", err)
	}
	return entries, nil
}

// DataURI は音声データを "data:<mime>;base64,<データ>" 形式へ変換する。
func DataURI(contentType string, audio []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(audio)
}

func (o *Orchestrator) transition(ctx context.Context, ownerID int64, s State) {
	o.logger.DebugContext(ctx, "変換状態を更新しました", "owner_id", ownerID, "state", s.String())
}
