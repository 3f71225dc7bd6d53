package synth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/danyalkhalid764-wq/texttovoice/pkg/httpclient"
)

// DefaultLemonFoxURL はLemonFox APIのベースURL。
const DefaultLemonFoxURL = "https://api.lemonfox.ai/v1"

// LemonFox はLemonFoxのTTS APIを使うProvider。
type LemonFox struct {
	client *httpclient.Client
	apiKey string
	voice  string
}

// lemonFoxRequest はLemonFox TTS APIのリクエストボディ。
type lemonFoxRequest struct {
	Text   string  `json:"text"`
	Voice  string  `json:"voice"`
	Speed  float64 `json:"speed"`
	Format string  `json:"format"`
}

// NewLemonFox はLemonFoxのProviderを生成する。baseURLが空なら既定のURLを使う。
func NewLemonFox(baseURL, apiKey, voice string, timeout time.Duration) *LemonFox {
	if baseURL == "" {
		baseURL = DefaultLemonFoxURL
	}
	if voice == "" {
		voice = "default"
	}
	return &LemonFox{
		client: httpclient.New(baseURL,
			httpclient.WithTimeout(timeoutOrDefault(timeout)),
			httpclient.WithBearerToken(apiKey),
		),
		apiKey: apiKey,
		voice:  voice,
	}
}

// Name はバックエンド名を返す。
func (l *LemonFox) Name() string { return "lemonfox" }

// IsAvailable はAPIキーが設定されているかを返す。
func (l *LemonFox) IsAvailable() bool { return l.apiKey != "" }

// Synthesize はtextをMP3音声へ変換する。
func (l *LemonFox) Synthesize(ctx context.Context, text string) (*Result, error) {
	resp, err := l.client.PostForBinary(ctx, "/tts", lemonFoxRequest{
		Text:   text,
		Voice:  l.voice,
		Speed:  1.0,
		Format: "mp3",
	})
	if err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) {
			return nil, &Error{
				Provider:   l.Name(),
				StatusCode: statusErr.StatusCode,
				Message:    errorMessage(statusErr.Body),
				Err:        err,
			}
		}
		return nil, &Error{Provider: l.Name(), Err: err}
	}

	if len(resp.Body) == 0 {
		return nil, &Error{Provider: l.Name(), Err: ErrEmptyAudio}
	}
	contentType := resp.ContentType
	if contentType == "" {
		contentType = DefaultContentType
	}
	return &Result{Audio: resp.Body, ContentType: contentType}, nil
}

// errorMessage はプロバイダのエラーレスポンスから説明文を取り出す。
// {"message": "..."} と {"error": {"message": "..."}} の両方の形式に対応する。
func errorMessage(body []byte) string {
	var payload struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	if len(payload.Error) == 0 {
		return ""
	}

	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload.Error, &nested); err == nil && nested.Message != "" {
		return nested.Message
	}
	var plain string
	if err := json.Unmarshal(payload.Error, &plain); err == nil {
		return plain
	}
	return ""
}
