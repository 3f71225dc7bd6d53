package synth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

// maxAudioBytes は1回の合成で受け付ける音声データの最大サイズ。
const maxAudioBytes = 32 << 20

// OpenAI はOpenAI互換の /audio/speech エンドポイントを使うProvider。
type OpenAI struct {
	client *openai.Client
	apiKey string
	model  string
	voice  string
}

// NewOpenAI はOpenAI互換のProviderを生成する。baseURLが空ならOpenAIのAPIを使う。
func NewOpenAI(baseURL, apiKey, model, voice string, timeout time.Duration) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: timeoutOrDefault(timeout)}

	if model == "" {
		model = string(openai.TTSModel1)
	}
	if voice == "" || voice == "default" {
		voice = string(openai.VoiceAlloy)
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		apiKey: apiKey,
		model:  model,
		voice:  voice,
	}
}

// Name はバックエンド名を返す。
func (o *OpenAI) Name() string { return "openai" }

// IsAvailable はAPIキーが設定されているかを返す。
func (o *OpenAI) IsAvailable() bool { return o.apiKey != "" }

// Synthesize はtextをMP3音声へ変換する。
func (o *OpenAI) Synthesize(ctx context.Context, text string) (*Result, error) {
	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.model),
		Input:          text,
		Voice:          openai.SpeechVoice(o.voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          1.0,
	})
	if err != nil {
		return nil, o.wrapError(err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(io.LimitReader(resp, maxAudioBytes))
	if err != nil {
		return nil, &Error{Provider: o.Name(), Err: fmt.Errorf("音声データの読み込みに失敗: %w", err)}
	}
	if len(audio) == 0 {
		return nil, &Error{Provider: o.Name(), Err: ErrEmptyAudio}
	}

	contentType := resp.Header().Get("Content-Type")
	if contentType == "" {
		contentType = DefaultContentType
	}
	return &Result{Audio: audio, ContentType: contentType}, nil
}

func (o *OpenAI) wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &Error{Provider: o.Name(), StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &Error{Provider: o.Name(), StatusCode: reqErr.HTTPStatusCode, Message: errorMessage(reqErr.Body), Err: err}
	}
	return &Error{Provider: o.Name(), Err: err}
}
