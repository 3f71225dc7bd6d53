package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/danyalkhalid764-wq/texttovoice/pkg/logging"
)

const (
	// DefaultTimeout はリクエスト1回あたりの既定のタイムアウト。
	DefaultTimeout = 30 * time.Second
	// maxBinaryBody はバイナリレスポンスとして読み込む最大サイズ。
	maxBinaryBody = 32 << 20
	// headerRequestID はリクエストIDを伝播するHTTPヘッダーキー。
	headerRequestID = "X-Request-ID"
)

// Client は外部APIとの通信用HTTPクライアント。
// タイムアウトとBearer認証の設定を持つ。
type Client struct {
	// httpClient は内部で使用するHTTPクライアント。
	httpClient *http.Client
	// baseURL は接続先のベースURL。
	baseURL string
	// bearerToken はAuthorizationヘッダーに付与するトークン。空なら付与しない。
	bearerToken string
}

// Option はClientの設定を変更する。
type Option func(*Client)

// WithTimeout はリクエストのタイムアウトを設定する。
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithBearerToken は全リクエストに "Authorization: Bearer <token>" を付与する。
func WithBearerToken(token string) Option {
	return func(c *Client) {
		c.bearerToken = token
	}
}

// New は新しいHTTPクライアントを生成する。
// baseURLには接続先のベースURL（例: "https://api.lemonfox.ai/v1"）を指定する。
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		baseURL: baseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StatusError は2xx以外のステータスコードが返ったことを表す。
type StatusError struct {
	// StatusCode はレスポンスのステータスコード。
	StatusCode int
	// Body はレスポンスボディ。
	Body []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTPエラー: status=%d, body=%s", e.StatusCode, string(e.Body))
}

// BinaryResponse はバイナリレスポンスの本文と宣言されたContent-Type。
type BinaryResponse struct {
	Body        []byte
	ContentType string
}

// PostForBinary は指定パスにJSONボディでPOSTし、レスポンスをバイト列のまま返す。
// 音声データのようにJSON以外を返すAPIに使う。
func (c *Client) PostForBinary(ctx context.Context, path string, body any) (*BinaryResponse, error) {
	resp, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBinaryBody))
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み込みに失敗: %w", err)
	}
	return &BinaryResponse{Body: data, ContentType: resp.Header.Get("Content-Type")}, nil
}

// do はHTTPリクエストを実行する共通処理。2xx以外はStatusErrorを返す。
func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("リクエストボディのシリアライズに失敗: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}

	// コンテキストからリクエストIDを伝播する
	if requestID := logging.RequestID(ctx); requestID != "" {
		req.Header.Set(headerRequestID, requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの送信に失敗: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: respBody}
	}
	return resp, nil
}
