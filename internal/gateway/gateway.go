package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
	"time"

	"github.com/danyalkhalid764-wq/texttovoice/internal/database"
	"github.com/danyalkhalid764-wq/texttovoice/internal/synth"
	"github.com/danyalkhalid764-wq/texttovoice/internal/token"
	"github.com/danyalkhalid764-wq/texttovoice/pkg/cors"
)

// defaultTTSTimeout はプロバイダ呼び出しの既定の上限時間。
const defaultTTSTimeout = 30 * time.Second

// Request はトランスポートに依存しないリクエスト。
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Header のキーは正規化済み（http.CanonicalHeaderKey）であること。
	Header http.Header
	Body   []byte
}

// Response はトランスポートに依存しないレスポンス。
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Gateway はリクエストをルーティングして処理する。
type Gateway struct {
	// source はリクエストごとにストアへのハンドルを払い出す。
	source database.Source
	// tokens はセッショントークンの発行と検証を行う。
	tokens *token.Service
	// provider は音声合成プロバイダ。
	provider synth.Provider
	// ttsTimeout はプロバイダ呼び出し1回の上限時間。
	ttsTimeout time.Duration
	// logger は構造化ロガー。
	logger *slog.Logger
}

// New は新しいGatewayを生成する。
// ttsTimeoutが0以下の場合は30秒とする。
func New(source database.Source, tokens *token.Service, provider synth.Provider, ttsTimeout time.Duration, logger *slog.Logger) *Gateway {
	if ttsTimeout <= 0 {
		ttsTimeout = defaultTTSTimeout
	}
	return &Gateway{
		source:     source,
		tokens:     tokens,
		provider:   provider,
		ttsTimeout: ttsTimeout,
		logger:     logger,
	}
}

// Handle はリクエストを処理してレスポンスを返す。エラーはすべてレスポンスに変換される。
func (g *Gateway) Handle(ctx context.Context, req *Request) (resp *Response) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.ErrorContext(ctx, "リクエスト処理中にパニックが発生しました",
				"method", req.Method,
				"path", req.Path,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			resp = errorResponse(http.StatusInternalServerError, msgInternal)
		}
	}()

	// プリフライトは認証やストアの取得より先に応答する
	if strings.EqualFold(req.Method, http.MethodOptions) {
		return &Response{StatusCode: http.StatusOK, Header: cors.Headers()}
	}

	rt, ok := resolve(req.Method, req.Path, req.Query)
	if !ok {
		return errorResponse(http.StatusNotFound, msgNotFound)
	}

	var ownerID int64
	if rt.auth {
		var denied *Response
		ownerID, denied = g.authenticate(ctx, req)
		if denied != nil {
			return denied
		}
	}

	handle, err := g.source.Acquire(ctx)
	if err != nil {
		g.logger.ErrorContext(ctx, "ストアの取得に失敗しました", "error", err)
		return errorResponse(http.StatusInternalServerError, msgInternal)
	}
	defer func() {
		if err := handle.Close(); err != nil {
			g.logger.WarnContext(ctx, "ストアの解放に失敗しました", "error", err)
		}
	}()

	return rt.handler(g, ctx, &call{req: req, ownerID: ownerID, db: handle.DB})
}

// authenticate はBearerトークンを検証し、持ち主のIDを返す。
// 失敗した場合は返すべきレスポンスを返す。
func (g *Gateway) authenticate(ctx context.Context, req *Request) (int64, *Response) {
	tok, ok := bearerToken(req.Header.Get("Authorization"))
	if !ok {
		return 0, errorResponse(http.StatusUnauthorized, msgTokenRequired)
	}

	result := g.tokens.Inspect(tok)
	if result.Status != token.StatusValid {
		g.logger.InfoContext(ctx, "トークンの検証に失敗しました", "reason", result.Status.String())
		return 0, errorResponse(http.StatusForbidden, msgTokenInvalid)
	}
	return result.OwnerID, nil
}

// bearerToken は "Bearer <token>" 形式のヘッダー値からトークンを取り出す。
func bearerToken(header string) (string, bool) {
	scheme, tok, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return "", false
	}
	return tok, true
}
