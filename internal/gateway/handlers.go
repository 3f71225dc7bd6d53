package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/danyalkhalid764-wq/texttovoice/internal/history"
	"github.com/danyalkhalid764-wq/texttovoice/internal/identity"
	"github.com/danyalkhalid764-wq/texttovoice/internal/tts"
)

// signupRequest は登録リクエストの本文。
type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// loginRequest はログインリクエストの本文。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// convertRequest は変換リクエストの本文。
// 文字列以外のtextを本文全体の不正と区別するため、値は後でデコードする。
type convertRequest struct {
	Text json.RawMessage `json:"text"`
}

// text はtextを文字列として取り出す。未指定とnullは空文字列、それ以外の型はfalseを返す。
func (r convertRequest) text() (string, bool) {
	if len(r.Text) == 0 || bytes.Equal(r.Text, []byte("null")) {
		return "", true
	}
	var s string
	if err := json.Unmarshal(r.Text, &s); err != nil {
		return "", false
	}
	return s, true
}

// userBody は登録・ログイン応答に含めるユーザー情報。
type userBody struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// authResponse は登録・ログインの成功応答。
type authResponse struct {
	Message string   `json:"message"`
	Token   string   `json:"token"`
	User    userBody `json:"user"`
}

// meResponse はプロフィール取得の成功応答。
type meResponse struct {
	User *identity.Profile `json:"user"`
}

// convertResponse は音声を返せた場合の応答。
type convertResponse struct {
	Message string `json:"message"`
	Audio   string `json:"audio"`
	Text    string `json:"text"`
}

// fallbackResponse はクライアント側合成へ切り替える場合の応答。
type fallbackResponse struct {
	UseFallback bool   `json:"useFallback"`
	Text        string `json:"text"`
	Details     string `json:"details,omitempty"`
}

// historyResponse は履歴取得の成功応答。
type historyResponse struct {
	History []history.Entry `json:"history"`
}

// decodeBody はリクエスト本文をvへデコードする。空の本文は空のオブジェクトとして扱う。
func decodeBody(body []byte, v any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	return json.Unmarshal(body, v)
}

// handleSignup はアイデンティティを登録してトークンを発行する。
func (g *Gateway) handleSignup(ctx context.Context, c *call) *Response {
	var in signupRequest
	if err := decodeBody(c.req.Body, &in); err != nil {
		return errorResponse(http.StatusBadRequest, msgInvalidBody)
	}
	if in.Email == "" || in.Password == "" || in.Name == "" {
		return errorResponse(http.StatusBadRequest, msgSignupRequired)
	}

	store := identity.NewStore(c.db)
	id, err := store.Create(ctx, in.Email, in.Password, in.Name)
	switch {
	case errors.Is(err, identity.ErrDuplicateIdentity):
		return errorResponse(http.StatusBadRequest, msgDuplicateUser)
	case errors.Is(err, identity.ErrPasswordTooLong):
		return errorResponse(http.StatusBadRequest, msgPasswordTooLong)
	case err != nil:
		return g.internalError(ctx, "ユーザーの登録に失敗しました", err)
	}

	tok, err := g.tokens.Issue(id)
	if err != nil {
		return g.internalError(ctx, "トークンの発行に失敗しました", err)
	}

	g.logger.InfoContext(ctx, "ユーザーを登録しました", "owner_id", id)
	return jsonResponse(http.StatusCreated, authResponse{
		Message: msgUserCreated,
		Token:   tok,
		User:    userBody{ID: id, Email: in.Email, Name: in.Name},
	})
}

// handleLogin は認証情報を照合してトークンを発行する。
func (g *Gateway) handleLogin(ctx context.Context, c *call) *Response {
	var in loginRequest
	if err := decodeBody(c.req.Body, &in); err != nil {
		return errorResponse(http.StatusBadRequest, msgInvalidBody)
	}
	if in.Email == "" || in.Password == "" {
		return errorResponse(http.StatusBadRequest, msgLoginRequired)
	}

	profile, err := identity.NewStore(c.db).Authenticate(ctx, in.Email, in.Password)
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		return errorResponse(http.StatusUnauthorized, msgInvalidCredentials)
	case err != nil:
		return g.internalError(ctx, "ログイン処理に失敗しました", err)
	}

	tok, err := g.tokens.Issue(profile.ID)
	if err != nil {
		return g.internalError(ctx, "トークンの発行に失敗しました", err)
	}

	return jsonResponse(http.StatusOK, authResponse{
		Message: msgLoginSuccess,
		Token:   tok,
		User:    userBody{ID: profile.ID, Email: profile.Email, Name: profile.Name},
	})
}

// handleMe は認証済みアイデンティティのプロフィールを返す。
func (g *Gateway) handleMe(ctx context.Context, c *call) *Response {
	profile, err := identity.NewStore(c.db).FindByID(ctx, c.ownerID)
	switch {
	case errors.Is(err, identity.ErrNotFound):
		return errorResponse(http.StatusNotFound, msgUserNotFound)
	case err != nil:
		return g.internalError(ctx, "ユーザーの取得に失敗しました", err)
	}
	return jsonResponse(http.StatusOK, meResponse{User: profile})
}

// handleConvert はテキストを音声へ変換する。
func (g *Gateway) handleConvert(ctx context.Context, c *call) *Response {
	var in convertRequest
	if err := decodeBody(c.req.Body, &in); err != nil {
		return errorResponse(http.StatusBadRequest, msgInvalidBody)
	}
	text, ok := in.text()
	if !ok {
		return errorResponse(http.StatusBadRequest, msgTextRequired)
	}

	out, err := g.orchestrator(c).Convert(ctx, c.ownerID, text)
	switch {
	case errors.Is(err, tts.ErrInvalidInput):
		return errorResponse(http.StatusBadRequest, msgTextRequired)
	case errors.Is(err, tts.ErrProviderNotConfigured):
		return errorResponse(http.StatusInternalServerError, msgProviderUnavailable)
	case err != nil:
		return g.internalError(ctx, "テキスト音声変換に失敗しました", err)
	}

	if out.UseFallback {
		return jsonResponse(http.StatusOK, fallbackResponse{
			UseFallback: true,
			Text:        out.Text,
			Details:     out.Details,
		})
	}
	return jsonResponse(http.StatusOK, convertResponse{
		Message: msgConverted,
		Audio:   out.Audio,
		Text:    out.Text,
	})
}

// handleHistory は認証済みアイデンティティの履歴を新しい順に返す。
func (g *Gateway) handleHistory(ctx context.Context, c *call) *Response {
	entries, err := g.orchestrator(c).History(ctx, c.ownerID, history.DefaultLimit)
	if err != nil {
		return g.internalError(ctx, "履歴の取得に失敗しました", err)
	}
	return jsonResponse(http.StatusOK, historyResponse{History: entries})
}

func (g *Gateway) orchestrator(c *call) *tts.Orchestrator {
	return tts.NewOrchestrator(history.NewLedger(c.db), g.provider, g.ttsTimeout, g.logger)
}

// internalError は詳細をログへ出力し、クライアントには一般的なメッセージのみ返す。
func (g *Gateway) internalError(ctx context.Context, msg string, err error) *Response {
	g.logger.ErrorContext(ctx, msg, "error", err)
	return errorResponse(http.StatusInternalServerError, msgInternal)
}
