// Package function はサーバーレス関数としてリクエストゲートウェイを公開する。
//
// API Gateway形式のプロキシイベントをトランスポート非依存のリクエストへ変換し、
// 処理結果をプロキシレスポンスへ戻す。
package function

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/danyalkhalid764-wq/texttovoice/internal/gateway"
	"github.com/danyalkhalid764-wq/texttovoice/pkg/logging"
	"github.com/danyalkhalid764-wq/texttovoice/pkg/middleware"
	"github.com/google/uuid"
)

// Handler はプロキシイベントをゲートウェイへ委譲する。
type Handler struct {
	gateway *gateway.Gateway
	logger  *slog.Logger
}

// NewHandler は新しいHandlerを生成する。
func NewHandler(gw *gateway.Gateway, logger *slog.Logger) *Handler {
	return &Handler{gateway: gw, logger: logger}
}

// Handle は1件のイベントを処理する。エラーはすべてレスポンスに変換されるため、
// 戻り値のerrorは常にnil。
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	id := requestID(event)
	ctx = logging.WithRequestID(ctx, id)

	req, err := toRequest(event)
	if err != nil {
		h.logger.InfoContext(ctx, "リクエストボディのデコードに失敗しました", "error", err)
		resp := gateway.InvalidBody()
		resp.Header.Set(middleware.HeaderRequestID, id)
		return toProxyResponse(resp), nil
	}

	// プリフライトは本文を読まずに応答する
	var resp *gateway.Response
	if len(req.Body) > gateway.MaxBodyBytes && req.Method != http.MethodOptions {
		resp = gateway.BodyTooLarge()
	} else {
		resp = h.gateway.Handle(ctx, req)
	}
	if resp.Header == nil {
		resp.Header = http.Header{}
	}
	resp.Header.Set(middleware.HeaderRequestID, id)

	h.logger.InfoContext(ctx, "リクエストを処理しました",
		"method", req.Method,
		"path", req.Path,
		"status", resp.StatusCode,
	)
	return toProxyResponse(resp), nil
}

// requestID はイベントのリクエストコンテキスト、X-Request-IDヘッダーの順にIDを探し、
// どちらもなければUUIDを採番する。
func requestID(event events.APIGatewayProxyRequest) string {
	if id := event.RequestContext.RequestID; id != "" {
		return id
	}
	for k, v := range event.Headers {
		if strings.EqualFold(k, middleware.HeaderRequestID) && v != "" && len(v) <= 128 {
			return v
		}
	}
	return uuid.NewString()
}

// toRequest はプロキシイベントをゲートウェイのリクエストへ変換する。
func toRequest(event events.APIGatewayProxyRequest) (*gateway.Request, error) {
	header := http.Header{}
	for k, values := range event.MultiValueHeaders {
		for _, v := range values {
			header.Add(k, v)
		}
	}
	for k, v := range event.Headers {
		if header.Get(k) == "" {
			header.Set(k, v)
		}
	}

	query := url.Values{}
	for k, values := range event.MultiValueQueryStringParameters {
		for _, v := range values {
			query.Add(k, v)
		}
	}
	for k, v := range event.QueryStringParameters {
		if !query.Has(k) {
			query.Set(k, v)
		}
	}

	body := []byte(event.Body)
	if event.IsBase64Encoded && event.Body != "" {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return nil, err
		}
		body = decoded
	}

	path := event.Path
	if path == "" {
		path = "/"
	}

	return &gateway.Request{
		Method: strings.ToUpper(event.HTTPMethod),
		Path:   path,
		Query:  query,
		Header: header,
		Body:   body,
	}, nil
}

// toProxyResponse はゲートウェイのレスポンスをプロキシレスポンスへ変換する。
func toProxyResponse(resp *gateway.Response) events.APIGatewayProxyResponse {
	out := events.APIGatewayProxyResponse{
		StatusCode: resp.StatusCode,
		Headers:    make(map[string]string, len(resp.Header)),
		Body:       string(resp.Body),
	}
	for k, values := range resp.Header {
		if len(values) == 0 {
			continue
		}
		out.Headers[k] = values[0]
		if len(values) > 1 {
			if out.MultiValueHeaders == nil {
				out.MultiValueHeaders = map[string][]string{}
			}
			out.MultiValueHeaders[k] = values
		}
	}
	return out
}
