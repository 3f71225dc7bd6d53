package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/danyalkhalid764-wq/texttovoice/pkg/cors"
)

// クライアントへ返すメッセージ。既存のフロントエンドが表示に使うため文言を変えない。
const (
	msgNotFound            = "Not found"
	msgInternal            = "Internal server error"
	msgTokenRequired       = "Access token required"
	msgTokenInvalid        = "Invalid or expired token"
	msgInvalidBody         = "Invalid JSON body"
	msgBodyTooLarge        = "Request body too large"
	msgSignupRequired      = "Email, password, and name are required"
	msgDuplicateUser       = "User with this email already exists"
	msgPasswordTooLong     = "Password must be at most 72 bytes"
	msgUserCreated         = "User created successfully"
	msgLoginRequired       = "Email and password are required"
	msgInvalidCredentials  = "Invalid email or password"
	msgLoginSuccess        = "Login successful"
	msgUserNotFound        = "User not found"
	msgTextRequired        = "Text is required"
	msgProviderUnavailable = "Text-to-speech provider not configured"
	msgConverted           = "Text converted to voice successfully"
)

// errorBody はエラーレスポンスの本文。
type errorBody struct {
	Error string `json:"error"`
}

// jsonResponse はvをJSONへ変換したレスポンスを返す。
func jsonResponse(status int, v any) *Response {
	body, err := json.Marshal(v)
	if err != nil {
		return &Response{
			StatusCode: http.StatusInternalServerError,
			Header:     cors.Headers(),
			Body:       []byte(`{"error":"` + msgInternal + `"}`),
		}
	}
	return &Response{StatusCode: status, Header: cors.Headers(), Body: body}
}

// errorResponse は {"error": message} のレスポンスを返す。
func errorResponse(status int, message string) *Response {
	return jsonResponse(status, errorBody{Error: message})
}

// MaxBodyBytes はどのトランスポートでも受け付けるリクエスト本文の最大サイズ。
const MaxBodyBytes = 1 << 20

// BodyTooLarge はMaxBodyBytesを超える本文に対する413レスポンスを返す。
func BodyTooLarge() *Response {
	return errorResponse(http.StatusRequestEntityTooLarge, msgBodyTooLarge)
}

// InvalidBody は読み取れない本文に対する400レスポンスを返す。
// トランスポート側で本文のデコードに失敗した場合に使う。
func InvalidBody() *Response {
	return errorResponse(http.StatusBadRequest, msgInvalidBody)
}
