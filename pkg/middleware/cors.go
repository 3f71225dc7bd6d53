package middleware

import (
	"net/http"

	"github.com/danyalkhalid764-wq/texttovoice/pkg/cors"
	"github.com/gin-gonic/gin"
)

// CORS は全オリジンからのクロスオリジンリクエストを許可するGinミドルウェアを返す。
// ヘッダーは関数実行環境と同じ値を使い、プリフライト（OPTIONS）には本文なしの200を返す。
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		cors.Apply(c.Writer.Header())

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}
