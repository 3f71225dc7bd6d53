package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danyalkhalid764-wq/texttovoice/pkg/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TestRequestID はRequestIDミドルウェアを検証する。
func TestRequestID(t *testing.T) {
	t.Parallel()

	t.Run("リクエストIDが無い場合はUUIDが採番されること", func(t *testing.T) {
		t.Parallel()

		var ctxID string
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", func(c *gin.Context) {
			ctxID = logging.RequestID(c.Request.Context())
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		got := w.Header().Get(HeaderRequestID)
		if _, err := uuid.Parse(got); err != nil {
			t.Errorf("X-Request-ID = %q はUUIDではない: %v", got, err)
		}
		if ctxID != got {
			t.Errorf("コンテキストのID = %q, want %q", ctxID, got)
		}
	})

	t.Run("クライアントのリクエストIDが引き継がれること", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(HeaderRequestID, "client-id-1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if got := w.Header().Get(HeaderRequestID); got != "client-id-1" {
			t.Errorf("X-Request-ID = %q, want %q", got, "client-id-1")
		}
	})

	t.Run("長すぎるリクエストIDは採番し直されること", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(HeaderRequestID, strings.Repeat("a", 200))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if _, err := uuid.Parse(w.Header().Get(HeaderRequestID)); err != nil {
			t.Errorf("X-Request-IDが採番し直されていない: %v", err)
		}
	})
}

// TestAccessLog はAccessLogミドルウェアを検証する。
func TestAccessLog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	router := gin.New()
	router.Use(RequestID(), AccessLog(logging.New(&buf, "info")))
	router.GET("/logged", func(c *gin.Context) {
		c.Status(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/logged", nil)
	req.Header.Set(HeaderRequestID, "log-req-1")
	router.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("ログ行のパースに失敗: %v (%s)", err, buf.String())
	}
	if line["path"] != "/logged" {
		t.Errorf("path = %v, want %q", line["path"], "/logged")
	}
	if line["status"] != float64(http.StatusTeapot) {
		t.Errorf("status = %v, want %d", line["status"], http.StatusTeapot)
	}
	if line["request_id"] != "log-req-1" {
		t.Errorf("request_id = %v, want %q", line["request_id"], "log-req-1")
	}
}
