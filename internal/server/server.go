package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/danyalkhalid764-wq/texttovoice/internal/gateway"
	"github.com/danyalkhalid764-wq/texttovoice/pkg/middleware"
	"github.com/gin-gonic/gin"
)

// shutdownTimeout はグレースフルシャットダウンの待ち時間。
const shutdownTimeout = 30 * time.Second

// Server はテキスト音声変換サービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// gateway はリクエスト処理の中核。
	gateway *gateway.Gateway
	// db はヘルスチェックに使う共有の接続プール。
	db *sql.DB
	// writeTimeout はレスポンス書き込みの上限時間。
	writeTimeout time.Duration
	// logger は構造化ロガー。
	logger *slog.Logger
}

// NewServer は新しいサーバーを生成する。
// ttsTimeoutはレスポンス書き込みのタイムアウトをプロバイダ呼び出しより長くするために使う。
func NewServer(port string, gw *gateway.Gateway, db *sql.DB, ttsTimeout time.Duration, logger *slog.Logger) *Server {
	router := gin.New()
	// パスの解決はゲートウェイが行うため、末尾スラッシュのリダイレクトはしない
	router.RedirectTrailingSlash = false
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(logger))
	router.Use(middleware.CORS())

	s := &Server{
		router:       router,
		port:         port,
		gateway:      gw,
		db:           db,
		writeTimeout: ttsTimeout + 30*time.Second,
		logger:       logger,
	}
	s.setupRoutes()
	return s
}

// Handler はHTTPハンドラーを返す。テストで使う。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はHTTPサーバーを起動し、ctxが終了するとグレースフルシャットダウンする。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", s.port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.writeTimeout,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTPサーバーを起動します", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("HTTPサーバーの起動に失敗: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("HTTPサーバーを停止します")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTPサーバーの停止に失敗: %w", err)
	}
	return nil
}

// setupRoutes はルーティングを設定する。
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth())

	// アクションの解決はゲートウェイのルート表で行う
	s.router.Any("/api/*path", s.handleGateway())
	s.router.NoRoute(s.handleGateway())
}

// handleHealth はストアへの疎通を確認する。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.db.PingContext(c.Request.Context()); err != nil {
			s.logger.WarnContext(c.Request.Context(), "ヘルスチェックに失敗しました", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "texttovoice"})
	}
}

// handleGateway はリクエストをゲートウェイへ委譲する。
func (s *Server) handleGateway() gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, gateway.MaxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeResponse(c, gateway.BodyTooLarge())
				return
			}
			writeResponse(c, gateway.InvalidBody())
			return
		}

		resp := s.gateway.Handle(c.Request.Context(), &gateway.Request{
			Method: c.Request.Method,
			Path:   c.Request.URL.Path,
			Query:  c.Request.URL.Query(),
			Header: c.Request.Header,
			Body:   body,
		})
		writeResponse(c, resp)
	}
}

// writeResponse はゲートウェイの応答をそのまま書き込む。
func writeResponse(c *gin.Context, resp *gateway.Response) {
	for k, values := range resp.Header {
		c.Writer.Header()[k] = values
	}
	c.Status(resp.StatusCode)
	c.Writer.WriteHeaderNow()
	if len(resp.Body) > 0 {
		if _, err := c.Writer.Write(resp.Body); err != nil {
			_ = c.Error(err)
		}
	}
}
