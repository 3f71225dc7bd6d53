// テキスト音声変換サービスを常駐プロセスとして起動するエントリポイント。
// ストアの接続プールをプロセス全体で共有し、SIGINT/SIGTERMでグレースフルに停止する。
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/danyalkhalid764-wq/texttovoice/internal/config"
	"github.com/danyalkhalid764-wq/texttovoice/internal/database"
	"github.com/danyalkhalid764-wq/texttovoice/internal/gateway"
	"github.com/danyalkhalid764-wq/texttovoice/internal/server"
	"github.com/danyalkhalid764-wq/texttovoice/internal/synth"
	"github.com/danyalkhalid764-wq/texttovoice/internal/token"
	"github.com/danyalkhalid764-wq/texttovoice/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("設定の読み込みに失敗", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	if cfg.UsesDefaultSecret() {
		logger.Warn("JWT_SECRET が未設定のため既定の署名鍵を使います")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DatabasePath, logger)
	if err != nil {
		logger.Error("データベースの初期化に失敗", "error", err, "path", cfg.DatabasePath)
		os.Exit(1)
	}
	defer db.Close()

	provider, err := synth.New(cfg.TTS)
	if err != nil {
		logger.Error("音声合成プロバイダの初期化に失敗", "error", err)
		os.Exit(1)
	}
	if !provider.IsAvailable() {
		logger.Warn("音声合成プロバイダのAPIキーが未設定です", "provider", provider.Name())
	}

	gw := gateway.New(database.NewShared(db), token.NewService(cfg.JWTSecret), provider, cfg.TTS.Timeout, logger)
	srv := server.NewServer(cfg.Port, gw, db, cfg.TTS.Timeout, logger)

	if err := srv.Run(ctx); err != nil {
		logger.Error("サーバーが異常終了しました", "error", err)
		os.Exit(1)
	}
	logger.Info("サーバーを停止しました")
}
