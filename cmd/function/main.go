// テキスト音声変換サービスをサーバーレス関数として起動するエントリポイント。
// 呼び出しごとにストアを開いて閉じるため、インスタンス間で状態を持たない。
package main

import (
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/danyalkhalid764-wq/texttovoice/internal/config"
	"github.com/danyalkhalid764-wq/texttovoice/internal/database"
	"github.com/danyalkhalid764-wq/texttovoice/internal/function"
	"github.com/danyalkhalid764-wq/texttovoice/internal/gateway"
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

	provider, err := synth.New(cfg.TTS)
	if err != nil {
		logger.Error("音声合成プロバイダの初期化に失敗", "error", err)
		os.Exit(1)
	}

	source := database.NewPerRequest(cfg.DatabasePath, logger)
	gw := gateway.New(source, token.NewService(cfg.JWTSecret), provider, cfg.TTS.Timeout, logger)

	lambda.Start(function.NewHandler(gw, logger).Handle)
}
