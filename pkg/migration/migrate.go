// Package migration はSQLiteデータベースのマイグレーションを管理する。
// embed.FSからgoose形式のSQLファイルを読み込み、goose_db_versionテーブルで適用状態を追跡する。
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

// Run はembedされたマイグレーションファイルを順序通りに適用する。
// 未適用のマイグレーションのみ実行し、適用済みのものはスキップする。
// ファイル名形式: 00001_description.sql（-- +goose Up / -- +goose Down 注釈付き）
func Run(ctx context.Context, db *sql.DB, fsys fs.FS, dir string, logger *slog.Logger) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return fmt.Errorf("マイグレーションディレクトリの参照に失敗: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, sub,
		goose.WithDisableGlobalRegistry(true),
	)
	if err != nil {
		return fmt.Errorf("マイグレーションの初期化に失敗: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("マイグレーションの適用に失敗: %w", err)
	}

	for _, r := range results {
		logger.InfoContext(ctx, "マイグレーションを適用しました",
			"version", r.Source.Version,
			"path", r.Source.Path,
			"duration", r.Duration,
		)
	}
	return nil
}
