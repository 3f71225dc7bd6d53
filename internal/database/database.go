// Package database はSQLiteストアへの接続とスキーマ管理を提供する。
//
// 常駐プロセスでは1つの接続プールを全リクエストで共有し（Shared）、
// 関数実行環境ではリクエストごとに接続を開いて終了時に閉じる（PerRequest）。
// どちらもSourceインターフェースを満たし、呼び出し側からは区別できない。
package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"sync"

	"github.com/danyalkhalid764-wq/texttovoice/pkg/migration"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// dsnParams はすべての接続に適用するSQLiteの接続パラメータ。
// _time_format=sqlite により時刻は "2006-01-02 15:04:05.999999999-07:00" 形式で保存される。
const dsnParams = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite"

// Querier は database/sql の *sql.DB と *sql.Tx が共通して持つクエリ実行メソッド。
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open はpathのSQLiteファイルを開き、疎通確認とマイグレーションを行う。
func Open(ctx context.Context, path string, logger *slog.Logger) (*sql.DB, error) {
	db, err := openRaw(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate は埋め込みのマイグレーションを適用する。適用済みであれば何もしない。
func Migrate(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if err := migration.Run(ctx, db, migrationsFS, "migrations", logger); err != nil {
		return fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}
	return nil
}

func openRaw(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?"+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("データベースの疎通確認に失敗: %w", err)
	}
	return db, nil
}

// Handle はリクエスト処理中に使用するストアへのハンドル。
// 処理の完了時に必ずCloseを呼び出す。
type Handle struct {
	// DB はクエリ実行に使う接続プール。
	DB *sql.DB

	release func() error
}

// Close はハンドルを解放する。共有モードでは何もしない。
func (h *Handle) Close() error {
	if h.release == nil {
		return nil
	}
	return h.release()
}

// Source はリクエストごとにストアへのハンドルを払い出す。
type Source interface {
	Acquire(ctx context.Context) (*Handle, error)
}

// Shared はプロセス全体で1つの接続プールを共有するSource。
type Shared struct {
	db *sql.DB
}

// NewShared は既に開かれた接続プールを共有するSourceを生成する。
func NewShared(db *sql.DB) *Shared {
	return &Shared{db: db}
}

// Acquire は共有の接続プールを返す。返したハンドルのCloseは何もしない。
func (s *Shared) Acquire(_ context.Context) (*Handle, error) {
	return &Handle{DB: s.db}, nil
}

// PerRequest はリクエストごとに接続を開き、解放時に閉じるSource。
// 関数実行環境のように、呼び出しをまたいでプロセスが生存する保証がない場合に使う。
type PerRequest struct {
	path   string
	logger *slog.Logger

	mu       sync.Mutex
	migrated bool
}

// NewPerRequest はpathのSQLiteファイルをリクエストごとに開くSourceを生成する。
func NewPerRequest(path string, logger *slog.Logger) *PerRequest {
	return &PerRequest{path: path, logger: logger}
}

// Acquire は新しい接続を開いて返す。初回のみスキーマの適用を確認する。
func (p *PerRequest) Acquire(ctx context.Context) (*Handle, error) {
	db, err := openRaw(ctx, p.path)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	if !p.migrated {
		if err := Migrate(ctx, db, p.logger); err != nil {
			p.mu.Unlock()
			db.Close()
			return nil, err
		}
		p.migrated = true
	}
	p.mu.Unlock()

	return &Handle{DB: db, release: db.Close}, nil
}
