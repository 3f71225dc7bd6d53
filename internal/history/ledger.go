// Package history はテキスト音声変換の投稿履歴を記録する。
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/danyalkhalid764-wq/texttovoice/internal/database"
)

// DefaultLimit は一覧取得時の既定の最大件数。
const DefaultLimit = 50

// Entry は1件の投稿履歴。作成後に変更されることはない。
type Entry struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"user_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Ledger は投稿履歴の追記と一覧取得を行う。
type Ledger struct {
	db  database.Querier
	now func() time.Time
}

// NewLedger はdbを使うLedgerを生成する。
func NewLedger(db database.Querier) *Ledger {
	return &Ledger{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Append はownerIDの履歴に1件追記する。
func (l *Ledger) Append(ctx context.Context, ownerID int64, text string) (*Entry, error) {
	const query = `INSERT INTO text_to_voice_history (user_id, text, created_at)
		VALUES (?, ?, ?)
		RETURNING id`

	e := &Entry{OwnerID: ownerID, Text: text, CreatedAt: l.now()}
	if err := l.db.QueryRowContext(ctx, query, ownerID, text, e.CreatedAt).Scan(&e.ID); err != nil {
		return nil, fmt.Errorf("履歴の追記に失敗: %w", err)
	}
	return e, nil
}

// List はownerIDの履歴を新しい順に最大limit件返す。limitが0以下の場合はDefaultLimitを使う。
// 同時刻のエントリはIDの降順で並ぶ。該当がなくても空のスライスを返す。
func (l *Ledger) List(ctx context.Context, ownerID int64, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	const query = `SELECT id, user_id, text, created_at
		FROM text_to_voice_history
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`

	rows, err := l.db.QueryContext(ctx, query, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("履歴の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Text, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("履歴の読み取りに失敗: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("履歴の読み取りに失敗: %w", err)
	}
	return entries, nil
}
