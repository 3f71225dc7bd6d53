package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/danyalkhalid764-wq/texttovoice/internal/database"
	"github.com/danyalkhalid764-wq/texttovoice/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB は一時SQLiteファイルを開き、指定件数のユーザーを登録する。
func openTestDB(t *testing.T, users int) *sql.DB {
	t.Helper()

	db, err := database.Open(context.Background(), filepath.Join(t.TempDir(), "db.sqlite"), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	for i := 1; i <= users; i++ {
		_, err := db.Exec("INSERT INTO users (id, email, password, name) VALUES (?, ?, 'x', 'u')",
			i, fmt.Sprintf("user%d@example.com", i))
		require.NoError(t, err)
	}
	return db
}

// steppingClock は呼び出しごとにstepずつ進む時計を返す。
func steppingClock(start time.Time, step time.Duration) func() time.Time {
	current := start
	return func() time.Time {
		now := current
		current = current.Add(step)
		return now
	}
}

func TestLedger_List(t *testing.T) {
	t.Parallel()

	t.Run("履歴がない場合は空のスライスを返すこと", func(t *testing.T) {
		t.Parallel()

		l := NewLedger(openTestDB(t, 1))
		entries, err := l.List(context.Background(), 1, 0)
		require.NoError(t, err)
		assert.NotNil(t, entries)
		assert.Empty(t, entries)
	})

	t.Run("新しい順に並ぶこと", func(t *testing.T) {
		t.Parallel()

		l := NewLedger(openTestDB(t, 1))
		l.now = steppingClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Millisecond)
		ctx := context.Background()

		for _, text := range []string{"first", "second", "third"} {
			_, err := l.Append(ctx, 1, text)
			require.NoError(t, err)
		}

		entries, err := l.List(ctx, 1, 0)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, "third", entries[0].Text)
		assert.Equal(t, "second", entries[1].Text)
		assert.Equal(t, "first", entries[2].Text)
		assert.True(t, entries[0].CreatedAt.After(entries[1].CreatedAt))
	})

	t.Run("同時刻のエントリはIDの降順になること", func(t *testing.T) {
		t.Parallel()

		l := NewLedger(openTestDB(t, 1))
		fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		l.now = func() time.Time { return fixed }
		ctx := context.Background()

		var ids []int64
		for i := 0; i < 3; i++ {
			e, err := l.Append(ctx, 1, fmt.Sprintf("tie-%d", i))
			require.NoError(t, err)
			ids = append(ids, e.ID)
		}

		entries, err := l.List(ctx, 1, 0)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, ids[2], entries[0].ID)
		assert.Equal(t, ids[1], entries[1].ID)
		assert.Equal(t, ids[0], entries[2].ID)
	})

	t.Run("既定では最大50件を返すこと", func(t *testing.T) {
		t.Parallel()

		l := NewLedger(openTestDB(t, 1))
		l.now = steppingClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Second)
		ctx := context.Background()

		for i := 0; i < 55; i++ {
			_, err := l.Append(ctx, 1, fmt.Sprintf("text-%02d", i))
			require.NoError(t, err)
		}

		entries, err := l.List(ctx, 1, 0)
		require.NoError(t, err)
		require.Len(t, entries, DefaultLimit)
		assert.Equal(t, "text-54", entries[0].Text)
		assert.Equal(t, "text-05", entries[DefaultLimit-1].Text)
	})

	t.Run("limitを指定するとその件数までになること", func(t *testing.T) {
		t.Parallel()

		l := NewLedger(openTestDB(t, 1))
		ctx := context.Background()
		for i := 0; i < 5; i++ {
			_, err := l.Append(ctx, 1, "t")
			require.NoError(t, err)
		}

		entries, err := l.List(ctx, 1, 2)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("他のオーナーの履歴は含まれないこと", func(t *testing.T) {
		t.Parallel()

		l := NewLedger(openTestDB(t, 2))
		ctx := context.Background()
		_, err := l.Append(ctx, 1, "mine")
		require.NoError(t, err)
		_, err = l.Append(ctx, 2, "theirs")
		require.NoError(t, err)

		entries, err := l.List(ctx, 1, 0)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "mine", entries[0].Text)
		assert.Equal(t, int64(1), entries[0].OwnerID)
	})
}

func TestLedger_Append(t *testing.T) {
	t.Parallel()

	t.Run("時刻は秒未満の精度で往復すること", func(t *testing.T) {
		t.Parallel()

		l := NewLedger(openTestDB(t, 1))
		at := time.Date(2025, 6, 7, 8, 9, 10, 123456000, time.UTC)
		l.now = func() time.Time { return at }

		e, err := l.Append(context.Background(), 1, "precise")
		require.NoError(t, err)
		assert.Positive(t, e.ID)

		entries, err := l.List(context.Background(), 1, 0)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.True(t, at.Equal(entries[0].CreatedAt), "created_at = %v, want %v", entries[0].CreatedAt, at)
	})

	t.Run("存在しないオーナーへの追記はエラーになること", func(t *testing.T) {
		t.Parallel()

		l := NewLedger(openTestDB(t, 0))
		_, err := l.Append(context.Background(), 42, "orphan")
		assert.Error(t, err)
	})

	t.Run("DBエラーはラップされて返ること", func(t *testing.T) {
		t.Parallel()

		db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+text_to_voice_history`).
			WillReturnError(errors.New("database is locked"))

		_, err = NewLedger(db).Append(context.Background(), 1, "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "履歴の追記に失敗")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedger_ListDBError(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+id,\s*user_id,\s*text,\s*created_at\s+FROM\s+text_to_voice_history`).
		WithArgs(int64(1), DefaultLimit).
		WillReturnError(errors.New("db down"))

	_, err = NewLedger(db).List(context.Background(), 1, -1)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
