// Package identity は登録済みアイデンティティ（ユーザー）の保存と認証を行う。
package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/danyalkhalid764-wq/texttovoice/internal/apperr"
	"github.com/danyalkhalid764-wq/texttovoice/internal/database"
	"golang.org/x/crypto/bcrypt"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DefaultCost はパスワードハッシュのbcryptコスト。設定で変更しない。
const DefaultCost = 10

var (
	// ErrDuplicateIdentity は同じメールアドレスが既に登録されていることを表す。
	ErrDuplicateIdentity = fmt.Errorf("identity already exists: %w", apperr.ErrConflict)
	// ErrNotFound はアイデンティティが存在しないことを表す。
	ErrNotFound = fmt.Errorf("identity: %w", apperr.ErrNotFound)
	// ErrInvalidCredentials はメールアドレスまたはパスワードが一致しないことを表す。
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrPasswordTooLong はbcryptで扱えない長さのパスワードであることを表す。
	ErrPasswordTooLong = fmt.Errorf("password exceeds 72 bytes: %w", apperr.ErrValidation)
)

// Identity は登録済みのアイデンティティ。PasswordHashはこのパッケージの外へ出さない。
type Identity struct {
	ID           int64
	Email        string
	PasswordHash string `json:"-"`
	Name         string
	CreatedAt    time.Time
}

// Profile はパスワードハッシュを除いた公開用の表現。
type Profile struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile は公開用の表現を返す。
func (i *Identity) Profile() *Profile {
	return &Profile{ID: i.ID, Email: i.Email, Name: i.Name, CreatedAt: i.CreatedAt}
}

// Store はアイデンティティの永続化を担う。
type Store struct {
	db   database.Querier
	cost int
	now  func() time.Time
}

// NewStore はdbを使うStoreを生成する。
func NewStore(db database.Querier) *Store {
	return &Store{
		db:   db,
		cost: DefaultCost,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Create はアイデンティティを登録し、採番されたIDを返す。
// メールアドレスは大文字小文字を区別して一意であり、重複時はErrDuplicateIdentityを返す。
// 重複判定は挿入時の一意制約で行うため、同時登録でも1件しか成功しない。
func (s *Store) Create(ctx context.Context, email, rawPassword, name string) (int64, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(rawPassword), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return 0, ErrPasswordTooLong
		}
		return 0, fmt.Errorf("パスワードのハッシュ化に失敗: %w", err)
	}

	const query = `INSERT INTO users (email, password, name, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`

	var id int64
	err = s.db.QueryRowContext(ctx, query, email, string(hash), name, s.now()).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicateIdentity
		}
		return 0, fmt.Errorf("ユーザーの登録に失敗: %w", err)
	}
	return id, nil
}

// FindByEmail はメールアドレスに完全一致するアイデンティティを返す。
func (s *Store) FindByEmail(ctx context.Context, email string) (*Identity, error) {
	const query = `SELECT id, email, password, name, created_at FROM users WHERE email = ?`
	return s.findOne(ctx, query, email)
}

// FindByID はIDに対応するアイデンティティの公開用表現を返す。
func (s *Store) FindByID(ctx context.Context, id int64) (*Profile, error) {
	const query = `SELECT id, email, password, name, created_at FROM users WHERE id = ?`
	identity, err := s.findOne(ctx, query, id)
	if err != nil {
		return nil, err
	}
	return identity.Profile(), nil
}

// Authenticate はメールアドレスとパスワードを照合する。
// 未登録のメールアドレスでも同じコストの比較を行い、応答時間から登録有無を推測できないようにする。
func (s *Store) Authenticate(ctx context.Context, email, rawPassword string) (*Profile, error) {
	identity, err := s.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(rawPassword))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(rawPassword)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return identity.Profile(), nil
}

func (s *Store) findOne(ctx context.Context, query string, arg any) (*Identity, error) {
	var i Identity
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&i.ID, &i.Email, &i.PasswordHash, &i.Name, &i.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ユーザーの取得に失敗: %w", err)
	}
	return &i, nil
}

// isUniqueViolation はSQLiteの一意制約違反かを判定する。
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

var dummyHash = sync.OnceValue(func() []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte("timing-equalization"), DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("ダミーハッシュの生成に失敗: %v", err))
	}
	return hash
})
