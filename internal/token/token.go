// Package token は署名付きセッショントークンの発行と検証を行う。
//
// トークンはHS256で署名したJWTで、サーバー側には保存しない。
// 検証の失敗理由はサーバー内のログ用にのみ区別し、クライアントへは一律に無効として扱う。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Lifetime はトークンの有効期間。
const Lifetime = 7 * 24 * time.Hour

// Claims はトークンのクレーム（ペイロード）。
type Claims struct {
	jwt.RegisteredClaims
	// UserID はトークンの持ち主のアイデンティティID。
	UserID int64 `json:"userId"`
}

// Status はトークン検証の結果。
type Status int

const (
	// StatusValid は有効なトークン。
	StatusValid Status = iota
	// StatusMalformed は形式が不正、またはクレームが欠けているトークン。
	StatusMalformed
	// StatusExpired は有効期限を過ぎたトークン。
	StatusExpired
	// StatusBadSignature は署名またはアルゴリズムが一致しないトークン。
	StatusBadSignature
)

// String はログ出力用の名前を返す。
func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusMalformed:
		return "malformed"
	case StatusExpired:
		return "expired"
	case StatusBadSignature:
		return "bad_signature"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result はInspectの結果。
type Result struct {
	// OwnerID はStatusValidの場合のみ設定される。
	OwnerID int64
	Status  Status
}

// Service はトークンの発行と検証を行う。
type Service struct {
	secret []byte
	now    func() time.Time
}

// Option はServiceの設定を変更する。
type Option func(*Service)

// WithClock は現在時刻の取得関数を差し替える。
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService はsecretで署名するServiceを生成する。
func NewService(secret string, opts ...Option) *Service {
	s := &Service{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue はownerIDのトークンを発行する。有効期限は発行からLifetime後。
func (s *Service) Issue(ownerID int64) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(Lifetime)),
		},
		UserID: ownerID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("JWTトークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// Verify はトークンを検証し、有効な場合に持ち主のIDを返す。
// 失敗理由にかかわらず ok は false になる。
func (s *Service) Verify(tokenString string) (ownerID int64, ok bool) {
	r := s.Inspect(tokenString)
	if r.Status != StatusValid {
		return 0, false
	}
	return r.OwnerID, true
}

// Inspect はトークンを検証し、失敗理由を区別した結果を返す。
func (s *Service) Inspect(tokenString string) Result {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(_ *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Result{Status: classify(err)}
	}
	if claims.UserID <= 0 {
		return Result{Status: StatusMalformed}
	}
	return Result{OwnerID: claims.UserID, Status: StatusValid}
}

func classify(err error) Status {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return StatusExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return StatusBadSignature
	default:
		return StatusMalformed
	}
}
