// Package config は環境変数からサービス設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// DefaultJWTSecret は JWT_SECRET 未設定時に使う署名鍵。本番環境では必ず上書きする。
const DefaultJWTSecret = "your-secret-key-change-in-production"

const (
	// BackendLemonFox は LemonFox の TTS API を使うバックエンド名。
	BackendLemonFox = "lemonfox"
	// BackendOpenAI は OpenAI 互換の /audio/speech を使うバックエンド名。
	BackendOpenAI = "openai"
)

const (
	defaultDatabasePath = "database.sqlite"
	// netlifyDatabasePath は書き込み可能領域が /tmp のみの関数実行環境で使う。
	netlifyDatabasePath = "/tmp/database.sqlite"
)

// Config はサービス全体の設定。
type Config struct {
	// Port は常駐プロセスのリッスンポート。
	Port string `env:"PORT" envDefault:"3001"`
	// JWTSecret はセッショントークンの署名鍵。
	JWTSecret string `env:"JWT_SECRET" envDefault:"your-secret-key-change-in-production"`
	// DatabasePath は SQLite ファイルのパス。空の場合は実行環境から決定する。
	DatabasePath string `env:"DATABASE_PATH"`
	// Netlify は Netlify Functions 上で実行されている場合に設定される。
	Netlify string `env:"NETLIFY"`
	// LemonFoxAPIKey は音声合成プロバイダの API キー。未設定の場合は変換を受け付けない。
	LemonFoxAPIKey string `env:"LEMONFOX_API_KEY"`
	// LogLevel は slog のログレベル（debug, info, warn, error）。
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	// TTS は音声合成プロバイダの設定。
	TTS TTS `envPrefix:"TTS_"`
}

// TTS は音声合成プロバイダの設定。
type TTS struct {
	// Backend は使用するプロバイダ。
	Backend string `env:"BACKEND" envDefault:"lemonfox"`
	// APIKey はプロバイダの API キー。Load 時に LemonFoxAPIKey から設定される。
	APIKey string
	// BaseURL はプロバイダのベース URL。空の場合はバックエンドの既定値を使う。
	BaseURL string `env:"BASE_URL"`
	// Voice は固定で使用する声。
	Voice string `env:"VOICE" envDefault:"default"`
	// Model は OpenAI 互換バックエンドで使うモデル名。
	Model string `env:"MODEL" envDefault:"tts-1"`
	// Timeout はプロバイダ呼び出し 1 回あたりの上限時間。
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

// Load は環境変数から設定を読み込み、検証する。
func Load() (*Config, error) {
	return load(env.Options{})
}

// LoadFrom は与えられた環境変数マップから設定を読み込む。テストで使う。
func LoadFrom(environ map[string]string) (*Config, error) {
	return load(env.Options{Environment: environ})
}

func load(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("環境変数の読み込みに失敗: %w", err)
	}

	cfg.TTS.APIKey = cfg.LemonFoxAPIKey

	if cfg.DatabasePath == "" {
		cfg.DatabasePath = defaultDatabasePath
		if cfg.Netlify != "" {
			cfg.DatabasePath = netlifyDatabasePath
		}
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.TTS.Backend = strings.ToLower(cfg.TTS.Backend)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate は設定値の整合性を検証する。
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("PORT が空です"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET が空です"))
	}
	switch c.TTS.Backend {
	case BackendLemonFox, BackendOpenAI:
	default:
		errs = append(errs, fmt.Errorf("未対応の TTS_BACKEND です: %q", c.TTS.Backend))
	}
	if c.TTS.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("TTS_TIMEOUT は正の値である必要があります: %s", c.TTS.Timeout))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("未対応の LOG_LEVEL です: %q", c.LogLevel))
	}
	if len(errs) > 0 {
		return fmt.Errorf("設定が不正です: %w", errors.Join(errs...))
	}
	return nil
}

// UsesDefaultSecret は署名鍵が既定値のままかを返す。
func (c *Config) UsesDefaultSecret() bool {
	return c.JWTSecret == DefaultJWTSecret
}
