// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ストレージバックエンドの種類。
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Session
	SessionMaxAge int

	// Display
	DisplayUTCOffset time.Duration

	// Rate Limit（req/min）
	RateLimitGeneral int
	RateLimitWrite   int

	// Logging
	LogLevel string

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS（カンマ区切りで複数指定可）
	CORSAllowedOrigin string

	// Storage
	StorageBackend  string
	UploadMaxSize   int
	UploadDir       string
	UploadPublicURL string
	S3              S3Config

	// Render
	CodeHighlightStyle string
}

// S3Config はS3互換オブジェクトストレージの設定。
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PublicURL       string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（既存の環境変数は上書きしない）。
// 必須環境変数が未設定の場合や値が不正な場合はエラーを返す。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.StorageBackend = strings.ToLower(getEnvString("STORAGE_BACKEND", StorageLocal))
	cfg.S3 = S3Config{
		Bucket:          os.Getenv("S3_BUCKET"),
		Region:          os.Getenv("S3_REGION"),
		Endpoint:        os.Getenv("S3_ENDPOINT"),
		AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		PublicURL:       os.Getenv("S3_PUBLIC_URL"),
	}
	if cfg.StorageBackend == StorageS3 {
		if cfg.S3.Bucket == "" {
			missing = append(missing, "S3_BUCKET")
		}
		if cfg.S3.Region == "" {
			missing = append(missing, "S3_REGION")
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 2592000)
	cfg.DisplayUTCOffset = getEnvDuration("DISPLAY_UTC_OFFSET", -3*time.Hour)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitWrite = getEnvInt("RATE_LIMIT_WRITE", 30)
	cfg.LogLevel = strings.ToLower(getEnvString("LOG_LEVEL", "info"))
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
	cfg.UploadMaxSize = getEnvInt("UPLOAD_MAX_SIZE", 5<<20)
	cfg.UploadDir = getEnvString("UPLOAD_DIR", "./uploads")
	cfg.UploadPublicURL = strings.TrimSuffix(getEnvString("UPLOAD_PUBLIC_URL", "/uploads"), "/")
	cfg.CodeHighlightStyle = getEnvString("CODE_HIGHLIGHT_STYLE", "")

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate は列挙値と数値の範囲を検証する。
func (c *Config) validate() error {
	switch c.StorageBackend {
	case StorageLocal, StorageS3:
	default:
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", StorageLocal, StorageS3, c.StorageBackend)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", c.LogLevel)
	}
	if c.SessionMaxAge <= 0 {
		return fmt.Errorf("SESSION_MAX_AGE must be positive, got %d", c.SessionMaxAge)
	}
	if c.RateLimitGeneral <= 0 || c.RateLimitWrite <= 0 {
		return fmt.Errorf("RATE_LIMIT_GENERAL and RATE_LIMIT_WRITE must be positive")
	}
	if c.UploadMaxSize <= 0 {
		return fmt.Errorf("UPLOAD_MAX_SIZE must be positive, got %d", c.UploadMaxSize)
	}
	return nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
