package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabasePath string

	// Token
	TokenSecret string
	TokenTTL    time.Duration

	// Models
	ModelsDir      string
	PredictTimeout time.Duration

	// Rate Limit
	RateLimitRequests     int           // API全般のウィンドウあたり許可リクエスト数
	RateLimitWindow       time.Duration // API全般の固定ウィンドウ長
	AuthRateLimitRequests int           // ログイン・登録のウィンドウあたり許可リクエスト数
	AuthRateLimitWindow   time.Duration // ログイン・登録の固定ウィンドウ長

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.TokenSecret = os.Getenv("TOKEN_SECRET")
	if cfg.TokenSecret == "" {
		missing = append(missing, "TOKEN_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.DatabasePath = getEnvString("DATABASE_PATH", "library.db")
	cfg.TokenTTL = getEnvDuration("TOKEN_TTL", 24*time.Hour)
	cfg.ModelsDir = getEnvString("MODELS_DIR", "models/production")
	cfg.PredictTimeout = getEnvDuration("PREDICT_TIMEOUT", 5*time.Second)
	cfg.RateLimitRequests = getEnvInt("RATE_LIMIT_REQUESTS", 200)
	cfg.RateLimitWindow = getEnvDuration("RATE_LIMIT_WINDOW", time.Hour)
	cfg.AuthRateLimitRequests = getEnvInt("AUTH_RATE_LIMIT_REQUESTS", 5)
	cfg.AuthRateLimitWindow = getEnvDuration("AUTH_RATE_LIMIT_WINDOW", time.Minute)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
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
