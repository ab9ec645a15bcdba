package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"swiftel-client/internal/pkg/cache"
	"swiftel-client/internal/pkg/jwt"
	"swiftel-client/internal/pkg/session"
	"swiftel-client/internal/websocket"
)

const (
	DurableFile  = "file"
	DurableRedis = "redis"
)

type AppConfig struct {
	// Server
	HTTPAddr string
	Dev      bool

	// Backend
	APIBaseURL string
	APITimeout time.Duration
	WSURL      string

	// Push channel
	WSReconnect  bool
	WSMaxBackoff time.Duration

	// Session storage
	StateDir       string
	StoreKey       []byte
	TokenKey       string
	DurableBackend string
	RedisAddr      string
	RedisPass      string
	RedisPrefix    string
	RedisTTL       time.Duration

	// JWT
	JWT jwt.Config

	// Query cache
	CacheStale time.Duration
	CacheSize  int
}

// Load loads environment variables into AppConfig.
func Load() (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddr: getEnv("SWIFTEL_HTTP_ADDR", "127.0.0.1:5173"),
		Dev:      getEnvBool("SWIFTEL_DEV", false),

		APIBaseURL: getEnv("SWIFTEL_API_BASE_URL", "http://localhost:5000/api"),
		APITimeout: getEnvDuration("SWIFTEL_API_TIMEOUT", 15*time.Second),
		WSURL:      getEnv("SWIFTEL_WS_URL", ""),

		WSReconnect:  getEnvBool("SWIFTEL_WS_RECONNECT", true),
		WSMaxBackoff: getEnvDuration("SWIFTEL_WS_MAX_BACKOFF", time.Minute),

		StateDir:       getEnv("SWIFTEL_STATE_DIR", defaultStateDir()),
		TokenKey:       getEnv("SWIFTEL_TOKEN_KEY", session.DefaultKey),
		DurableBackend: strings.ToLower(getEnv("SWIFTEL_DURABLE_BACKEND", DurableFile)),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:      getEnv("REDIS_PASS", ""),
		RedisPrefix:    getEnv("SWIFTEL_REDIS_PREFIX", "swiftel:session:"),
		RedisTTL:       getEnvDuration("SWIFTEL_REDIS_TTL", 0),

		JWT: jwt.Config{
			PublicKeyPath: getEnv("SWIFTEL_JWT_PUBLIC_KEY_PATH", ""),
			Leeway:        getEnvDuration("SWIFTEL_JWT_LEEWAY", 0),
		},

		CacheStale: getEnvDuration("SWIFTEL_CACHE_STALE", cache.DefaultStaleTime),
		CacheSize:  getEnvInt("SWIFTEL_CACHE_SIZE", cache.DefaultSize),
	}

	if cfg.WSURL == "" {
		cfg.WSURL = websocket.WSBaseFromAPI(strings.TrimRight(cfg.APIBaseURL, "/"))
	}

	if raw := os.Getenv("SWIFTEL_STORE_KEY"); raw != "" {
		key, err := hex.DecodeString(raw)
		if err != nil || len(key) != 32 {
			return AppConfig{}, fmt.Errorf("SWIFTEL_STORE_KEY must be 64 hex characters")
		}
		cfg.StoreKey = key
	}

	switch cfg.DurableBackend {
	case DurableFile, DurableRedis:
	default:
		return AppConfig{}, fmt.Errorf("SWIFTEL_DURABLE_BACKEND: unknown backend %q", cfg.DurableBackend)
	}

	return cfg, nil
}

// --- Helper functions ---

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "swiftel")
	}
	return ".swiftel"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := strings.ToLower(os.Getenv(key))
	switch v {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}
