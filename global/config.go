package global

import (
	"os"
	"strconv"
	"sync"
	"time"
)

// AppConfig is the single boot-time configuration point. Values come from the
// environment with defaults matching the original deployment.
type AppConfig struct {
	HTTPAddr      string
	MongoURI      string
	MongoDatabase string
	MongoUser     string
	MongoPassword string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	JWTSecret     []byte
	PingTimeout   time.Duration // ws heartbeat; a silent connection is dropped after this
	NodeID        int64
}

var (
	cfg  *AppConfig
	once sync.Once
)

// Load reads the environment once and caches the result.
func Load() *AppConfig {
	once.Do(func() {
		cfg = &AppConfig{
			HTTPAddr:      ":" + envOr("PORT", "5000"),
			MongoURI:      envOr("MONGO_URL", "mongodb://localhost:27017"),
			MongoDatabase: envOr("MONGO_DB", "chatserve"),
			MongoUser:     os.Getenv("MONGO_USER"),
			MongoPassword: os.Getenv("MONGO_PASSWORD"),
			RedisAddr:     envOr("REDIS_ADDR", "127.0.0.1:6379"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       envInt("REDIS_DB", 0),
			JWTSecret:     []byte(envOr("JWT_SECRET", "dev-only-secret")),
			PingTimeout:   time.Duration(envInt("WS_PING_TIMEOUT_MS", 60000)) * time.Millisecond,
			NodeID:        int64(envInt("NODE_ID", 1)),
		}
	})
	return cfg
}

func JWTSecret() []byte { return Load().JWTSecret }

func PingTimeout() time.Duration { return Load().PingTimeout }

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
