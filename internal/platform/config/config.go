package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process configuration. FromEnv builds it from environment
// variables so main stays lean.
type Config struct {
	Addr          string
	JWTSigningKey string

	// Bootstrap addresses. Admin and operator are granted their roles at
	// startup; custody is the marketplace escrow account.
	AdminAddr    string
	OperatorAddr string
	CustodyAddr  string

	// Empty DSN selects the in-memory stores.
	PostgresDSN string

	Redis RedisConfig
	Kafka KafkaConfig

	// ProfileCacheTTL bounds staleness of the Redis profile read cache.
	ProfileCacheTTL time.Duration
}

// RedisConfig configures the optional profile cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the audit outbox drain. Empty brokers disable it.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	PollInterval time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:            envOr("CAC_ADDR", ":8080"),
		JWTSigningKey:   envOr("CAC_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		AdminAddr:       os.Getenv("CAC_ADMIN_ADDR"),
		OperatorAddr:    os.Getenv("CAC_OPERATOR_ADDR"),
		CustodyAddr:     os.Getenv("CAC_CUSTODY_ADDR"),
		PostgresDSN:     os.Getenv("CAC_POSTGRES_DSN"),
		ProfileCacheTTL: envDuration("CAC_PROFILE_CACHE_TTL", 5*time.Minute),
		Redis: RedisConfig{
			URL:          os.Getenv("CAC_REDIS_URL"),
			PoolSize:     envInt("CAC_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("CAC_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("CAC_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("CAC_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("CAC_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Topic:        envOr("CAC_KAFKA_TOPIC", "cac.audit"),
			PollInterval: envDuration("CAC_KAFKA_POLL_INTERVAL", time.Second),
		},
	}
	if brokers := os.Getenv("CAC_KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
