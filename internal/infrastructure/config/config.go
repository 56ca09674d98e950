// Package config reads the service settings from the environment. A .env
// file is loaded by the entrypoints through godotenv.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"mecanica_marketplace/internal/usecase"
)

const (
	StoreBackendDynamoDB = "dynamodb"
	StoreBackendMemory   = "memory"

	defaultLockTTL = 30 * time.Second
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// LockTTL is how long a job lock survives a crashed holder.
	LockTTL time.Duration
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

type Config struct {
	Port          string
	StoreBackend  string
	Lifecycle     usecase.Config
	SweepSchedule string
	// EnsureTables creates missing DynamoDB tables on start (local development).
	EnsureTables bool

	NotifyWorkers   int
	NotifyQueueSize int

	Redis RedisConfig

	MercadoPagoAccessToken string
	PaymentGatewayMock     bool
}

func Load() Config {
	def := usecase.DefaultConfig()
	cfg := Config{
		Port:         getenvDefault("PORT", "8080"),
		StoreBackend: strings.ToLower(getenvDefault("STORE_BACKEND", StoreBackendDynamoDB)),
		Lifecycle: usecase.Config{
			JobPostingTTL:   getDuration("JOB_POSTING_TTL", def.JobPostingTTL),
			ExpiringWarnMin: getDuration("JOB_EXPIRING_WARN_MIN", def.ExpiringWarnMin),
			ExpiringWarnMax: getDuration("JOB_EXPIRING_WARN_MAX", def.ExpiringWarnMax),
			ChangeOrderTTL:  getDuration("CHANGE_ORDER_TTL", def.ChangeOrderTTL),
			SweepOnRead:     getBool("SWEEP_ON_READ", false),
			PaymentTimeout:  getDuration("PAYMENT_TIMEOUT", def.PaymentTimeout),
			Payer: usecase.PayerDefaults{
				Sandbox: strings.HasPrefix(strings.TrimSpace(os.Getenv("MERCADOPAGO_ACCESS_TOKEN")), "TEST-"),
				Email:   strings.TrimSpace(os.Getenv("MERCADOPAGO_TEST_PAYER_EMAIL")),
				UserID:  strings.TrimSpace(os.Getenv("MERCADOPAGO_TEST_PAYER_USER_ID")),
			},
		},
		SweepSchedule:   getenvDefault("SWEEP_SCHEDULE", "@every 5m"),
		EnsureTables:    getBool("DYNAMODB_ENSURE_TABLES", false),
		NotifyWorkers:   getInt("NOTIFY_WORKERS", 4),
		NotifyQueueSize: getInt("NOTIFY_QUEUE_SIZE", 256),
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
			LockTTL:  getDuration("REDIS_LOCK_TTL", defaultLockTTL),
		},
		MercadoPagoAccessToken: os.Getenv("MERCADOPAGO_ACCESS_TOKEN"),
		PaymentGatewayMock:     getBool("PAYMENT_GATEWAY_MOCK", false) || getBool("MERCADOPAGO_MOCK", false),
	}
	cfg.Lifecycle.PaymentTimeout = boundPaymentTimeout(cfg.Lifecycle.PaymentTimeout, cfg.Redis.LockTTL)
	return cfg
}

// boundPaymentTimeout keeps provider calls shorter than the job lock TTL,
// leaving a third of the TTL for the writes that follow the call.
func boundPaymentTimeout(timeout, lockTTL time.Duration) time.Duration {
	limit := lockTTL * 2 / 3
	if limit > 0 && timeout > limit {
		log.Printf("[config] PAYMENT_TIMEOUT=%s exceeds the lock TTL budget, using %s", timeout, limit)
		return limit
	}
	return timeout
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("[config] invalid duration %s=%q, using %s", key, v, def)
		return def
	}
	return d
}

func getInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		log.Printf("[config] invalid integer %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func getBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "":
		return def
	case "1", "true", "yes", "on", "mock":
		return true
	default:
		return false
	}
}
