package config

import (
	"os"
	"strconv"
	"time"
)

type ShieldServiceConfig struct {
	Port        string
	PostgresCfg PostgresConfig
	RedisCfg    RedisConfig
	RabbitMQCfg RabbitMQConfig
	MinioCfg    MinioConfig
	WeatherCfg  WeatherConfig
	LedgerCfg   LedgerConfig
	MonitorCfg  MonitorConfig
}

type PostgresConfig struct {
	DBname   string
	Username string
	Password string
	Host     string
	Port     string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type RabbitMQConfig struct {
	Username string
	Password string
	Host     string
	Port     string
}

type MinioConfig struct {
	MinioURL        string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioLocation   string
	MinioSecure     string
	EvidenceBucket  string
	ResourceBaseURL string
}

type WeatherConfig struct {
	BaseURL string
	APIKey  string
	Units   string
	Timeout time.Duration
}

type LedgerConfig struct {
	GatewayURL     string
	APIKey         string
	RequestTimeout time.Duration
}

type MonitorConfig struct {
	Interval            time.Duration
	NumWorkers          int
	QueueSize           int
	MaxTransferAttempts int
	LockTTL             time.Duration
}

func New() *ShieldServiceConfig {
	return &ShieldServiceConfig{
		Port: getEnvOrDefault("PORT", "8086"),
		PostgresCfg: PostgresConfig{
			DBname:   getEnvOrDefault("POSTGRES_DB", "farmershield"),
			Username: getEnvOrDefault("POSTGRES_USER", "postgres"),
			Password: getEnvOrDefault("POSTGRES_PASSWORD", "postgres"),
			Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
			Port:     getEnvOrDefault("POSTGRES_PORT", "5432"),
		},
		RedisCfg: RedisConfig{
			Host:     getEnvOrDefault("REDIS_HOST", "localhost"),
			Port:     getEnvOrDefault("REDIS_PORT", "6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       0,
		},
		RabbitMQCfg: RabbitMQConfig{
			Username: getEnvOrDefault("RABBITMQ_USER", "admin"),
			Password: getEnvOrDefault("RABBITMQ_PWD", "admin"),
			Host:     getEnvOrDefault("RABBITMQ_HOST", "localhost"),
			Port:     getEnvOrDefault("RABBITMQ_PORT", "5672"),
		},
		MinioCfg: MinioConfig{
			MinioURL:        getEnvOrDefault("MINIO_ENDPOINT", "http://localhost:9407"),
			MinioAccessKey:  getEnvOrDefault("MINIO_ACCESS_KEY", "minio"),
			MinioSecretKey:  getEnvOrDefault("MINIO_SECRET_KEY", "minio123"),
			MinioLocation:   getEnvOrDefault("MINIO_LOCATION", "us-east-1"),
			MinioSecure:     getEnvOrDefault("MINIO_SECURE", "false"),
			EvidenceBucket:  getEnvOrDefault("MINIO_EVIDENCE_BUCKET", "claim-evidence"),
			ResourceBaseURL: getEnvOrDefault("MINIO_RESOURCE_URL", "http://localhost:9407/"),
		},
		WeatherCfg: WeatherConfig{
			BaseURL: getEnvOrDefault("WEATHER_API_URL", "https://api.openweathermap.org/data/3.0/onecall"),
			APIKey:  getEnvOrDefault("WEATHER_API_KEY", ""),
			Units:   getEnvOrDefault("WEATHER_UNITS", "metric"),
			Timeout: getDurationOrDefault("WEATHER_TIMEOUT", 30*time.Second),
		},
		LedgerCfg: LedgerConfig{
			GatewayURL:     getEnvOrDefault("LEDGER_GATEWAY_URL", "http://localhost:8545/payouts"),
			APIKey:         getEnvOrDefault("LEDGER_API_KEY", ""),
			RequestTimeout: getDurationOrDefault("LEDGER_TIMEOUT", 60*time.Second),
		},
		MonitorCfg: MonitorConfig{
			Interval:            getDurationOrDefault("MONITOR_INTERVAL", 10*time.Minute),
			NumWorkers:          getIntOrDefault("MONITOR_WORKERS", 5),
			QueueSize:           getIntOrDefault("MONITOR_QUEUE_SIZE", 100),
			MaxTransferAttempts: getIntOrDefault("MAX_TRANSFER_ATTEMPTS", 3),
			LockTTL:             getDurationOrDefault("SETTLE_LOCK_TTL", 2*time.Minute),
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
