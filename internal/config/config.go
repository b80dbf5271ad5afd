// internal/config/config.go
package config

import (
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Cache      CacheConfig
	Forecaster ForecasterConfig
	Storage    StorageConfig
	Events     EventsConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	LogFormat      string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CacheConfig struct {
	Enabled            bool
	RedisURL           string
	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RedisDB            int
	ForecastTTLSeconds int
}

// ForecasterConfig describes the remote ML engine and the fallback path.
// An empty URL leaves the gateway in fallback-only mode.
type ForecasterConfig struct {
	URL                 string
	ClientID            string
	ClientSecret        string
	TokenURL            string
	Timeout             time.Duration
	TrainEpochs         int
	MaxHorizon          int
	FallbackSeed        int64
	OptimizeConcurrency int
}

type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
}

type EventsConfig struct {
	Enabled       bool
	NatsURL       string
	StreamName    string
	RetryAttempts int
	RetryDelay    time.Duration
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		instance = load(viper.GetViper())
	})

	return instance
}

func load(v *viper.Viper) *Config {
	setDefaults(v)

	// Read from environment variables
	v.AutomaticEnv()

	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			LogFormat:      v.GetString("LOG_FORMAT"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Enabled:  v.GetBool("DB_ENABLED"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Cache: CacheConfig{
			Enabled:            v.GetBool("CACHE_ENABLED"),
			RedisURL:           v.GetString("REDIS_URL"),
			RedisHost:          v.GetString("REDIS_HOST"),
			RedisPort:          v.GetString("REDIS_PORT"),
			RedisPassword:      v.GetString("REDIS_PASSWORD"),
			RedisDB:            v.GetInt("REDIS_DB"),
			ForecastTTLSeconds: v.GetInt("CACHE_FORECAST_TTL_SECONDS"),
		},
		Forecaster: ForecasterConfig{
			URL:                 strings.TrimRight(v.GetString("FORECASTER_URL"), "/"),
			ClientID:            v.GetString("FORECASTER_CLIENT_ID"),
			ClientSecret:        v.GetString("FORECASTER_CLIENT_SECRET"),
			TokenURL:            v.GetString("FORECASTER_TOKEN_URL"),
			Timeout:             v.GetDuration("FORECASTER_TIMEOUT"),
			TrainEpochs:         v.GetInt("FORECASTER_TRAIN_EPOCHS"),
			MaxHorizon:          v.GetInt("FORECASTER_MAX_HORIZON"),
			FallbackSeed:        v.GetInt64("FORECASTER_FALLBACK_SEED"),
			OptimizeConcurrency: v.GetInt("FORECASTER_OPTIMIZE_CONCURRENCY"),
		},
		Storage: StorageConfig{
			Enabled:   v.GetBool("STORAGE_ENABLED"),
			Endpoint:  v.GetString("STORAGE_ENDPOINT"),
			AccessKey: v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: v.GetString("STORAGE_SECRET_KEY"),
			Bucket:    v.GetString("STORAGE_BUCKET"),
			Region:    v.GetString("STORAGE_REGION"),
			UseSSL:    v.GetBool("STORAGE_USE_SSL"),
			Prefix:    v.GetString("STORAGE_PREFIX"),
		},
		Events: EventsConfig{
			Enabled:       v.GetBool("EVENTS_ENABLED"),
			NatsURL:       v.GetString("NATS_URL"),
			StreamName:    v.GetString("NATS_STREAM"),
			RetryAttempts: v.GetInt("NATS_RETRY_ATTEMPTS"),
			RetryDelay:    v.GetDuration("NATS_RETRY_DELAY"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8000")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 60)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:4200", "http://localhost:5173"})

	v.SetDefault("DB_ENABLED", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "inventory_ml")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_FORECAST_TTL_SECONDS", 300)

	v.SetDefault("FORECASTER_URL", "")
	v.SetDefault("FORECASTER_TIMEOUT", "30s")
	v.SetDefault("FORECASTER_TRAIN_EPOCHS", 50)
	v.SetDefault("FORECASTER_MAX_HORIZON", 365)
	v.SetDefault("FORECASTER_FALLBACK_SEED", 0)
	v.SetDefault("FORECASTER_OPTIMIZE_CONCURRENCY", 4)

	v.SetDefault("STORAGE_ENABLED", false)
	v.SetDefault("STORAGE_REGION", "us-east-1")
	v.SetDefault("STORAGE_USE_SSL", true)
	v.SetDefault("STORAGE_PREFIX", "reports")

	v.SetDefault("EVENTS_ENABLED", false)
	v.SetDefault("NATS_URL", "nats://localhost:4222")
	v.SetDefault("NATS_STREAM", "inventory")
	v.SetDefault("NATS_RETRY_ATTEMPTS", 3)
	v.SetDefault("NATS_RETRY_DELAY", "1s")
}
