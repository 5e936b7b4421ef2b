package config

import (
	"os"
	"strconv"
	"time"

	"ticketer/internal/cache"
	"ticketer/internal/database"
	"ticketer/internal/external"
	"ticketer/internal/messaging"
	"ticketer/internal/search"
)

// Config holds the full application configuration.
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	// Platform holds settlement-wide constants.
	Platform PlatformConfig

	Database      database.Config
	NATS          messaging.Config
	Redis         cache.Config
	Elasticsearch search.Config
	Gateway       external.GatewayConfig
	Notification  external.NotificationConfig
}

// PlatformConfig identifies the platform's own collection account and currency.
type PlatformConfig struct {
	AdminUserID string
	Currency    string
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		Platform: PlatformConfig{
			AdminUserID: getEnv("PLATFORM_ADMIN_USER_ID", ""),
			Currency:    getEnv("PLATFORM_CURRENCY", "NGN"),
		},

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "ticketer"),
			Password:           getEnv("DB_PASSWORD", "ticketer123"),
			DBName:             getEnv("DB_NAME", "ticketer"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 100),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "ticketer"),
			ClientID:  getEnv("NATS_CLIENT_ID", "ticketer-api"),
		},

		Redis: cache.Config{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			TTL:      time.Duration(getEnvInt("REDIS_SETTLEMENT_TTL_MIN", 60)) * time.Minute,
		},

		Elasticsearch: search.Config{
			URL:        getEnv("ELASTICSEARCH_URL", "http://localhost:9200"),
			Username:   getEnv("ELASTICSEARCH_USERNAME", ""),
			Password:   getEnv("ELASTICSEARCH_PASSWORD", ""),
			Index:      getEnv("ELASTICSEARCH_LISTINGS_INDEX", "resale-listings"),
			MaxRetries: getEnvInt("ELASTICSEARCH_MAX_RETRIES", 3),
		},

		Gateway: external.GatewayConfig{
			BaseURL:         getEnv("PAYMENT_GATEWAY_URL", "https://api.korapay.com/merchant"),
			SecretKey:       getEnv("PAYMENT_GATEWAY_SECRET", ""),
			Timeout:         time.Duration(getEnvInt("PAYMENT_TIMEOUT_SEC", 30)) * time.Second,
			NotificationURL: getEnv("PAYMENT_NOTIFICATION_URL", ""),
		},

		Notification: external.NotificationConfig{
			BaseURL: getEnv("NOTIFICATION_SERVICE_URL", "http://localhost:8090"),
			APIKey:  getEnv("NOTIFICATION_API_KEY", ""),
			Timeout: time.Duration(getEnvInt("NOTIFICATION_TIMEOUT_SEC", 10)) * time.Second,
		},
	}
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
