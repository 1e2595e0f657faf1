package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	OTLP     OTLPConfig
	Database DatabaseConfig
	Search   SearchConfig
}

type ServerConfig struct {
	Port string
	Host string
}

type OTLPConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
	Environment string
	LogLevel    string
}

type DatabaseConfig struct {
	// Driver is either "sqlite" or "memory".
	Driver string
	Path   string
}

type SearchConfig struct {
	// Provider is either "static" or "html".
	Provider          string
	CatalogFile       string
	BaseURL           string
	QueryParam        string
	CategoryParam     string
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	ItemSelector      string
	NameSelector      string
	DescSelector      string
	PriceSelector     string
	CategorySelector  string
	CategoryIDAttr    string
}

// LoadConfig loads configuration from environment variables. Values from a
// .env file in the working directory are applied first without overriding
// variables that are already set.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnv("SERVER_PORT", "8080"),
		},
		OTLP: OTLPConfig{
			Enabled:     getEnvBool("OTEL_ENABLED", true),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "price-watch-api"),
			Environment: getEnv("OTEL_ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Driver: getEnv("DB_DRIVER", "sqlite"),
			Path:   getEnv("DB_PATH", "./catalog.db"),
		},
		Search: SearchConfig{
			Provider:          getEnv("SEARCH_PROVIDER", "static"),
			CatalogFile:       getEnv("SEARCH_CATALOG_FILE", "./configs/search_catalog.yaml"),
			BaseURL:           getEnv("SEARCH_BASE_URL", ""),
			QueryParam:        getEnv("SEARCH_QUERY_PARAM", "q"),
			CategoryParam:     getEnv("SEARCH_CATEGORY_PARAM", "category"),
			UserAgent:         getEnv("SEARCH_USER_AGENT", "price-watch-api/1.0"),
			Timeout:           getEnvDuration("SEARCH_TIMEOUT", 30*time.Second),
			RequestsPerSecond: getEnvFloat("SEARCH_RPS", 2),
			ItemSelector:      getEnv("SEARCH_ITEM_SELECTOR", ".product"),
			NameSelector:      getEnv("SEARCH_NAME_SELECTOR", ".product-name"),
			DescSelector:      getEnv("SEARCH_DESCRIPTION_SELECTOR", ".product-description"),
			PriceSelector:     getEnv("SEARCH_PRICE_SELECTOR", ".product-price"),
			CategorySelector:  getEnv("SEARCH_CATEGORY_SELECTOR", ".product-category"),
			CategoryIDAttr:    getEnv("SEARCH_CATEGORY_ID_ATTR", "data-category-id"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if parsed, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return parsed
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if parsed, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil && parsed >= 0 {
		return parsed
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if parsed, err := time.ParseDuration(os.Getenv(key)); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}
