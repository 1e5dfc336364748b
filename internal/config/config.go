package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"wbanalytics/internal/services/wildberries"
)

type Config struct {
	// Database
	DatabaseURL string `validate:"required"`
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string

	// Encryption
	EncryptionKey string `validate:"required"`

	// Wildberries API
	StocksURL           string        `validate:"required,url"`
	OrdersURL           string        `validate:"required,url"`
	PageLimit           int           `validate:"min=1,max=1000"`
	StockPageDelay      time.Duration `validate:"min=0"`
	SalesPageDelay      time.Duration `validate:"min=0"`
	RateLimitCooldown   time.Duration `validate:"min=0"`
	MaxRateLimitRetries int           `validate:"min=0"`
	MaxServerRetries    int           `validate:"min=0"`
	HTTPTimeout         time.Duration `validate:"min=0"`

	// Run selection
	Shops         []string
	StartDate     string `validate:"required_with=EndDate,omitempty,datetime=2006-01-02"`
	EndDate       string `validate:"required_with=StartDate,omitempty,datetime=2006-01-02"`
	RefreshTokens bool

	// Debug export
	ExportDir string

	// Kafka
	KafkaBrokers []string
	KafkaTopic   string

	// Environment
	Env       string
	LogLevel  string `validate:"oneof=debug info warn warning error fatal"`
	LogFormat string `validate:"oneof=console json"`
	LogOutput string
}

func Load() (*Config, error) {
	// Load .env file
	godotenv.Load()

	cfg := &Config{
		DBHost:              getEnv("DB_HOST", "localhost"),
		DBPort:              getEnv("DB_PORT", "3306"),
		DBUser:              getEnv("DB_USER", ""),
		DBPassword:          getEnv("DB_PASSWORD", ""),
		DBName:              getEnv("DB_NAME", ""),
		EncryptionKey:       getEnv("ENCRYPTION_KEY", ""),
		StocksURL:           getEnv("WB_STOCKS_URL", wildberries.DefaultStocksURL),
		OrdersURL:           getEnv("WB_ORDERS_URL", wildberries.DefaultOrdersURL),
		PageLimit:           getEnvAsInt("PAGE_LIMIT", wildberries.DefaultPageLimit),
		StockPageDelay:      getEnvAsDuration("STOCK_PAGE_DELAY", 20*time.Second),
		SalesPageDelay:      getEnvAsDuration("SALES_PAGE_DELAY", 60*time.Second),
		RateLimitCooldown:   getEnvAsDuration("RATE_LIMIT_COOLDOWN", 60*time.Second),
		MaxRateLimitRetries: getEnvAsInt("MAX_RATE_LIMIT_RETRIES", 0),
		MaxServerRetries:    getEnvAsInt("MAX_SERVER_RETRIES", 3),
		HTTPTimeout:         getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),
		Shops:               getEnvAsList("SHOPS"),
		StartDate:           getEnv("START_DATE", ""),
		EndDate:             getEnv("END_DATE", ""),
		RefreshTokens:       getEnvAsBool("REFRESH_TOKENS", true),
		ExportDir:           getEnv("EXPORT_DIR", ""),
		KafkaBrokers:        getEnvAsList("KAFKA_BROKERS"),
		KafkaTopic:          getEnv("KAFKA_TOPIC", "analytics-events"),
		Env:                 getEnv("ENV", "development"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "console"),
		LogOutput:           getEnv("LOG_OUTPUT", "stdout"),
	}
	cfg.DatabaseURL = getEnv("DATABASE_URL", "")
	if cfg.DatabaseURL == "" && cfg.DBName != "" {
		cfg.DatabaseURL = "mysql://" + mysqlDSN(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded values against the struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// RangeMode reports whether an explicit date range was configured.
func (c *Config) RangeMode() bool {
	return c.StartDate != "" && c.EndDate != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("20s") or a bare number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// Pacing returns the fetch loop delays and retry ceilings.
func (c *Config) Pacing() wildberries.Pacing {
	return wildberries.Pacing{
		StockPageDelay:      c.StockPageDelay,
		SalesPageDelay:      c.SalesPageDelay,
		RateLimitCooldown:   c.RateLimitCooldown,
		MaxRateLimitRetries: c.MaxRateLimitRetries,
		MaxServerRetries:    c.MaxServerRetries,
	}
}
