package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all runtime settings. Values come from the environment,
// optionally seeded from a .env file by LoadEnv.
type Config struct {
	Env  string `mapstructure:"ENV"`
	Port string `mapstructure:"PORT"`

	StorageDriver     string        `mapstructure:"STORAGE_DRIVER"`
	DBHost            string        `mapstructure:"DB_HOST"`
	DBPort            string        `mapstructure:"DB_PORT"`
	DBUser            string        `mapstructure:"DB_USER"`
	DBPassword        string        `mapstructure:"DB_PASSWORD"`
	DBName            string        `mapstructure:"DB_NAME"`
	DBSSLMode         string        `mapstructure:"DB_SSLMODE"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME"`
	DBConnMaxIdleTime time.Duration `mapstructure:"DB_CONN_MAX_IDLE_TIME"`

	RedisHost     string        `mapstructure:"REDIS_HOST"`
	RedisPort     string        `mapstructure:"REDIS_PORT"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`
	CacheTTL      time.Duration `mapstructure:"CACHE_TTL"`

	RabbitMQURL       string `mapstructure:"RABBITMQ_URL"`
	IdempotencyDBPath string `mapstructure:"IDEMPOTENCY_DB_PATH"`

	JWTSecret string        `mapstructure:"JWT_SECRET"`
	TokenTTL  time.Duration `mapstructure:"TOKEN_TTL"`

	TransferFeeRate     string        `mapstructure:"TRANSFER_FEE_RATE"`
	WithdrawalFeeRate   string        `mapstructure:"WITHDRAWAL_FEE_RATE"`
	TransferMaxAttempts int           `mapstructure:"TRANSFER_MAX_ATTEMPTS"`
	TransferBackoff     time.Duration `mapstructure:"TRANSFER_BACKOFF"`

	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogPretty   bool   `mapstructure:"LOG_PRETTY"`
	CORSOrigins string `mapstructure:"CORS_ORIGINS"`
}

var defaults = map[string]interface{}{
	"ENV":                   "development",
	"PORT":                  "8080",
	"STORAGE_DRIVER":        "postgres",
	"DB_HOST":               "localhost",
	"DB_PORT":               "5432",
	"DB_USER":               "postgres",
	"DB_PASSWORD":           "postgres",
	"DB_NAME":               "amafaranga",
	"DB_SSLMODE":            "disable",
	"DB_MAX_IDLE_CONNS":     10,
	"DB_MAX_OPEN_CONNS":     50,
	"DB_CONN_MAX_LIFETIME":  "1h",
	"DB_CONN_MAX_IDLE_TIME": "10m",
	"REDIS_HOST":            "localhost",
	"REDIS_PORT":            "6379",
	"REDIS_PASSWORD":        "",
	"REDIS_DB":              0,
	"CACHE_TTL":             "10m",
	"RABBITMQ_URL":          "",
	"IDEMPOTENCY_DB_PATH":   "idempotency.db",
	"JWT_SECRET":            "",
	"TOKEN_TTL":             "24h",
	"TRANSFER_FEE_RATE":     "0.10",
	"WITHDRAWAL_FEE_RATE":   "0.25",
	"TRANSFER_MAX_ATTEMPTS": 3,
	"TRANSFER_BACKOFF":      "50ms",
	"LOG_LEVEL":             "info",
	"LOG_PRETTY":            false,
	"CORS_ORIGINS":          "*",
}

// Load reads the configuration from the environment on top of defaults.
func Load() (Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
		_ = v.BindEnv(key)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	cfg.StorageDriver = strings.ToLower(cfg.StorageDriver)
	return cfg, nil
}

// IsProduction reports whether ENV is production.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// RedisAddr joins host and port.
func (c Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found: %v", err)
	}
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
