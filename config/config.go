package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	DatabaseName      string `mapstructure:"DATABASE_NAME"`
	Env               string `mapstructure:"ENV"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr       string        `mapstructure:"REDIS_ADDR"`
	RedisPassword   string        `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB    int           `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB    int           `mapstructure:"REDIS_QUEUE_DB"`
	BalanceCacheTTL time.Duration `mapstructure:"BALANCE_CACHE_TTL"`

	// Ledger behaviour. STORAGE is "mongo" or "memory".
	Storage            string `mapstructure:"STORAGE"`
	MongoTransactions  bool   `mapstructure:"MONGO_TRANSACTIONS"`
	PaymentAutoConfirm bool   `mapstructure:"PAYMENT_AUTO_CONFIRM"`
	InvoicePrefix      string `mapstructure:"INVOICE_PREFIX"`
	ReceiptPrefix      string `mapstructure:"RECEIPT_PREFIX"`

	// Integrations.
	StripeKey           string `mapstructure:"STRIPE_KEY"`
	ReceiptQueueEnabled bool   `mapstructure:"RECEIPT_QUEUE_ENABLED"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 200)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_QUEUE_DB", 1)
	viper.SetDefault("BALANCE_CACHE_TTL", "10m")
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "edufees")
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("STORAGE", "mongo")
	viper.SetDefault("MONGO_TRANSACTIONS", false)
	viper.SetDefault("PAYMENT_AUTO_CONFIRM", true)
	viper.SetDefault("INVOICE_PREFIX", "INV")
	viper.SetDefault("RECEIPT_PREFIX", "RCP")
	viper.SetDefault("STRIPE_KEY", "")
	viper.SetDefault("RECEIPT_QUEUE_ENABLED", false)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
