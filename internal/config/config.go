package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	AppPort    string
	AppEnv     string
	JWTSecret  string

	RedisAddr     string
	RedisPassword string

	// EventBroker selects the outbox publisher: rabbitmq, kafka or log.
	EventBroker   string
	RabbitMQURL   string
	RabbitMQExch  string
	KafkaBrokers  string
	RelayInterval time.Duration

	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string

	OTPTTL time.Duration

	DeliveryCharge     decimal.Decimal
	FreeDeliveryAbove  decimal.Decimal
	InternalSecretKey  string
	CORSAllowedOrigins []string
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     os.Getenv("DB_PORT"),
		AppPort:    getenv("APP_PORT", "8080"),
		AppEnv:     os.Getenv("APP_ENV"),
		JWTSecret:  os.Getenv("JWT_SECRET"),

		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		EventBroker:   strings.ToLower(getenv("EVENT_BROKER", "log")),
		RabbitMQURL:   os.Getenv("RABBITMQ_URL"),
		RabbitMQExch:  getenv("RABBITMQ_EXCHANGE", "storefront.events"),
		KafkaBrokers:  os.Getenv("KAFKA_BROKERS"),
		RelayInterval: getDuration("OUTBOX_RELAY_INTERVAL", 2*time.Second),

		RazorpayKeyID:         os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret:     os.Getenv("RAZORPAY_KEY_SECRET"),
		RazorpayWebhookSecret: os.Getenv("RAZORPAY_WEBHOOK_SECRET"),

		OTPTTL: getDuration("OTP_TTL", 10*time.Minute),

		DeliveryCharge:     getDecimal("DELIVERY_CHARGE", decimal.NewFromInt(49)),
		FreeDeliveryAbove:  getDecimal("FREE_DELIVERY_ABOVE", decimal.NewFromInt(1000)),
		InternalSecretKey:  os.Getenv("INTERNAL_SECRET_KEY"),
		CORSAllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
	}

	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	return cfg
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// plain integers are read as seconds
		if n, convErr := strconv.Atoi(v); convErr == nil {
			return time.Duration(n) * time.Second
		}
		log.Printf("invalid duration for %s=%q, using %s", key, v, def)
		return def
	}
	return d
}

func getDecimal(key string, def decimal.Decimal) decimal.Decimal {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		log.Printf("invalid decimal for %s=%q, using %s", key, v, def)
		return def
	}
	return d
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
