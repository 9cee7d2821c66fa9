package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every knob the payment core needs. It is loaded once in
// main and injected into constructors; nothing reads the environment at
// call time.
type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	AppPort    string
	AppEnv     string

	// Payment gateway
	MerchantID      string
	GatewayBaseURL  string
	CallbackBaseURL string
	// MinorUnitFactor converts stored display-unit amounts to the
	// gateway's unit of account on outbound requests only.
	MinorUnitFactor int64
	ReservationTTL  time.Duration

	// Pages the callback handler redirects the buyer's browser to.
	PaymentSuccessURL string
	PaymentFailureURL string

	JWTSecret string
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     os.Getenv("DB_PORT"),
		AppPort:    os.Getenv("APP_PORT"),
		AppEnv:     os.Getenv("APP_ENV"),

		MerchantID:      os.Getenv("MERCHANT_ID"),
		GatewayBaseURL:  getEnvDefault("GATEWAY_BASE_URL", "https://api.zarinpal.com"),
		CallbackBaseURL: os.Getenv("CALLBACK_BASE_URL"),
		MinorUnitFactor: getEnvInt64("GATEWAY_MINOR_UNIT_FACTOR", 10),
		ReservationTTL:  time.Duration(getEnvInt64("RESERVATION_TTL_SECONDS", 900)) * time.Second,

		PaymentSuccessURL: os.Getenv("PAYMENT_SUCCESS_URL"),
		PaymentFailureURL: os.Getenv("PAYMENT_FAILURE_URL"),

		JWTSecret: os.Getenv("JWT_SECRET"),
	}

	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	return cfg
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return n
}
