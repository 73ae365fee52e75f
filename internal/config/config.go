package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the service configuration.
type Config struct {
	Port              string
	GRPCPort          string
	DBDriver          string
	DBDSN             string
	JWTSecret         string
	AMQPURL           string
	AMQPExchange      string
	OTLPEndpoint      string
	ServiceName       string
	AppEnv            string
	CORSOrigins       []string
	SendRatePerMinute int
	SendRateBurst     int
	DebugRoutes       bool
}

// Load reads .env.<APP_ENV> (or .env) and then the process environment.
func Load() (*Config, error) {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	envFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envFile); err != nil {
		if err := godotenv.Load(); err != nil {
			log.Printf("no .env file found, using system environment variables")
		}
	} else {
		log.Printf("loaded configuration from %s", envFile)
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8083"),
		GRPCPort:          getEnv("GRPC_PORT", "9083"),
		DBDriver:          getEnv("DB_DRIVER", "postgres"),
		DBDSN:             getEnv("DB_DSN", ""),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		AMQPURL:           getEnv("AMQP_URL", ""),
		AMQPExchange:      getEnv("AMQP_EXCHANGE", "marketplace.events"),
		OTLPEndpoint:      getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:       getEnv("SERVICE_NAME", "conversation-service"),
		AppEnv:            getEnv("APP_ENV", "development"),
		CORSOrigins:       splitList(getEnv("CORS_ORIGINS", "*")),
		SendRatePerMinute: getEnvInt("SEND_RATE_PER_MINUTE", 30),
		SendRateBurst:     getEnvInt("SEND_RATE_BURST", 10),
		DebugRoutes:       getEnvBool("DEBUG_ROUTES", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that all required configuration values are set.
func (c *Config) Validate() error {
	if c.DBDSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	val, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		log.Printf("config: invalid %s=%q, using %d", key, raw, fallback)
		return fallback
	}
	return val
}

func getEnvBool(key string, fallback bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	val, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return val
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
