package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything a service needs at startup. Values come from the
// environment (a .env file is loaded when present); timing knobs that the
// saga depends on are deliberately configuration, not constants.
type Config struct {
	Database struct {
		Host     string
		Port     int
		User     string
		Password string
		Name     string
	}
	RabbitMQ struct {
		Host     string
		Port     int
		User     string
		Password string
	}
	RPC struct {
		Timeout time.Duration // deadline for one request/reply call
	}
	Retry struct {
		TTL         time.Duration // delay a retry task sits in its holding queue
		MaxAttempts int           // escalation threshold for retry loops
	}
	Market struct {
		URL string // external farmers-market buy endpoint
	}
	Auth struct {
		JWTSecret string
		TokenTTL  time.Duration
	}
}

// Load reads the environment (plus an optional .env file) into a Config,
// applies defaults, and validates required fields.
func Load() (*Config, error) {
	// best effort; absence of a .env file is not an error
	_ = godotenv.Load()

	var cfg Config

	cfg.Database.Host = getEnv("DATABASE_HOST", "localhost")
	cfg.Database.User = os.Getenv("DATABASE_USER")
	cfg.Database.Password = os.Getenv("DATABASE_PASSWORD")
	cfg.Database.Name = os.Getenv("DATABASE_NAME")
	port, err := getEnvInt("DATABASE_PORT", 5432)
	if err != nil {
		return nil, err
	}
	cfg.Database.Port = port

	cfg.RabbitMQ.Host = getEnv("RABBITMQ_HOST", "localhost")
	cfg.RabbitMQ.User = getEnv("RABBITMQ_USER", "guest")
	cfg.RabbitMQ.Password = getEnv("RABBITMQ_PASSWORD", "guest")
	port, err = getEnvInt("RABBITMQ_PORT", 5672)
	if err != nil {
		return nil, err
	}
	cfg.RabbitMQ.Port = port

	ms, err := getEnvInt("RPC_TIMEOUT_MS", 10_000)
	if err != nil {
		return nil, err
	}
	cfg.RPC.Timeout = time.Duration(ms) * time.Millisecond

	ms, err = getEnvInt("RETRY_TTL_MS", 10_000)
	if err != nil {
		return nil, err
	}
	cfg.Retry.TTL = time.Duration(ms) * time.Millisecond

	cfg.Retry.MaxAttempts, err = getEnvInt("RETRY_MAX_ATTEMPTS", 30)
	if err != nil {
		return nil, err
	}

	cfg.Market.URL = getEnv("MARKET_API_URL", "https://recruitment.alegra.com/api/farmers-market/buy")

	cfg.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	ms, err = getEnvInt("JWT_TTL_MS", int(time.Hour/time.Millisecond))
	if err != nil {
		return nil, err
	}
	cfg.Auth.TokenTTL = time.Duration(ms) * time.Millisecond

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// RabbitURL builds the AMQP dial URL.
func (c *Config) RabbitURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s/",
		c.RabbitMQ.User, c.RabbitMQ.Password,
		net.JoinHostPort(c.RabbitMQ.Host, strconv.Itoa(c.RabbitMQ.Port)))
}

// validate checks required fields and basic ranges.
func (c *Config) validate() error {
	var problems []string

	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		problems = append(problems, "DATABASE_PORT must be in 1..65535")
	}
	if c.Database.User == "" {
		problems = append(problems, "DATABASE_USER is required")
	}
	if c.Database.Password == "" {
		problems = append(problems, "DATABASE_PASSWORD is required")
	}
	if c.Database.Name == "" {
		problems = append(problems, "DATABASE_NAME is required")
	}

	if c.RabbitMQ.Port <= 0 || c.RabbitMQ.Port > 65535 {
		problems = append(problems, "RABBITMQ_PORT must be in 1..65535")
	}

	if c.RPC.Timeout <= 0 {
		problems = append(problems, "RPC_TIMEOUT_MS must be > 0")
	}
	if c.Retry.TTL <= 0 {
		problems = append(problems, "RETRY_TTL_MS must be > 0")
	}
	if c.Retry.MaxAttempts <= 0 {
		problems = append(problems, "RETRY_MAX_ATTEMPTS must be > 0")
	}
	if c.Market.URL == "" {
		problems = append(problems, "MARKET_API_URL is required")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
