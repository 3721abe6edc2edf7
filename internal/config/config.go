package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the service reads from the environment.
type Config struct {
	Service  ServiceConfig
	Server   ServerConfig
	Database DatabaseConfig
	NATS     NATSConfig
	Retry    RetryConfig
}

type ServiceConfig struct {
	Name        string
	Version     string
	Environment string
}

type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	URL      string
	MaxConns int32
	MinConns int32
}

// NATSConfig names the subjects of the ledger boundary. Request/reply for
// simulation and dispatch, plain publish for reconciliation.
type NATSConfig struct {
	URL               string
	SimulationSubject string
	DispatchSubject   string
	ReconcileSubject  string
	RequestTimeout    time.Duration
}

// RetryConfig bounds retries on transient publish failures.
type RetryConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
}

// Load reads configuration from a .env file when present and the process
// environment otherwise.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Service: ServiceConfig{
			Name:        getEnv("SERVICE_NAME", "be-utbetaling"),
			Version:     getEnv("SERVICE_VERSION", "dev"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Server: ServerConfig{
			Port:            getEnvInt("HTTP_PORT", 8080),
			ReadTimeout:     getEnvDuration("HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			URL:      os.Getenv("DATABASE_URL"),
			MaxConns: int32(getEnvInt("DATABASE_MAX_CONNS", 10)),
			MinConns: int32(getEnvInt("DATABASE_MIN_CONNS", 2)),
		},
		NATS: NATSConfig{
			URL:               getEnv("NATS_URL", "nats://localhost:4222"),
			SimulationSubject: getEnv("NATS_SIMULATION_SUBJECT", "oppdrag.simulering"),
			DispatchSubject:   getEnv("NATS_DISPATCH_SUBJECT", "oppdrag.utbetaling"),
			ReconcileSubject:  getEnv("NATS_RECONCILE_SUBJECT", "oppdrag.avstemming"),
			RequestTimeout:    getEnvDuration("NATS_REQUEST_TIMEOUT", 10*time.Second),
		},
		Retry: RetryConfig{
			MaxAttempts: getEnvInt("PUBLISH_MAX_ATTEMPTS", 3),
			BaseBackoff: getEnvDuration("PUBLISH_BASE_BACKOFF", 500*time.Millisecond),
		},
	}

	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
