package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/cloudx-io/escrowauction/core"
)

const (
	TransportVsock = "vsock"
	TransportTCP   = "tcp"

	defaultPort   = 5000
	defaultEscrow = "0xescrow"
)

// Config is the daemon configuration, read from AUCTIOND_* environment variables.
type Config struct {
	Port       uint32
	Transport  string
	MaxWorkers int
	StateFile  string // empty disables persistence
	Escrow     core.Account
}

func loadConfig() (Config, error) {
	port, err := getEnvInt("AUCTIOND_PORT", defaultPort)
	if err != nil {
		return Config{}, err
	}
	if port <= 0 || port > 65535 {
		return Config{}, fmt.Errorf("invalid value for AUCTIOND_PORT: %d", port)
	}

	maxWorkers, err := getRequiredEnvInt("AUCTIOND_MAX_WORKERS")
	if err != nil {
		return Config{}, fmt.Errorf("failed to get max workers config: %w", err)
	}
	if maxWorkers <= 0 {
		return Config{}, fmt.Errorf("AUCTIOND_MAX_WORKERS must be positive, got %d", maxWorkers)
	}

	transport := getEnv("AUCTIOND_TRANSPORT", TransportVsock)
	if transport != TransportVsock && transport != TransportTCP {
		return Config{}, fmt.Errorf("invalid value for AUCTIOND_TRANSPORT: %s (must be vsock or tcp)", transport)
	}

	return Config{
		Port:       uint32(port),
		Transport:  transport,
		MaxWorkers: maxWorkers,
		StateFile:  os.Getenv("AUCTIOND_STATE_FILE"),
		Escrow:     core.Account(getEnv("AUCTIOND_ESCROW_ACCOUNT", defaultEscrow)),
	}, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	if os.Getenv(key) == "" {
		return fallback, nil
	}
	return getRequiredEnvInt(key)
}

// Helper function for required environment variable parsing
func getRequiredEnvInt(key string) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return 0, fmt.Errorf("required environment variable %s is not set", key)
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %s (must be a valid integer)", key, value)
	}

	log.Printf("INFO: Using %s=%d from environment", key, intValue)
	return intValue, nil
}
