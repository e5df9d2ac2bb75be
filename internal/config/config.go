// Package config loads simulator configuration from environment variables
// and an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all simulator configuration.
type Config struct {
	Simulation SimulationConfig
	Wallet     WalletConfig
	Rates      RatesConfig
	Metrics    MetricsConfig
	Logging    LoggingConfig
}

// SimulationConfig holds ensemble run parameters.
type SimulationConfig struct {
	Days           int
	EnsembleSize   int
	Workers        int
	Seed           int64
	RateVolatility float64
}

// WalletConfig holds the starting wallet for every ensemble member.
type WalletConfig struct {
	BaseCurrency   string
	InitialBalance decimal.Decimal
	CreditScore    int
	DailyNet       decimal.Decimal // signed daily cash flow (income minus spending)
}

// RatesConfig holds the initial exchange rate table.
type RatesConfig struct {
	// Pairs maps "FROM/TO" keys to rates, parsed from a comma-separated
	// list like "USD/EUR=0.92,EUR/PKR=302.7".
	Pairs map[string]decimal.Decimal
}

// MetricsConfig holds the optional Prometheus listener address.
type MetricsConfig struct {
	Addr string // empty disables the listener
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level string
}

// Load reads configuration from the environment. A .env file in the
// working directory is honored when present but not required.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Simulation: SimulationConfig{
			Days:           getEnvInt("SIM_DAYS", 90),
			EnsembleSize:   getEnvInt("SIM_ENSEMBLE_SIZE", 200),
			Workers:        getEnvInt("SIM_WORKERS", 4),
			Seed:           getEnvInt64("SIM_SEED", 1),
			RateVolatility: getEnvFloat("SIM_RATE_VOLATILITY", 0.02),
		},
		Wallet: WalletConfig{
			BaseCurrency:   getEnv("WALLET_BASE_CURRENCY", "USD"),
			InitialBalance: getEnvDecimal("WALLET_INITIAL_BALANCE", "2500"),
			CreditScore:    getEnvInt("WALLET_CREDIT_SCORE", 680),
			DailyNet:       getEnvDecimal("WALLET_DAILY_NET", "-35"),
		},
		Metrics: MetricsConfig{
			Addr: getEnv("METRICS_ADDR", ""),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	pairs, err := parsePairs(getEnv("RATE_PAIRS", "USD/EUR=0.92,EUR/PKR=302.7,GBP/USD=1.27"))
	if err != nil {
		return nil, err
	}
	cfg.Rates.Pairs = pairs

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures the configuration is usable
// Returns an error if validation fails
func (c *Config) Validate() error {
	if c.Simulation.Days <= 0 {
		return fmt.Errorf("SIM_DAYS must be positive, got %d", c.Simulation.Days)
	}
	if c.Simulation.EnsembleSize <= 0 {
		return fmt.Errorf("SIM_ENSEMBLE_SIZE must be positive, got %d", c.Simulation.EnsembleSize)
	}
	if c.Simulation.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be positive, got %d", c.Simulation.Workers)
	}
	if c.Simulation.RateVolatility < 0 {
		return fmt.Errorf("SIM_RATE_VOLATILITY cannot be negative, got %v", c.Simulation.RateVolatility)
	}
	if c.Wallet.BaseCurrency == "" {
		return fmt.Errorf("WALLET_BASE_CURRENCY cannot be empty")
	}
	return nil
}

// parsePairs parses "FROM/TO=rate" entries separated by commas.
func parsePairs(raw string) (map[string]decimal.Decimal, error) {
	pairs := make(map[string]decimal.Decimal)
	if strings.TrimSpace(raw) == "" {
		return pairs, nil
	}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		key, value, found := strings.Cut(entry, "=")
		if !found {
			return nil, fmt.Errorf("rate pair %q: want FROM/TO=rate", entry)
		}
		if from, to, ok := strings.Cut(key, "/"); !ok || from == "" || to == "" {
			return nil, fmt.Errorf("rate pair %q: malformed pair key", entry)
		}
		rate, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("rate pair %q: %w", entry, err)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("rate pair %q: rate must be positive", entry)
		}
		pairs[key] = rate
	}
	return pairs, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDecimal(key, fallback string) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if parsed, err := decimal.NewFromString(value); err == nil {
			return parsed
		}
	}
	return decimal.RequireFromString(fallback)
}
