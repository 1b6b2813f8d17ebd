// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	Simulation SimulationConfig
	Sizing     SizingConfig
	Risk       RiskConfig
	Scheduler  SchedulerConfig
}

// SimulationConfig holds paper-trading gateway parameters
type SimulationConfig struct {
	InitialCapital     float64 // Starting cash for the simulated account
	SlippagePct        float64 // Fixed fractional offset from quote (0.001 = 10 bps)
	CommissionPerTrade float64 // Flat commission charged per fill
}

// SizingConfig holds position sizing parameters.
// Policy selects the sizing algorithm; the remaining fields parameterize it.
type SizingConfig struct {
	Policy            string  // FIXED_DOLLAR, FIXED_PERCENTAGE, RISK_BASED, VOLATILITY_BASED, KELLY_CRITERION
	FixedDollarAmount float64 // Dollar amount per trade for FIXED_DOLLAR
	DefaultPercentage float64 // Fraction of portfolio value per trade
	RiskPerTrade      float64 // Fraction of portfolio value risked per trade (RISK_BASED)
	MaxPositionSize   float64 // Hard cap on any single position as a fraction of portfolio value
}

// RiskConfig holds risk constraint parameters
type RiskConfig struct {
	MaxPositionWeight    float64 // Max single-position weight (fraction of portfolio value)
	MaxPortfolioExposure float64 // Max total exposure as a fraction of capital + positions
	DefaultStopLossPct   float64
	DefaultTakeProfitPct float64
	UseTrailingStop      bool
	TrailingStopPct      float64
}

// SchedulerConfig holds cron schedules for background jobs
type SchedulerConfig struct {
	StopSweepSpec    string // Stop-loss / take-profit sweep schedule
	RiskSnapshotSpec string // Periodic risk snapshot schedule
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("TRADECORE_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("PORT", 8001),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Simulation: SimulationConfig{
			InitialCapital:     getEnvAsFloat("SIM_INITIAL_CAPITAL", 100000),
			SlippagePct:        getEnvAsFloat("SIM_SLIPPAGE_PCT", 0.001),
			CommissionPerTrade: getEnvAsFloat("SIM_COMMISSION", 0),
		},
		Sizing: SizingConfig{
			Policy:            strings.ToUpper(getEnv("SIZING_POLICY", "FIXED_PERCENTAGE")),
			FixedDollarAmount: getEnvAsFloat("SIZING_FIXED_DOLLAR", 5000),
			DefaultPercentage: getEnvAsFloat("SIZING_DEFAULT_PCT", 0.05),
			RiskPerTrade:      getEnvAsFloat("SIZING_RISK_PER_TRADE", 0.01),
			MaxPositionSize:   getEnvAsFloat("SIZING_MAX_POSITION", 0.20),
		},
		Risk: RiskConfig{
			MaxPositionWeight:    getEnvAsFloat("RISK_MAX_POSITION_WEIGHT", 0.20),
			MaxPortfolioExposure: getEnvAsFloat("RISK_MAX_EXPOSURE", 1.0),
			DefaultStopLossPct:   getEnvAsFloat("RISK_STOP_LOSS_PCT", 0.05),
			DefaultTakeProfitPct: getEnvAsFloat("RISK_TAKE_PROFIT_PCT", 0.15),
			UseTrailingStop:      getEnvAsBool("RISK_USE_TRAILING_STOP", false),
			TrailingStopPct:      getEnvAsFloat("RISK_TRAILING_STOP_PCT", 0.05),
		},
		Scheduler: SchedulerConfig{
			StopSweepSpec:    getEnv("SCHED_STOP_SWEEP", "@every 1m"),
			RiskSnapshotSpec: getEnv("SCHED_RISK_SNAPSHOT", "@hourly"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime behavior
func (c *Config) Validate() error {
	if c.Simulation.InitialCapital < 0 {
		return fmt.Errorf("SIM_INITIAL_CAPITAL must be >= 0, got %v", c.Simulation.InitialCapital)
	}
	if c.Simulation.SlippagePct < 0 || c.Simulation.SlippagePct >= 1 {
		return fmt.Errorf("SIM_SLIPPAGE_PCT must be in [0, 1), got %v", c.Simulation.SlippagePct)
	}
	if c.Sizing.MaxPositionSize <= 0 || c.Sizing.MaxPositionSize > 1 {
		return fmt.Errorf("SIZING_MAX_POSITION must be in (0, 1], got %v", c.Sizing.MaxPositionSize)
	}
	if c.Risk.MaxPositionWeight <= 0 || c.Risk.MaxPositionWeight > 1 {
		return fmt.Errorf("RISK_MAX_POSITION_WEIGHT must be in (0, 1], got %v", c.Risk.MaxPositionWeight)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
