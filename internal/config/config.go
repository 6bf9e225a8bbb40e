// Package config loads and validates the process-wide typed configuration
// record. Every recognized option from the external interface contract is
// a field here; there is no other source of runtime configuration.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Strategy selects which admission policy the Bundle Composer uses.
type Strategy string

const (
	StrategyMaximizeProfit Strategy = "MAXIMIZE_PROFIT"
	StrategyBalanced       Strategy = "BALANCED"
	StrategyMinimizeRisk   Strategy = "MINIMIZE_RISK"
)

// Config holds the complete set of recognized runtime options.
type Config struct {
	// Server
	Port    int
	DevMode bool

	// Chain client
	ChainWSURL                string
	ChainRPCURL               string
	HeartbeatInterval         time.Duration
	ReconnectBackoffInitial   time.Duration
	ReconnectBackoffMax       time.Duration
	ChainRetryAttemptCap      int

	// Market graph
	PoolTTL time.Duration

	// Arbitrage detector
	MaxHops          int
	MinProfitLamports int64
	MaxSlippageBps   int
	WatchlistTokens  [][32]byte

	// Price oracle (§4.6: sourced from the Market Graph rather than an
	// external collaborator)
	QuoteMintToken [32]byte
	QuoteMintUSD   float64

	// Liquidation scanner
	RescanInterval   time.Duration
	MaxLiqPerRound   int

	// Sandwich detector
	MinTargetValueUSD float64
	EthicalMode       bool

	// Bundle composer
	MaxBundleTxs      int
	MaxBundleCompute  int64
	SafetyMarginBps   int
	MaxComposeRetries int
	Strategy          Strategy

	// Submission client
	BlockEngineURL      string
	BlockEngineAuthToken string
	TipAccount       string
	TipAccountBytes  [32]byte // decoded from TipAccount by Validate
	MinTipLamports   int64
	MaxTipLamports   int64
	PollInterval     time.Duration
	BundleTTLSlots   int64

	// Process
	ShutdownGrace time.Duration

	// Ledger
	LedgerDatabasePath string

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables, applying the
// teacher's layering: .env file first (if present), then process env,
// each recognized option falling back to a documented default.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:    getEnvAsInt("PORT", 8080),
		DevMode: getEnvAsBool("DEV_MODE", false),

		ChainWSURL:              getEnv("CHAIN_WS_URL", "wss://chain.local/ws"),
		ChainRPCURL:             getEnv("CHAIN_RPC_URL", "https://chain.local/rpc"),
		HeartbeatInterval:       getEnvAsDuration("HEARTBEAT_INTERVAL_MS", 15*time.Second),
		ReconnectBackoffInitial: getEnvAsDuration("RECONNECT_BACKOFF_INITIAL_MS", 250*time.Millisecond),
		ReconnectBackoffMax:     getEnvAsDuration("RECONNECT_BACKOFF_MAX_MS", 30*time.Second),
		ChainRetryAttemptCap:    getEnvAsInt("CHAIN_RETRY_ATTEMPT_CAP", 5),

		PoolTTL: getEnvAsDuration("POOL_TTL_MS", 2*time.Minute),

		MaxHops:           getEnvAsInt("MAX_HOPS", 3),
		MinProfitLamports: getEnvAsInt64("MIN_PROFIT_LAMPORTS", 10_000),
		MaxSlippageBps:    getEnvAsInt("MAX_SLIPPAGE_BPS", 50),
		WatchlistTokens:   getEnvAsHexList("WATCHLIST_TOKENS"),

		QuoteMintToken: getEnvAsHex32("QUOTE_MINT_TOKEN", [32]byte{}),
		QuoteMintUSD:   getEnvAsFloat("QUOTE_MINT_USD_PRICE", 1.0),

		RescanInterval: getEnvAsDuration("RESCAN_INTERVAL_MS", 2*time.Second),
		MaxLiqPerRound: getEnvAsInt("MAX_LIQ_PER_ROUND", 20),

		MinTargetValueUSD: getEnvAsFloat("MIN_TARGET_VALUE_USD", 5_000),
		EthicalMode:       getEnvAsBool("ETHICAL_MODE", true),

		MaxBundleTxs:      getEnvAsInt("MAX_BUNDLE_TXS", 5),
		MaxBundleCompute:  getEnvAsInt64("MAX_BUNDLE_COMPUTE", 7_000_000),
		SafetyMarginBps:   getEnvAsInt("SAFETY_MARGIN_BPS", 1000),
		MaxComposeRetries: getEnvAsInt("MAX_COMPOSE_RETRIES", 3),
		Strategy:          Strategy(getEnv("STRATEGY", string(StrategyBalanced))),

		BlockEngineURL:       getEnv("BLOCK_ENGINE_URL", "https://block-engine.local"),
		BlockEngineAuthToken: getEnv("BLOCK_ENGINE_AUTH_TOKEN", ""),
		TipAccount:     getEnv("TIP_ACCOUNT", ""),
		MinTipLamports: getEnvAsInt64("MIN_TIP", 1_000),
		MaxTipLamports: getEnvAsInt64("MAX_TIP", 5_000_000),
		PollInterval:   getEnvAsDuration("POLL_INTERVAL_MS", 400*time.Millisecond),
		BundleTTLSlots: getEnvAsInt64("BUNDLE_TTL_SLOTS", 50),

		ShutdownGrace: getEnvAsDuration("SHUTDOWN_GRACE_MS", 5*time.Second),

		LedgerDatabasePath: getEnv("LEDGER_DATABASE_PATH", "./data/ledger.db"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate cross-checks option relationships the external contract leaves
// implicit, failing fast at startup rather than producing a config that
// would silently misbehave (e.g. a tip clamp with MaxTip < MinTip).
func (c *Config) Validate() error {
	if c.MaxBundleTxs < 1 {
		return fmt.Errorf("MAX_BUNDLE_TXS must be >= 1, got %d", c.MaxBundleTxs)
	}
	if c.MaxBundleCompute <= 0 {
		return fmt.Errorf("MAX_BUNDLE_COMPUTE must be > 0, got %d", c.MaxBundleCompute)
	}
	if c.MinTipLamports > c.MaxTipLamports {
		return fmt.Errorf("MIN_TIP (%d) must be <= MAX_TIP (%d)", c.MinTipLamports, c.MaxTipLamports)
	}
	if c.ReconnectBackoffInitial > c.ReconnectBackoffMax {
		return fmt.Errorf("RECONNECT_BACKOFF_INITIAL_MS must be <= RECONNECT_BACKOFF_MAX_MS")
	}
	if c.MaxHops < 1 {
		return fmt.Errorf("MAX_HOPS must be >= 1, got %d", c.MaxHops)
	}
	if c.MaxComposeRetries < 0 {
		return fmt.Errorf("MAX_COMPOSE_RETRIES must be >= 0, got %d", c.MaxComposeRetries)
	}
	switch c.Strategy {
	case StrategyMaximizeProfit, StrategyBalanced, StrategyMinimizeRisk:
	default:
		return fmt.Errorf("STRATEGY must be one of MAXIMIZE_PROFIT, BALANCED, MINIMIZE_RISK, got %q", c.Strategy)
	}
	if strings.TrimSpace(c.TipAccount) == "" && !c.DevMode {
		return fmt.Errorf("TIP_ACCOUNT is required outside dev mode")
	}
	if strings.TrimSpace(c.TipAccount) != "" {
		decoded, err := hex.DecodeString(strings.TrimPrefix(c.TipAccount, "0x"))
		if err != nil || len(decoded) != 32 {
			return fmt.Errorf("TIP_ACCOUNT must be a 64-character hex-encoded 32-byte address, got %q", c.TipAccount)
		}
		copy(c.TipAccountBytes[:], decoded)
	}
	return nil
}

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

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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

// getEnvAsDuration reads a millisecond integer env var into a Duration.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if ms, err := strconv.Atoi(value); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}

// getEnvAsHex32 decodes a single 64-character hex-encoded 32-byte value,
// falling back to defaultValue if the variable is unset or malformed.
func getEnvAsHex32(key string, defaultValue [32]byte) [32]byte {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	decoded, err := hex.DecodeString(strings.TrimPrefix(value, "0x"))
	if err != nil || len(decoded) != 32 {
		return defaultValue
	}
	var out [32]byte
	copy(out[:], decoded)
	return out
}

// getEnvAsHexList parses a comma-separated list of 64-character
// hex-encoded 32-byte token mints, e.g. the arbitrage detector's
// watchlist. Malformed entries are skipped rather than failing startup.
func getEnvAsHexList(key string) [][32]byte {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out [][32]byte
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(strings.TrimPrefix(part, "0x"))
		if part == "" {
			continue
		}
		decoded, err := hex.DecodeString(part)
		if err != nil || len(decoded) != 32 {
			continue
		}
		var tok [32]byte
		copy(tok[:], decoded)
		out = append(out, tok)
	}
	return out
}
