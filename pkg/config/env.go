package config

import (
	"fmt"
	"math/big"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/drift-pay/drift-gateway/pkg/logger"
	"github.com/ethereum/go-ethereum/common"
)

const (
	PricingModeAMM   = "amm"
	PricingModeFixed = "fixed"

	ConfirmationDelay = "delay"
	ConfirmationPoll  = "poll"
	ConfirmationEvent = "event"

	LogFormatText = "text"
	LogFormatJSON = "json"

	// DefaultPricingMode prices quotes from live pool reserves
	DefaultPricingMode = PricingModeAMM

	// DefaultSlippageBps is the buffer added on top of the fee-adjusted amount (2%)
	DefaultSlippageBps = 200

	// DefaultFixedRateSlippageBps is the buffer used by the fixed-rate pricer (3%)
	DefaultFixedRateSlippageBps = 300

	// DefaultSwapToleranceBps reduces the quoted output when setting the swap minimum (2%)
	DefaultSwapToleranceBps = 200

	// DefaultPoolFeeNumerator and DefaultPoolFeeDenominator describe a 0.3% Uniswap V2 fee
	DefaultPoolFeeNumerator   = 997
	DefaultPoolFeeDenominator = 1000

	// DefaultBridgeGasValue is the native value attached on the second bridge attempt
	DefaultBridgeGasValue = "1000000000000000" // 0.001 ETH

	// DefaultBridgeSettlementDelay is the time given to the bridge before the destination stage, in seconds
	DefaultBridgeSettlementDelay = 30

	// DefaultBridgeConfirmation selects the fixed delay settlement strategy
	DefaultBridgeConfirmation = ConfirmationDelay

	// DefaultBridgeConfirmationTimeout bounds polling for bridge delivery, in seconds
	DefaultBridgeConfirmationTimeout = 300

	// DefaultCallTimeout bounds every chain read and write, in seconds
	DefaultCallTimeout = 45

	// DefaultWebhookTimeout bounds a single webhook delivery, in seconds
	DefaultWebhookTimeout = 10

	// DefaultWebhookRetryDelay is the fixed delay before retrying a critical event, in seconds
	DefaultWebhookRetryDelay = 5

	// DefaultWebhookMaxAttempts is the number of delivery attempts for critical events
	DefaultWebhookMaxAttempts = 2

	// DefaultMirrorDBPath is the SQLite file the transaction mirror writes to
	DefaultMirrorDBPath = "drift-gateway.db"

	// DefaultMetricsPort defines the default port for the metrics server
	DefaultMetricsPort = "8080"

	// DefaultGasUpdateInterval defines how often gas prices are refreshed, in seconds
	DefaultGasUpdateInterval = 30

	// DefaultPriceCacheTTL defines how long fan-token price listings are cached, in seconds
	DefaultPriceCacheTTL = 60

	// DefaultCircuitBreakerEnabled defines whether the circuit breaker is enabled
	DefaultCircuitBreakerEnabled = true

	// DefaultCircuitBreakerThreshold defines the number of failures before the circuit breaker trips
	DefaultCircuitBreakerThreshold = 5

	// DefaultCircuitBreakerWindow defines the time window for the circuit breaker
	DefaultCircuitBreakerWindow = 60

	// DefaultCircuitBreakerReset defines the reset timeout for the circuit breaker
	DefaultCircuitBreakerReset = 300

	// DefaultLogFormat writes human readable logs
	DefaultLogFormat = LogFormatText
)

// GetEnvSepoliaRPCURL returns the Sepolia RPC URL, preferring SEPOLIA_RPC_URL over ALCHEMY_API_KEY
func GetEnvSepoliaRPCURL() (string, error) {
	rpc := os.Getenv("SEPOLIA_RPC_URL")
	if rpc == "" {
		if apiKey := os.Getenv("ALCHEMY_API_KEY"); apiKey != "" {
			return alchemySepoliaURL(apiKey), nil
		}
		return DefaultSepoliaRPCURL, nil
	}
	return validateURL("SEPOLIA_RPC_URL", rpc)
}

// GetEnvChilizRPCURL returns the Chiliz RPC URL from environment variables
func GetEnvChilizRPCURL() (string, error) {
	rpc := os.Getenv("CHILIZ_RPC_URL")
	if rpc == "" {
		return DefaultChilizRPCURL, nil
	}
	return validateURL("CHILIZ_RPC_URL", rpc)
}

// GetEnvAddress returns a contract address from environment variables or the given default
func GetEnvAddress(name string, defaultValue string) (string, error) {
	address := os.Getenv(name)
	if address == "" {
		return defaultValue, nil
	}

	// Validate Ethereum address format
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("invalid %s value: %s, must be a valid Ethereum address", name, address)
	}
	return address, nil
}

// GetEnvPricingMode returns the pricing mode from environment variables
func GetEnvPricingMode() (string, error) {
	mode := strings.ToLower(os.Getenv("PRICING_MODE"))
	if mode == "" {
		return DefaultPricingMode, nil
	}
	if mode != PricingModeAMM && mode != PricingModeFixed {
		return "", fmt.Errorf("invalid PRICING_MODE value: %s, must be 'amm' or 'fixed'", mode)
	}
	return mode, nil
}

// GetEnvSlippageBps returns the quote slippage buffer in basis points
func GetEnvSlippageBps(defaultValue int64) (int64, error) {
	return getEnvBps("SLIPPAGE_BPS", defaultValue)
}

// GetEnvSwapToleranceBps returns the swap minimum-output tolerance in basis points
func GetEnvSwapToleranceBps() (int64, error) {
	return getEnvBps("SWAP_TOLERANCE_BPS", DefaultSwapToleranceBps)
}

// GetEnvPoolFee returns the pool fee numerator and denominator
func GetEnvPoolFee() (int64, int64, error) {
	numerator, err := getEnvPositiveInt("POOL_FEE_NUMERATOR", DefaultPoolFeeNumerator)
	if err != nil {
		return 0, 0, err
	}
	denominator, err := getEnvPositiveInt("POOL_FEE_DENOMINATOR", DefaultPoolFeeDenominator)
	if err != nil {
		return 0, 0, err
	}
	if numerator >= denominator {
		return 0, 0, fmt.Errorf("POOL_FEE_NUMERATOR must be lower than POOL_FEE_DENOMINATOR")
	}
	return int64(numerator), int64(denominator), nil
}

// GetEnvBridgeGasValue returns the native value attached to the second bridge attempt
func GetEnvBridgeGasValue() (*big.Int, error) {
	value := os.Getenv("BRIDGE_GAS_VALUE")
	if value == "" {
		value = DefaultBridgeGasValue
	}

	valueBig := new(big.Int)
	if _, ok := valueBig.SetString(value, 10); !ok {
		return nil, fmt.Errorf("invalid BRIDGE_GAS_VALUE value: %s, must be a valid integer string", value)
	}
	if valueBig.Sign() < 0 {
		return nil, fmt.Errorf("BRIDGE_GAS_VALUE must be greater than or equal to 0")
	}
	return valueBig, nil
}

// GetEnvBridgeSettlementDelay returns the delay between the bridge and destination stages
func GetEnvBridgeSettlementDelay() (time.Duration, error) {
	return getEnvDuration("BRIDGE_SETTLEMENT_DELAY", DefaultBridgeSettlementDelay*time.Second, true)
}

// GetEnvBridgeConfirmation returns the bridge settlement strategy
func GetEnvBridgeConfirmation() (string, error) {
	mode := strings.ToLower(os.Getenv("BRIDGE_CONFIRMATION"))
	if mode == "" {
		return DefaultBridgeConfirmation, nil
	}
	if mode != ConfirmationDelay && mode != ConfirmationPoll && mode != ConfirmationEvent {
		return "", fmt.Errorf("invalid BRIDGE_CONFIRMATION value: %s, must be 'delay', 'poll' or 'event'", mode)
	}
	return mode, nil
}

// GetEnvBridgeConfirmationTimeout returns the maximum time spent polling for bridge delivery
func GetEnvBridgeConfirmationTimeout() (time.Duration, error) {
	return getEnvDuration("BRIDGE_CONFIRMATION_TIMEOUT", DefaultBridgeConfirmationTimeout*time.Second, false)
}

// GetEnvCallTimeout returns the per-call chain timeout
func GetEnvCallTimeout() (time.Duration, error) {
	return getEnvDuration("CALL_TIMEOUT", DefaultCallTimeout*time.Second, false)
}

// GetEnvWebhookTimeout returns the webhook delivery timeout
func GetEnvWebhookTimeout() (time.Duration, error) {
	return getEnvDuration("WEBHOOK_TIMEOUT", DefaultWebhookTimeout*time.Second, false)
}

// GetEnvWebhookRetryDelay returns the delay before a critical webhook is retried
func GetEnvWebhookRetryDelay() (time.Duration, error) {
	return getEnvDuration("WEBHOOK_RETRY_DELAY", DefaultWebhookRetryDelay*time.Second, true)
}

// GetEnvWebhookMaxAttempts returns the number of attempts for critical webhooks
func GetEnvWebhookMaxAttempts() (int, error) {
	return getEnvPositiveInt("WEBHOOK_MAX_ATTEMPTS", DefaultWebhookMaxAttempts)
}

// GetEnvMirrorDBPath returns the SQLite mirror path, an empty value disables the mirror
func GetEnvMirrorDBPath() string {
	path, set := os.LookupEnv("MIRROR_DB_PATH")
	if !set {
		return DefaultMirrorDBPath
	}
	return path
}

// GetEnvMetricsPort returns the metrics server port from environment variables
func GetEnvMetricsPort() (string, error) {
	metricsPort := os.Getenv("METRICS_PORT")
	if metricsPort == "" {
		return DefaultMetricsPort, nil
	}

	// Validate port format
	if _, err := strconv.Atoi(metricsPort); err != nil {
		return "", fmt.Errorf("invalid METRICS_PORT value: %s, must be a valid integer", metricsPort)
	}
	return metricsPort, nil
}

// GetEnvMetricsAPIKey returns the bearer token guarding /metrics, empty leaves it open
func GetEnvMetricsAPIKey() string {
	return strings.TrimSpace(os.Getenv("METRICS_API_KEY"))
}

// GetEnvGasUpdateInterval returns how often gas prices are refreshed
func GetEnvGasUpdateInterval() (time.Duration, error) {
	return getEnvDuration("GAS_UPDATE_INTERVAL", DefaultGasUpdateInterval*time.Second, false)
}

// GetEnvPriceCacheTTL returns how long fan-token price listings are cached
func GetEnvPriceCacheTTL() (time.Duration, error) {
	return getEnvDuration("PRICE_CACHE_TTL", DefaultPriceCacheTTL*time.Second, true)
}

// GetEnvGasMultiplier returns the gas price multiplier for a chain, defaulting to 1.1
func GetEnvGasMultiplier(chainID int) (float64, error) {
	name := fmt.Sprintf("CHAIN_%d_GAS_MULTIPLIER", chainID)
	value := os.Getenv(name)
	if value == "" {
		return 1.1, nil
	}
	multiplier, err := strconv.ParseFloat(value, 64)
	if err != nil || multiplier <= 0 {
		return 0, fmt.Errorf("invalid %s value: %s, must be a positive number", name, value)
	}
	return multiplier, nil
}

// GetEnvCircuitBreakerEnabled returns whether the circuit breaker is enabled from environment variables
func GetEnvCircuitBreakerEnabled() (bool, error) {
	enabled := os.Getenv("CIRCUIT_BREAKER_ENABLED")
	if enabled == "" {
		return DefaultCircuitBreakerEnabled, nil
	}

	if enabled == "true" {
		return true, nil
	} else if enabled == "false" {
		return false, nil
	}

	return false, fmt.Errorf("invalid CIRCUIT_BREAKER_ENABLED value: %s, must be 'true' or 'false'", enabled)
}

// GetEnvCircuitBreakerThreshold returns the circuit breaker threshold from environment variables
func GetEnvCircuitBreakerThreshold() (int, error) {
	return getEnvPositiveInt("CIRCUIT_BREAKER_THRESHOLD", DefaultCircuitBreakerThreshold)
}

// GetEnvCircuitBreakerWindow returns the circuit breaker window duration from environment variables
func GetEnvCircuitBreakerWindow() (time.Duration, error) {
	return getEnvDuration("CIRCUIT_BREAKER_WINDOW", DefaultCircuitBreakerWindow*time.Second, false)
}

// GetEnvCircuitBreakerReset returns the circuit breaker reset timeout from environment variables
func GetEnvCircuitBreakerReset() (time.Duration, error) {
	return getEnvDuration("CIRCUIT_BREAKER_RESET", DefaultCircuitBreakerReset*time.Second, false)
}

// GetEnvLogLevel returns the log level from environment variables
func GetEnvLogLevel() (logger.Level, error) {
	value := os.Getenv("LOG_LEVEL")
	if value == "" {
		return logger.InfoLevel, nil
	}
	level, ok := logger.ParseLevel(value)
	if !ok {
		return logger.InfoLevel, fmt.Errorf("invalid LOG_LEVEL value: %s, must be 'debug', 'info', 'notice' or 'error'", value)
	}
	return level, nil
}

// GetEnvLogColoring returns whether log coloring is enabled
func GetEnvLogColoring() (bool, error) {
	value := os.Getenv("LOG_COLORING")
	if value == "" {
		return true, nil
	}
	coloring, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid LOG_COLORING value: %s, must be 'true' or 'false'", value)
	}
	return coloring, nil
}

// GetEnvLogFormat returns the log output format
func GetEnvLogFormat() (string, error) {
	format := strings.ToLower(os.Getenv("LOG_FORMAT"))
	if format == "" {
		return DefaultLogFormat, nil
	}
	if format != LogFormatText && format != LogFormatJSON {
		return "", fmt.Errorf("invalid LOG_FORMAT value: %s, must be 'text' or 'json'", format)
	}
	return format, nil
}

func validateURL(name string, value string) (string, error) {
	if _, err := url.ParseRequestURI(value); err != nil {
		return "", fmt.Errorf("invalid %s value: %s, must be a valid URL", name, value)
	}
	return value, nil
}

func getEnvBps(name string, defaultValue int64) (int64, error) {
	value := os.Getenv(name)
	if value == "" {
		return defaultValue, nil
	}
	bps, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %s, must be an integer", name, value)
	}
	if bps < 0 || bps >= 10000 {
		return 0, fmt.Errorf("%s must be between 0 and 9999", name)
	}
	return bps, nil
}

func getEnvPositiveInt(name string, defaultValue int) (int, error) {
	value := os.Getenv(name)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %s, must be an integer", name, value)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", name)
	}
	return parsed, nil
}

// getEnvDuration accepts either a duration string ("30s") or a plain number of seconds
func getEnvDuration(name string, defaultValue time.Duration, allowZero bool) (time.Duration, error) {
	value := os.Getenv(name)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		seconds, convErr := strconv.Atoi(value)
		if convErr != nil {
			return 0, fmt.Errorf("invalid %s value: %s, must be a valid duration string", name, value)
		}
		parsed = time.Duration(seconds) * time.Second
	}
	if parsed < 0 || (!allowZero && parsed == 0) {
		return 0, fmt.Errorf("%s must be greater than 0", name)
	}
	return parsed, nil
}
