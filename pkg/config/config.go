package config

import (
	"fmt"
	"log"
	"math/big"
	"os"
	"time"

	"github.com/drift-pay/drift-gateway/pkg/chains"
	"github.com/drift-pay/drift-gateway/pkg/logger"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/joho/godotenv"
)

// Config holds the configuration for the payment gateway
type Config struct {
	Source            ChainConfig
	Destination       ChainConfig
	PrivateKey        string
	FloatPrivateKey   string
	Contracts         ContractsConfig
	Pricing           PricingConfig
	Saga              SagaConfig
	Webhook           WebhookConfig
	CircuitBreaker    CircuitBreakerConfig
	MirrorDBPath      string
	MetricsPort       string
	MetricsAPIKey     string
	GasUpdateInterval time.Duration
	PriceCacheTTL     time.Duration
	LoggerConfig      LoggerConfig
}

// ChainConfig holds the configuration for a specific blockchain
type ChainConfig struct {
	ChainID       int
	RPCURL        string
	GasMultiplier float64
}

// ContractsConfig holds the addresses of the pre-deployed contracts the gateway drives
type ContractsConfig struct {
	UniswapV2Router   string
	UniswapV2Factory  string // resolved from the router when empty
	HyperlaneWarpMCHZ string
	HyperlaneWarpCHZ  string
	ChilizDEX         string
	PaymentProcessor  string
}

// PricingConfig holds the quote engine parameters
type PricingConfig struct {
	Mode           string
	SlippageBps    int64
	FeeNumerator   int64
	FeeDenominator int64
}

// SagaConfig holds the orchestrator parameters
type SagaConfig struct {
	SwapToleranceBps    int64
	BridgeGasValue      *big.Int
	SettlementDelay     time.Duration
	Confirmation        string
	ConfirmationTimeout time.Duration
	CallTimeout         time.Duration
}

// WebhookConfig holds the webhook delivery parameters
type WebhookConfig struct {
	Timeout     time.Duration
	RetryDelay  time.Duration
	MaxAttempts int
}

// CircuitBreakerConfig holds circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled        bool
	Threshold      int
	WindowDuration time.Duration
	ResetTimeout   time.Duration
}

// LoggerConfig holds the configuration for logging
type LoggerConfig struct {
	Level    logger.Level
	Coloring bool
	Format   string
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	sepoliaRPC, err := GetEnvSepoliaRPCURL()
	if err != nil {
		return nil, err
	}

	chilizRPC, err := GetEnvChilizRPCURL()
	if err != nil {
		return nil, err
	}

	sepoliaMultiplier, err := GetEnvGasMultiplier(chains.SepoliaChainID)
	if err != nil {
		return nil, err
	}

	chilizMultiplier, err := GetEnvGasMultiplier(chains.ChilizSpicyChainID)
	if err != nil {
		return nil, err
	}

	contracts, err := loadContracts()
	if err != nil {
		return nil, err
	}

	pricingMode, err := GetEnvPricingMode()
	if err != nil {
		return nil, err
	}

	defaultSlippage := int64(DefaultSlippageBps)
	if pricingMode == PricingModeFixed {
		defaultSlippage = DefaultFixedRateSlippageBps
	}
	slippage, err := GetEnvSlippageBps(defaultSlippage)
	if err != nil {
		return nil, err
	}

	feeNumerator, feeDenominator, err := GetEnvPoolFee()
	if err != nil {
		return nil, err
	}

	swapTolerance, err := GetEnvSwapToleranceBps()
	if err != nil {
		return nil, err
	}

	bridgeGasValue, err := GetEnvBridgeGasValue()
	if err != nil {
		return nil, err
	}

	settlementDelay, err := GetEnvBridgeSettlementDelay()
	if err != nil {
		return nil, err
	}

	confirmation, err := GetEnvBridgeConfirmation()
	if err != nil {
		return nil, err
	}

	confirmationTimeout, err := GetEnvBridgeConfirmationTimeout()
	if err != nil {
		return nil, err
	}

	callTimeout, err := GetEnvCallTimeout()
	if err != nil {
		return nil, err
	}

	webhookTimeout, err := GetEnvWebhookTimeout()
	if err != nil {
		return nil, err
	}

	webhookRetryDelay, err := GetEnvWebhookRetryDelay()
	if err != nil {
		return nil, err
	}

	webhookMaxAttempts, err := GetEnvWebhookMaxAttempts()
	if err != nil {
		return nil, err
	}

	metricsPort, err := GetEnvMetricsPort()
	if err != nil {
		return nil, err
	}

	gasUpdateInterval, err := GetEnvGasUpdateInterval()
	if err != nil {
		return nil, err
	}

	priceCacheTTL, err := GetEnvPriceCacheTTL()
	if err != nil {
		return nil, err
	}

	cbEnabled, err := GetEnvCircuitBreakerEnabled()
	if err != nil {
		return nil, err
	}

	cbThreshold, err := GetEnvCircuitBreakerThreshold()
	if err != nil {
		return nil, err
	}

	cbWindow, err := GetEnvCircuitBreakerWindow()
	if err != nil {
		return nil, err
	}

	cbReset, err := GetEnvCircuitBreakerReset()
	if err != nil {
		return nil, err
	}

	logLevel, err := GetEnvLogLevel()
	if err != nil {
		return nil, err
	}

	logColoring, err := GetEnvLogColoring()
	if err != nil {
		return nil, err
	}

	logFormat, err := GetEnvLogFormat()
	if err != nil {
		return nil, err
	}

	privateKey := os.Getenv("PRIVATE_KEY")
	floatPrivateKey := os.Getenv("FLOAT_PRIVATE_KEY")
	if floatPrivateKey == "" {
		floatPrivateKey = privateKey
	}

	cfg := &Config{
		Source: ChainConfig{
			ChainID:       chains.SepoliaChainID,
			RPCURL:        sepoliaRPC,
			GasMultiplier: sepoliaMultiplier,
		},
		Destination: ChainConfig{
			ChainID:       chains.ChilizSpicyChainID,
			RPCURL:        chilizRPC,
			GasMultiplier: chilizMultiplier,
		},
		PrivateKey:      privateKey,
		FloatPrivateKey: floatPrivateKey,
		Contracts:       contracts,
		Pricing: PricingConfig{
			Mode:           pricingMode,
			SlippageBps:    slippage,
			FeeNumerator:   feeNumerator,
			FeeDenominator: feeDenominator,
		},
		Saga: SagaConfig{
			SwapToleranceBps:    swapTolerance,
			BridgeGasValue:      bridgeGasValue,
			SettlementDelay:     settlementDelay,
			Confirmation:        confirmation,
			ConfirmationTimeout: confirmationTimeout,
			CallTimeout:         callTimeout,
		},
		Webhook: WebhookConfig{
			Timeout:     webhookTimeout,
			RetryDelay:  webhookRetryDelay,
			MaxAttempts: webhookMaxAttempts,
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:        cbEnabled,
			Threshold:      cbThreshold,
			WindowDuration: cbWindow,
			ResetTimeout:   cbReset,
		},
		MirrorDBPath:      GetEnvMirrorDBPath(),
		MetricsPort:       metricsPort,
		MetricsAPIKey:     GetEnvMetricsAPIKey(),
		GasUpdateInterval: gasUpdateInterval,
		PriceCacheTTL:     priceCacheTTL,
		LoggerConfig: LoggerConfig{
			Level:    logLevel,
			Coloring: logColoring,
			Format:   logFormat,
		},
	}

	// Validate required environment variables
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadContracts() (ContractsConfig, error) {
	var (
		c   ContractsConfig
		err error
	)
	if c.UniswapV2Router, err = GetEnvAddress("UNISWAP_V2_ROUTER", SepoliaUniswapV2Router); err != nil {
		return c, err
	}
	if c.UniswapV2Factory, err = GetEnvAddress("UNISWAP_V2_FACTORY", ""); err != nil {
		return c, err
	}
	if c.HyperlaneWarpMCHZ, err = GetEnvAddress("HYPERLANE_COLLATERAL", SepoliaHyperlaneWarpMCHZ); err != nil {
		return c, err
	}
	if c.HyperlaneWarpCHZ, err = GetEnvAddress("HYPERLANE_NATIVE", ChilizHyperlaneWarpCHZ); err != nil {
		return c, err
	}
	if c.ChilizDEX, err = GetEnvAddress("CHILIZ_DEX", ChilizFanTokenDEX); err != nil {
		return c, err
	}
	if c.PaymentProcessor, err = GetEnvAddress("PAYMENT_PROCESSOR_ADDRESS", ""); err != nil {
		return c, err
	}
	return c, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.PrivateKey == "" {
		return fmt.Errorf("PRIVATE_KEY environment variable is required")
	}
	if _, err := crypto.HexToECDSA(cfg.PrivateKey); err != nil {
		return fmt.Errorf("invalid PRIVATE_KEY value: must be a hex encoded secp256k1 key")
	}
	if _, err := crypto.HexToECDSA(cfg.FloatPrivateKey); err != nil {
		return fmt.Errorf("invalid FLOAT_PRIVATE_KEY value: must be a hex encoded secp256k1 key")
	}
	if cfg.Contracts.PaymentProcessor == "" {
		return fmt.Errorf("PAYMENT_PROCESSOR_ADDRESS environment variable is required")
	}
	if cfg.Saga.Confirmation != ConfirmationDelay && cfg.Saga.ConfirmationTimeout < cfg.Saga.SettlementDelay {
		return fmt.Errorf("BRIDGE_CONFIRMATION_TIMEOUT must not be lower than BRIDGE_SETTLEMENT_DELAY")
	}
	return nil
}
