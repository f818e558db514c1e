package config

import (
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPrivateKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("PRIVATE_KEY", testPrivateKey)
		t.Setenv("PAYMENT_PROCESSOR_ADDRESS", "0x1111111111111111111111111111111111111111")
		t.Setenv("SEPOLIA_RPC_URL", "")
		t.Setenv("ALCHEMY_API_KEY", "")
		t.Setenv("PRICING_MODE", "")
		t.Setenv("SLIPPAGE_BPS", "")

		cfg, err := LoadConfig()
		require.NoError(t, err)

		assert.Equal(t, DefaultSepoliaRPCURL, cfg.Source.RPCURL)
		assert.Equal(t, DefaultChilizRPCURL, cfg.Destination.RPCURL)
		assert.Equal(t, testPrivateKey, cfg.FloatPrivateKey)
		assert.Equal(t, SepoliaUniswapV2Router, cfg.Contracts.UniswapV2Router)
		assert.Equal(t, PricingModeAMM, cfg.Pricing.Mode)
		assert.Equal(t, int64(200), cfg.Pricing.SlippageBps)
		assert.Equal(t, int64(997), cfg.Pricing.FeeNumerator)
		assert.Equal(t, 30*time.Second, cfg.Saga.SettlementDelay)
		assert.Equal(t, 45*time.Second, cfg.Saga.CallTimeout)
		assert.Equal(t, 0, cfg.Saga.BridgeGasValue.Cmp(big.NewInt(1_000_000_000_000_000)))
		assert.Equal(t, 2, cfg.Webhook.MaxAttempts)
	})

	t.Run("fixed pricing uses a wider default slippage", func(t *testing.T) {
		t.Setenv("PRIVATE_KEY", testPrivateKey)
		t.Setenv("PAYMENT_PROCESSOR_ADDRESS", "0x1111111111111111111111111111111111111111")
		t.Setenv("PRICING_MODE", "fixed")
		t.Setenv("SLIPPAGE_BPS", "")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, int64(300), cfg.Pricing.SlippageBps)
	})

	t.Run("alchemy key", func(t *testing.T) {
		t.Setenv("PRIVATE_KEY", testPrivateKey)
		t.Setenv("PAYMENT_PROCESSOR_ADDRESS", "0x1111111111111111111111111111111111111111")
		t.Setenv("SEPOLIA_RPC_URL", "")
		t.Setenv("ALCHEMY_API_KEY", "abc")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "https://eth-sepolia.g.alchemy.com/v2/abc", cfg.Source.RPCURL)
	})

	t.Run("missing private key", func(t *testing.T) {
		t.Setenv("PRIVATE_KEY", "")
		t.Setenv("PAYMENT_PROCESSOR_ADDRESS", "0x1111111111111111111111111111111111111111")

		_, err := LoadConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PRIVATE_KEY")
	})

	t.Run("missing payment processor", func(t *testing.T) {
		t.Setenv("PRIVATE_KEY", testPrivateKey)
		t.Setenv("PAYMENT_PROCESSOR_ADDRESS", "")

		_, err := LoadConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PAYMENT_PROCESSOR_ADDRESS")
	})
}

func TestEnvHelpers(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		check   func() error
		wantErr string
	}{
		{
			name: "invalid address",
			env:  map[string]string{"CHILIZ_DEX": "not-an-address"},
			check: func() error {
				_, err := GetEnvAddress("CHILIZ_DEX", ChilizFanTokenDEX)
				return err
			},
			wantErr: "invalid CHILIZ_DEX value",
		},
		{
			name: "invalid pricing mode",
			env:  map[string]string{"PRICING_MODE": "oracle"},
			check: func() error {
				_, err := GetEnvPricingMode()
				return err
			},
			wantErr: "invalid PRICING_MODE value",
		},
		{
			name: "slippage out of range",
			env:  map[string]string{"SLIPPAGE_BPS": "10000"},
			check: func() error {
				_, err := GetEnvSlippageBps(DefaultSlippageBps)
				return err
			},
			wantErr: "SLIPPAGE_BPS must be between 0 and 9999",
		},
		{
			name: "fee numerator above denominator",
			env:  map[string]string{"POOL_FEE_NUMERATOR": "1001"},
			check: func() error {
				_, _, err := GetEnvPoolFee()
				return err
			},
			wantErr: "POOL_FEE_NUMERATOR must be lower",
		},
		{
			name: "negative bridge gas value",
			env:  map[string]string{"BRIDGE_GAS_VALUE": "-1"},
			check: func() error {
				_, err := GetEnvBridgeGasValue()
				return err
			},
			wantErr: "BRIDGE_GAS_VALUE must be greater than or equal to 0",
		},
		{
			name: "invalid confirmation",
			env:  map[string]string{"BRIDGE_CONFIRMATION": "wait"},
			check: func() error {
				_, err := GetEnvBridgeConfirmation()
				return err
			},
			wantErr: "invalid BRIDGE_CONFIRMATION value",
		},
		{
			name: "invalid log format",
			env:  map[string]string{"LOG_FORMAT": "xml"},
			check: func() error {
				_, err := GetEnvLogFormat()
				return err
			},
			wantErr: "invalid LOG_FORMAT value",
		},
		{
			name: "zero call timeout",
			env:  map[string]string{"CALL_TIMEOUT": "0"},
			check: func() error {
				_, err := GetEnvCallTimeout()
				return err
			},
			wantErr: "CALL_TIMEOUT must be greater than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			err := tt.check()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("BRIDGE_SETTLEMENT_DELAY", "45")
	delay, err := GetEnvBridgeSettlementDelay()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, delay)

	t.Setenv("BRIDGE_SETTLEMENT_DELAY", "1500ms")
	delay, err = GetEnvBridgeSettlementDelay()
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, delay)

	t.Setenv("BRIDGE_SETTLEMENT_DELAY", "0")
	delay, err = GetEnvBridgeSettlementDelay()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), delay)
}

func TestGetEnvMirrorDBPath(t *testing.T) {
	t.Setenv("MIRROR_DB_PATH", "")
	assert.Equal(t, "", GetEnvMirrorDBPath())

	t.Setenv("MIRROR_DB_PATH", "/tmp/mirror.db")
	assert.Equal(t, "/tmp/mirror.db", GetEnvMirrorDBPath())
}

func TestGetEnvMetricsAPIKey(t *testing.T) {
	t.Setenv("METRICS_API_KEY", "  secret \n")
	assert.Equal(t, "secret", GetEnvMetricsAPIKey())

	t.Setenv("METRICS_API_KEY", "")
	assert.Empty(t, GetEnvMetricsAPIKey())
}

func TestGetEnvBridgeConfirmation(t *testing.T) {
	for _, mode := range []string{ConfirmationDelay, ConfirmationPoll, ConfirmationEvent} {
		t.Run(mode, func(t *testing.T) {
			t.Setenv("BRIDGE_CONFIRMATION", strings.ToUpper(mode))
			got, err := GetEnvBridgeConfirmation()
			require.NoError(t, err)
			assert.Equal(t, mode, got)
		})
	}
}
