package chains

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBaseUnits(t *testing.T) {
	// Helper function for creating big.Int from string
	setString := func(s string) *big.Int {
		bigInt, ok := new(big.Int).SetString(s, 10)
		if !ok {
			t.Fatalf("Failed to set string %s to big.Int", s)
		}
		return bigInt
	}

	tests := []struct {
		name     string
		amount   string
		decimals int32
		floor    *big.Int
		ceil     *big.Int
	}{
		{
			name:     "USDC_1_token",
			amount:   "1",
			decimals: 6,
			floor:    big.NewInt(1000000),
			ceil:     big.NewInt(1000000),
		},
		{
			name:     "USDC_extra_precision",
			amount:   "1.7510001",
			decimals: 6,
			floor:    big.NewInt(1751000),
			ceil:     big.NewInt(1751001),
		},
		{
			name:     "MCHZ_fractional",
			amount:   "10.5",
			decimals: 18,
			floor:    setString("10500000000000000000"),
			ceil:     setString("10500000000000000000"),
		},
		{
			name:     "fan_token_whole_units",
			amount:   "2.2",
			decimals: 0,
			floor:    big.NewInt(2),
			ceil:     big.NewInt(3),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, err := ParseAmount(tt.amount)
			require.NoError(t, err)
			assert.Equal(t, tt.floor.String(), ToBaseUnits(amount, tt.decimals).String())
			assert.Equal(t, tt.ceil.String(), ToBaseUnitsCeil(amount, tt.decimals).String())
		})
	}
}

func TestFormatBaseUnits(t *testing.T) {
	assert.Equal(t, "1.751000", FormatBaseUnits(big.NewInt(1751000), 6))
	assert.Equal(t, "0.000001", FormatBaseUnits(big.NewInt(1), 6))
	assert.Equal(t, "12", FormatBaseUnits(big.NewInt(12), 0))
	assert.True(t, FromBaseUnits(nil, 6).Equal(decimal.Zero))
}

func TestParseAmount(t *testing.T) {
	_, err := ParseAmount("0")
	assert.Error(t, err)

	_, err = ParseAmount("-1")
	assert.Error(t, err)

	_, err = ParseAmount("abc")
	assert.Error(t, err)

	value, err := ParseAmount(" 3.25 ")
	require.NoError(t, err)
	assert.Equal(t, "3.25", value.String())
}

func TestRegistryLookups(t *testing.T) {
	t.Run("payment tokens are case insensitive", func(t *testing.T) {
		usdc, err := GetPaymentToken("usdc")
		require.NoError(t, err)
		assert.Equal(t, int32(6), usdc.Decimals)
		assert.Equal(t, SepoliaChainID, usdc.ChainID)
	})

	t.Run("bridge proxy is not a payment token", func(t *testing.T) {
		_, err := GetPaymentToken(SymbolMCHZ)
		assert.Error(t, err)
	})

	t.Run("fan tokens are whole units", func(t *testing.T) {
		psg, err := GetFanToken("PSG")
		require.NoError(t, err)
		assert.Equal(t, int32(0), psg.Decimals)
		assert.Equal(t, KindFan, psg.Kind)
	})

	t.Run("unknown fan token", func(t *testing.T) {
		_, err := GetFanToken("XYZ")
		assert.Error(t, err)
	})

	t.Run("fan token order", func(t *testing.T) {
		fan := FanTokens()
		require.Len(t, fan, 11)
		assert.Equal(t, "PSG", fan[0].Symbol)
		assert.Equal(t, "ATM", fan[10].Symbol)
	})

	t.Run("chain metadata", func(t *testing.T) {
		assert.Equal(t, "SEPOLIA", GetChainName(SepoliaChainID))
		assert.Equal(t, "", GetChainName(1))
		domain, ok := GetHyperlaneDomain(ChilizSpicyChainID)
		assert.True(t, ok)
		assert.Equal(t, uint32(88882), domain)
	})
}
