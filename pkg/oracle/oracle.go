package oracle

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/drift-pay/drift-gateway/pkg/chainclient"
	"github.com/drift-pay/drift-gateway/pkg/chains"
	"github.com/shopspring/decimal"
)

// ErrZeroRate is returned when the DEX reports no liquidity for a fan token
var ErrZeroRate = errors.New("oracle reported a zero rate")

// oneCHZ is 1 CHZ in wei
var oneCHZ = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// OneCHZ returns 1 CHZ in wei
func OneCHZ() *big.Int {
	return new(big.Int).Set(oneCHZ)
}

// FanTokenPrice is the DEX rate of a fan token against CHZ
type FanTokenPrice struct {
	Symbol string `json:"symbol"`
	// FanTokensPerCHZ is the number of fan tokens obtainable for one CHZ
	FanTokensPerCHZ string   `json:"fanTokensPerChz"`
	Raw             *big.Int `json:"raw"`
}

// FanTokenOracle reads CHZ to fan-token rates from the destination DEX
type FanTokenOracle struct {
	dex chainclient.DEX
}

// NewFanTokenOracle creates a new oracle over the DEX
func NewFanTokenOracle(dex chainclient.DEX) *FanTokenOracle {
	return &FanTokenOracle{dex: dex}
}

// Rate returns the fan tokens, at 18 decimals, obtainable for one CHZ
func (o *FanTokenOracle) Rate(ctx context.Context, fanToken chains.Token) (*big.Int, error) {
	rate, err := o.dex.GetPrice(ctx, fanToken.Address, OneCHZ())
	if err != nil {
		return nil, err
	}
	if rate.Sign() <= 0 {
		return nil, fmt.Errorf("%s: %w", fanToken.Symbol, ErrZeroRate)
	}
	return rate, nil
}

// ChzNeeded returns the CHZ, in wei, needed to buy the fan-token amount, rounded up
func (o *FanTokenOracle) ChzNeeded(ctx context.Context, fanToken chains.Token, amount decimal.Decimal) (*big.Int, error) {
	rate, err := o.Rate(ctx, fanToken)
	if err != nil {
		return nil, err
	}
	return ChzForFanTokens(amount, rate), nil
}

// ChzForFanTokens converts a fan-token amount to CHZ wei at the given rate (fan tokens per CHZ, 18 decimals)
func ChzForFanTokens(amount decimal.Decimal, rate *big.Int) *big.Int {
	amountWei := chains.ToBaseUnitsCeil(amount, chains.PriceDecimals)
	return ceilDiv(new(big.Int).Mul(amountWei, oneCHZ), rate)
}

// AllPrices reads the rate of every listed fan token for the given CHZ amount
func (o *FanTokenOracle) AllPrices(ctx context.Context, chzAmount *big.Int) ([]FanTokenPrice, error) {
	raw, err := o.dex.GetAllPrices(ctx, chzAmount)
	if err != nil {
		return nil, err
	}

	fanTokens := chains.FanTokens()
	if len(raw) != len(fanTokens) {
		return nil, fmt.Errorf("DEX returned %d prices, expected %d", len(raw), len(fanTokens))
	}

	chz := chains.FromBaseUnits(chzAmount, chains.PriceDecimals)
	prices := make([]FanTokenPrice, len(raw))
	for i, token := range fanTokens {
		perCHZ := decimal.Zero
		if chz.IsPositive() {
			perCHZ = chains.FromBaseUnits(raw[i], chains.PriceDecimals).Div(chz)
		}
		prices[i] = FanTokenPrice{
			Symbol:          token.Symbol,
			FanTokensPerCHZ: perCHZ.String(),
			Raw:             raw[i],
		}
	}
	return prices, nil
}

// BridgeLiquidity reads the collateral locked in the source-side warp route
type BridgeLiquidity struct {
	bridge chainclient.Bridge
}

// NewBridgeLiquidity creates a new liquidity checker over the bridge
func NewBridgeLiquidity(bridge chainclient.Bridge) *BridgeLiquidity {
	return &BridgeLiquidity{bridge: bridge}
}

// Available returns the bridge's collateral balance
func (b *BridgeLiquidity) Available(ctx context.Context) (*big.Int, error) {
	return b.bridge.Liquidity(ctx)
}

// Check reports whether at least needed is available, returning the available amount either way
func (b *BridgeLiquidity) Check(ctx context.Context, needed *big.Int) (*big.Int, bool, error) {
	available, err := b.bridge.Liquidity(ctx)
	if err != nil {
		return nil, false, err
	}
	return available, available.Cmp(needed) >= 0, nil
}

func ceilDiv(numerator *big.Int, denominator *big.Int) *big.Int {
	quotient, remainder := new(big.Int).QuoRem(numerator, denominator, new(big.Int))
	if remainder.Sign() > 0 {
		quotient.Add(quotient, big.NewInt(1))
	}
	return quotient
}
