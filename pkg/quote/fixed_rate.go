package quote

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/drift-pay/drift-gateway/pkg/chains"
	"github.com/drift-pay/drift-gateway/pkg/logger"
	"github.com/drift-pay/drift-gateway/pkg/models"
	"github.com/drift-pay/drift-gateway/pkg/oracle"
	"github.com/shopspring/decimal"
)

// usdDecimals is the precision of fixed USD prices (micro-USD)
const usdDecimals int32 = 6

// chzPerUSD is the CHZ obtainable for one USD in the default table
var chzPerUSD = decimal.RequireFromString("12.45")

// defaultUSDPrices are the listed USD prices of one fan token
var defaultUSDPrices = map[string]string{
	"PSG":   "54.30",
	"BAR":   "42.85",
	"SPURS": "38.90",
	"ACM":   "45.60",
	"OG":    "28.75",
	"CITY":  "52.20",
	"AFC":   "41.15",
	"MENGO": "33.40",
	"JUV":   "47.80",
	"NAP":   "39.25",
	"ATM":   "36.90",
}

// FixedRate is the fixed price of one fan token
type FixedRate struct {
	PriceMicroUSD  *big.Int
	ChzPerTokenWei *big.Int
}

// NewFixedRate parses a USD price and a CHZ-per-token rate
func NewFixedRate(priceUSD string, chzPerToken string) (FixedRate, error) {
	price, err := decimal.NewFromString(priceUSD)
	if err != nil || !price.IsPositive() {
		return FixedRate{}, fmt.Errorf("invalid USD price %q", priceUSD)
	}
	chz, err := decimal.NewFromString(chzPerToken)
	if err != nil || !chz.IsPositive() {
		return FixedRate{}, fmt.Errorf("invalid CHZ rate %q", chzPerToken)
	}
	return FixedRate{
		PriceMicroUSD:  chains.ToBaseUnitsCeil(price, usdDecimals),
		ChzPerTokenWei: chains.ToBaseUnitsCeil(chz, chains.PriceDecimals),
	}, nil
}

// DefaultFixedRates returns the built-in price table
func DefaultFixedRates() map[string]FixedRate {
	rates := make(map[string]FixedRate, len(defaultUSDPrices))
	for symbol, price := range defaultUSDPrices {
		usd := decimal.RequireFromString(price)
		rates[symbol] = FixedRate{
			PriceMicroUSD:  chains.ToBaseUnitsCeil(usd, usdDecimals),
			ChzPerTokenWei: chains.ToBaseUnitsCeil(usd.Mul(chzPerUSD), chains.PriceDecimals),
		}
	}
	return rates
}

// FixedRatePricer quotes from a static price table instead of pool reserves
type FixedRatePricer struct {
	rates       map[string]FixedRate
	bridge      *oracle.BridgeLiquidity
	slippageBps int64
	logger      logger.Logger
	now         func() time.Time
}

var _ Quoter = (*FixedRatePricer)(nil)

// NewFixedRatePricer creates a pricer over the rate table, keyed by fan token symbol
func NewFixedRatePricer(rates map[string]FixedRate, bridge *oracle.BridgeLiquidity, slippageBps int64, logger logger.Logger) *FixedRatePricer {
	return &FixedRatePricer{
		rates:       rates,
		bridge:      bridge,
		slippageBps: slippageBps,
		logger:      logger,
		now:         time.Now,
	}
}

func (p *FixedRatePricer) Mode() models.PricingMode {
	return models.PricingModeFixed
}

// Quote prices fanTokenAmount at the table price plus slippage; the bridge still has to cover the CHZ
func (p *FixedRatePricer) Quote(ctx context.Context, fanTokenSymbol string, fanTokenAmount string, paymentTokenSymbol string) (*models.PaymentQuote, error) {
	start := time.Now()
	quote, err := p.quote(ctx, fanTokenSymbol, fanTokenAmount, paymentTokenSymbol)
	observeQuote(p.Mode(), start, err)
	if err != nil {
		p.logger.Debug("Fixed rate quote for %s %s in %s failed: %v",
			fanTokenAmount, fanTokenSymbol, paymentTokenSymbol, err)
		return nil, err
	}
	return quote, nil
}

func (p *FixedRatePricer) quote(ctx context.Context, fanTokenSymbol string, fanTokenAmount string, paymentTokenSymbol string) (*models.PaymentQuote, error) {
	paymentToken, fanToken, amount, err := resolveRequest(fanTokenSymbol, fanTokenAmount, paymentTokenSymbol)
	if err != nil {
		return nil, err
	}
	rate, ok := p.rates[fanToken.Symbol]
	if !ok {
		return nil, newError(KindUnsupportedToken, nil, "no fixed price for %s", fanToken.Symbol)
	}

	amountWei := chains.ToBaseUnitsCeil(amount, chains.PriceDecimals)
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(chains.PriceDecimals)), nil)

	// amount × price × (1 + slippage), converted from micro-USD to the payment token's precision
	numerator := new(big.Int).Mul(amountWei, rate.PriceMicroUSD)
	numerator.Mul(numerator, big.NewInt(bpsDenominator+p.slippageBps))
	denominator := new(big.Int).Mul(scale, big.NewInt(bpsDenominator))
	if shift := int64(paymentToken.Decimals - usdDecimals); shift >= 0 {
		numerator.Mul(numerator, new(big.Int).Exp(big.NewInt(10), big.NewInt(shift), nil))
	} else {
		denominator.Mul(denominator, new(big.Int).Exp(big.NewInt(10), big.NewInt(-shift), nil))
	}
	paymentNeeded := ceilDiv(numerator, denominator)

	chzNeeded := ceilDiv(new(big.Int).Mul(amountWei, rate.ChzPerTokenWei), scale)

	bridgeBalance, err := checkBridge(ctx, p.bridge, chzNeeded)
	if err != nil {
		return nil, err
	}

	return &models.PaymentQuote{
		FanTokenSymbol:              fanToken.Symbol,
		FanTokenAmount:              amount.String(),
		PaymentToken:                paymentToken.Symbol,
		PaymentTokenNeeded:          chains.FormatBaseUnits(paymentNeeded, paymentToken.Decimals),
		PaymentTokenNeededBaseUnits: paymentNeeded,
		ChzNeeded:                   chains.FormatBaseUnits(chzNeeded, chains.PriceDecimals),
		ChzNeededWei:                chzNeeded,
		BridgeBalance:               chains.FormatBaseUnits(bridgeBalance, chains.PriceDecimals),
		Slippage:                    FormatBps(p.slippageBps),
		SlippageBps:                 p.slippageBps,
		Route:                       fmt.Sprintf("%s → %s (fixed rate)", paymentToken.Symbol, chains.SymbolMCHZ),
		PricingMode:                 p.Mode(),
		QuotedAt:                    p.now().UTC(),
	}, nil
}
