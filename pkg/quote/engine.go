package quote

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/drift-pay/drift-gateway/pkg/chainclient"
	"github.com/drift-pay/drift-gateway/pkg/chains"
	"github.com/drift-pay/drift-gateway/pkg/logger"
	"github.com/drift-pay/drift-gateway/pkg/metrics"
	"github.com/drift-pay/drift-gateway/pkg/models"
	"github.com/drift-pay/drift-gateway/pkg/oracle"
	"github.com/shopspring/decimal"
)

// Quoter prices a fan-token purchase in a payment token
type Quoter interface {
	Quote(ctx context.Context, fanTokenSymbol string, fanTokenAmount string, paymentTokenSymbol string) (*models.PaymentQuote, error)
	Mode() models.PricingMode
}

// EngineConfig holds the pool fee and slippage parameters
type EngineConfig struct {
	FeeNumerator   int64
	FeeDenominator int64
	SlippageBps    int64
}

// Engine quotes against live AMM pool reserves
type Engine struct {
	router chainclient.Router
	oracle *oracle.FanTokenOracle
	bridge *oracle.BridgeLiquidity
	config EngineConfig
	logger logger.Logger
	now    func() time.Time
}

var _ Quoter = (*Engine)(nil)

// NewEngine creates a new AMM quote engine
func NewEngine(
	router chainclient.Router,
	fanTokenOracle *oracle.FanTokenOracle,
	bridge *oracle.BridgeLiquidity,
	config EngineConfig,
	logger logger.Logger,
) *Engine {
	if config.FeeNumerator <= 0 || config.FeeDenominator <= 0 {
		config.FeeNumerator, config.FeeDenominator = 997, 1000
	}
	return &Engine{
		router: router,
		oracle: fanTokenOracle,
		bridge: bridge,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

func (e *Engine) Mode() models.PricingMode {
	return models.PricingModeAMM
}

// Quote prices fanTokenAmount of the fan token in the payment token, reading every input fresh
func (e *Engine) Quote(ctx context.Context, fanTokenSymbol string, fanTokenAmount string, paymentTokenSymbol string) (*models.PaymentQuote, error) {
	start := time.Now()
	quote, err := e.quote(ctx, fanTokenSymbol, fanTokenAmount, paymentTokenSymbol)
	observeQuote(e.Mode(), start, err)
	if err != nil {
		e.logger.DebugWithChain(chains.SepoliaChainID, "Quote for %s %s in %s failed: %v",
			fanTokenAmount, fanTokenSymbol, paymentTokenSymbol, err)
		return nil, err
	}
	return quote, nil
}

func (e *Engine) quote(ctx context.Context, fanTokenSymbol string, fanTokenAmount string, paymentTokenSymbol string) (*models.PaymentQuote, error) {
	paymentToken, fanToken, amount, err := resolveRequest(fanTokenSymbol, fanTokenAmount, paymentTokenSymbol)
	if err != nil {
		return nil, err
	}

	route, err := ResolveRoute(ctx, e.router, paymentToken)
	if err != nil {
		return nil, err
	}
	hops, err := readHops(ctx, route)
	if err != nil {
		return nil, err
	}

	chzNeeded, err := e.oracle.ChzNeeded(ctx, fanToken, amount)
	if err != nil {
		if errors.Is(err, oracle.ErrZeroRate) {
			return nil, newError(KindNoFanTokenLiquidity, err, "no DEX liquidity for %s", fanToken.Symbol)
		}
		return nil, newError(KindOracleUnavailable, err, "failed to read %s price", fanToken.Symbol)
	}

	// MCHZ bridges 1:1 into CHZ
	amounts, err := GetAmountsIn(chzNeeded, hops, e.config.FeeNumerator, e.config.FeeDenominator)
	if err != nil {
		return nil, err
	}
	paymentNeeded := ApplySlippage(amounts[0], e.config.SlippageBps)

	bridgeBalance, err := checkBridge(ctx, e.bridge, chzNeeded)
	if err != nil {
		return nil, err
	}

	e.logger.DebugWithChain(chains.SepoliaChainID, "Quoted %s %s at %s %s via %s",
		amount.String(), fanToken.Symbol, chains.FormatBaseUnits(paymentNeeded, paymentToken.Decimals),
		paymentToken.Symbol, route.Description())

	return &models.PaymentQuote{
		FanTokenSymbol:              fanToken.Symbol,
		FanTokenAmount:              amount.String(),
		PaymentToken:                paymentToken.Symbol,
		PaymentTokenNeeded:          chains.FormatBaseUnits(paymentNeeded, paymentToken.Decimals),
		PaymentTokenNeededBaseUnits: paymentNeeded,
		ChzNeeded:                   chains.FormatBaseUnits(chzNeeded, chains.PriceDecimals),
		ChzNeededWei:                chzNeeded,
		BridgeBalance:               chains.FormatBaseUnits(bridgeBalance, chains.PriceDecimals),
		Slippage:                    FormatBps(e.config.SlippageBps),
		SlippageBps:                 e.config.SlippageBps,
		Route:                       route.Description(),
		RoutePath:                   route.Path(),
		PricingMode:                 e.Mode(),
		QuotedAt:                    e.now().UTC(),
	}, nil
}

// resolveRequest validates the token symbols and the amount of a quote request
func resolveRequest(fanTokenSymbol string, fanTokenAmount string, paymentTokenSymbol string) (chains.Token, chains.Token, decimal.Decimal, error) {
	paymentToken, err := chains.GetPaymentToken(paymentTokenSymbol)
	if err != nil {
		return chains.Token{}, chains.Token{}, decimal.Zero, newError(KindUnsupportedToken, err, "payment token %s is not accepted", paymentTokenSymbol)
	}
	fanToken, err := chains.GetFanToken(fanTokenSymbol)
	if err != nil {
		return chains.Token{}, chains.Token{}, decimal.Zero, newError(KindUnsupportedToken, err, "fan token %s is not listed", fanTokenSymbol)
	}
	amount, err := chains.ParseAmount(fanTokenAmount)
	if err != nil {
		return chains.Token{}, chains.Token{}, decimal.Zero, newError(KindInvalidAmount, err, "invalid fan token amount %q", fanTokenAmount)
	}
	if !amount.Shift(fanToken.Decimals).IsInteger() {
		return chains.Token{}, chains.Token{}, decimal.Zero, newError(KindInvalidAmount, nil,
			"%s is transferred in units of %s, %q cannot be delivered", fanToken.Symbol, decimal.New(1, -fanToken.Decimals).String(), fanTokenAmount)
	}
	return paymentToken, fanToken, amount, nil
}

// checkBridge returns the bridge balance when it covers needed
func checkBridge(ctx context.Context, bridge *oracle.BridgeLiquidity, needed *big.Int) (*big.Int, error) {
	available, ok, err := bridge.Check(ctx, needed)
	if err != nil {
		return nil, newError(KindBridgeUnavailable, err, "failed to read bridge liquidity")
	}
	if !ok {
		qerr := newError(KindInsufficientBridgeLiquidity, nil, "bridge holds %s MCHZ, %s MCHZ needed",
			chains.FormatBaseUnits(available, chains.PriceDecimals), chains.FormatBaseUnits(needed, chains.PriceDecimals))
		qerr.Available = chains.FormatBaseUnits(available, chains.PriceDecimals)
		qerr.Needed = chains.FormatBaseUnits(needed, chains.PriceDecimals)
		return nil, qerr
	}
	return available, nil
}

// FormatBps renders basis points as a percentage, e.g. 200 as "2%"
func FormatBps(bps int64) string {
	return decimal.New(bps, -2).String() + "%"
}

func observeQuote(mode models.PricingMode, start time.Time, err error) {
	outcome := "success"
	var qerr *QuoteError
	if errors.As(err, &qerr) {
		outcome = string(qerr.Kind)
	} else if err != nil {
		outcome = "error"
	}
	metrics.QuotesTotal.WithLabelValues(string(mode), outcome).Inc()
	metrics.QuoteLatency.WithLabelValues(string(mode)).Observe(time.Since(start).Seconds())
}
