package quote

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/drift-pay/drift-gateway/pkg/chainclient"
	"github.com/drift-pay/drift-gateway/pkg/chainclient/mocks"
	"github.com/drift-pay/drift-gateway/pkg/chains"
	"github.com/drift-pay/drift-gateway/pkg/logger"
	"github.com/drift-pay/drift-gateway/pkg/models"
	"github.com/drift-pay/drift-gateway/pkg/oracle"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wei(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("invalid integer " + s)
	}
	return v
}

var (
	usdc = chains.MustGetToken(chains.SepoliaChainID, chains.SymbolUSDC)
	usdt = chains.MustGetToken(chains.SepoliaChainID, chains.SymbolUSDT)
	mchz = chains.MustGetToken(chains.SepoliaChainID, chains.SymbolMCHZ)
	weth = chains.MustGetToken(chains.SepoliaChainID, chains.SymbolWETH)
	psg  = chains.MustGetToken(chains.ChilizSpicyChainID, "PSG")
)

type fixture struct {
	router *mocks.Router
	pool   *mocks.Pool
	dex    *mocks.DEX
	bridge *mocks.Bridge
	engine *Engine
}

// newFixture builds an engine over a USDC/MCHZ pool of 6000 USDC and 143997.79 MCHZ,
// a DEX pricing PSG at 25 per CHZ, and a bridge holding 1000 MCHZ
func newFixture() *fixture {
	f := &fixture{
		router: mocks.NewRouter(common.HexToAddress("0x01")),
		pool:   mocks.NewPool(common.HexToAddress("0x02"), usdc.Address, wei("6000000000"), wei("143997790000000000000000")),
		dex:    &mocks.DEX{Rates: map[common.Address]*big.Int{psg.Address: wei("25000000000000000000")}},
		bridge: &mocks.Bridge{Available: wei("1000000000000000000000")},
	}
	f.router.AddPair(usdc.Address, mchz.Address, f.pool)
	f.engine = NewEngine(
		f.router,
		oracle.NewFanTokenOracle(f.dex),
		oracle.NewBridgeLiquidity(f.bridge),
		EngineConfig{FeeNumerator: 997, FeeDenominator: 1000, SlippageBps: 200},
		&logger.EmptyLogger{},
	)
	return f
}

func TestGetAmountIn(t *testing.T) {
	reserveIn := wei("6000000000")
	reserveOut := wei("143997790000000000000000")

	t.Run("10 MCHZ out of the reference pool", func(t *testing.T) {
		amountOut := wei("10000000000000000000")
		amountIn, err := GetAmountIn(amountOut, reserveIn, reserveOut, 997, 1000)
		require.NoError(t, err)

		assert.Equal(t, "417956", amountIn.String())
		assert.True(t, amountIn.Sign() > 0)
		assert.True(t, amountIn.Cmp(reserveIn) < 0)

		// Without the fee the input would be smaller
		noFee, err := GetAmountIn(amountOut, reserveIn, reserveOut, 1000, 1000)
		require.NoError(t, err)
		assert.Equal(t, "416702", noFee.String())
		assert.True(t, amountIn.Cmp(noFee) > 0)
	})

	t.Run("swapping the input back yields at least the requested output", func(t *testing.T) {
		for _, out := range []string{"1", "999999", "10000000000000000000", "143000000000000000000000"} {
			amountOut := wei(out)
			amountIn, err := GetAmountIn(amountOut, reserveIn, reserveOut, 997, 1000)
			require.NoError(t, err)
			received := GetAmountOut(amountIn, reserveIn, reserveOut, 997, 1000)
			assert.True(t, received.Cmp(amountOut) >= 0, "out %s: received %s", out, received)
		}
	})

	errorTests := []struct {
		name      string
		amountOut *big.Int
		reserveIn *big.Int
		kind      error
	}{
		{"output equal to reserve", new(big.Int).Set(reserveOut), reserveIn, ErrInsufficientOutputAmount},
		{"output above reserve", new(big.Int).Add(reserveOut, big.NewInt(1)), reserveIn, ErrInsufficientOutputAmount},
		{"zero output", big.NewInt(0), reserveIn, ErrInsufficientOutputAmount},
		{"empty pool", big.NewInt(1), big.NewInt(0), ErrInsufficientLiquidity},
	}
	for _, tt := range errorTests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GetAmountIn(tt.amountOut, tt.reserveIn, reserveOut, 997, 1000)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestSlippageAndTolerance(t *testing.T) {
	assert.Equal(t, "102", ApplySlippage(big.NewInt(100), 200).String())
	assert.Equal(t, "2", ApplySlippage(big.NewInt(1), 200).String())
	assert.Equal(t, "98", ApplyTolerance(big.NewInt(100), 200).String())
	assert.Equal(t, "0", ApplyTolerance(big.NewInt(1), 200).String())
	assert.Equal(t, "2%", FormatBps(200))
	assert.Equal(t, "2.5%", FormatBps(250))
}

func TestEngineQuote(t *testing.T) {
	ctx := context.Background()

	t.Run("direct route", func(t *testing.T) {
		f := newFixture()
		quote, err := f.engine.Quote(ctx, "psg", "10", "usdc")
		require.NoError(t, err)

		assert.Equal(t, "PSG", quote.FanTokenSymbol)
		assert.Equal(t, "USDC", quote.PaymentToken)
		assert.Equal(t, "400000000000000000", quote.ChzNeededWei.String())
		assert.Equal(t, "0.400000000000000000", quote.ChzNeeded)
		assert.Equal(t, "17053", quote.PaymentTokenNeededBaseUnits.String())
		assert.Equal(t, "0.017053", quote.PaymentTokenNeeded)
		assert.Equal(t, "2%", quote.Slippage)
		assert.Equal(t, "USDC → MCHZ", quote.Route)
		assert.Equal(t, []common.Address{usdc.Address, mchz.Address}, quote.RoutePath)
		assert.Equal(t, models.PricingModeAMM, quote.PricingMode)
		assert.Equal(t, "1000.000000000000000000", quote.BridgeBalance)
	})

	t.Run("route through WETH when the direct pair is missing", func(t *testing.T) {
		f := newFixture()
		router := mocks.NewRouter(common.HexToAddress("0x01"))
		router.AddPair(usdc.Address, weth.Address, mocks.NewPool(common.HexToAddress("0x03"), weth.Address, wei("2000000000000000000"), wei("6000000000")))
		router.AddPair(weth.Address, mchz.Address, mocks.NewPool(common.HexToAddress("0x04"), weth.Address, wei("2000000000000000000"), wei("144000000000000000000000")))
		f.engine.router = router

		quote, err := f.engine.Quote(ctx, "PSG", "10", "USDC")
		require.NoError(t, err)
		assert.Equal(t, "USDC → WETH → MCHZ", quote.Route)
		assert.Equal(t, []common.Address{usdc.Address, weth.Address, mchz.Address}, quote.RoutePath)
		assert.Equal(t, "17104", quote.PaymentTokenNeededBaseUnits.String())
	})

	t.Run("idempotent with unchanged reserves", func(t *testing.T) {
		f := newFixture()
		first, err := f.engine.Quote(ctx, "PSG", "3", "USDC")
		require.NoError(t, err)
		second, err := f.engine.Quote(ctx, "PSG", "3", "USDC")
		require.NoError(t, err)

		assert.Equal(t, first.PaymentTokenNeeded, second.PaymentTokenNeeded)
		assert.Equal(t, first.ChzNeededWei, second.ChzNeededWei)
		assert.Equal(t, 2, f.pool.Readings(), "reserves are read fresh on every quote")
	})

	t.Run("monotonic in the fan token amount", func(t *testing.T) {
		f := newFixture()
		previous := big.NewInt(0)
		for _, amount := range []string{"1", "2", "5", "10", "100", "1000"} {
			quote, err := f.engine.Quote(ctx, "PSG", amount, "USDC")
			require.NoError(t, err)
			assert.True(t, quote.PaymentTokenNeededBaseUnits.Cmp(previous) > 0, "amount %s", amount)
			previous = quote.PaymentTokenNeededBaseUnits
		}
	})

	t.Run("zero bridge liquidity", func(t *testing.T) {
		f := newFixture()
		f.bridge.Available = big.NewInt(0)

		_, err := f.engine.Quote(ctx, "PSG", "1", "USDC")
		require.ErrorIs(t, err, ErrInsufficientBridgeLiquidity)

		var qerr *QuoteError
		require.True(t, errors.As(err, &qerr))
		assert.Equal(t, "0.000000000000000000", qerr.Available)
		assert.Equal(t, "0.040000000000000000", qerr.Needed)
		assert.NotEmpty(t, qerr.Suggestion)
	})
}

func TestEngineQuoteErrors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *fixture)
		fan     string
		amount  string
		payment string
		kind    error
	}{
		{"unsupported payment token", nil, "PSG", "1", "DAI", ErrUnsupportedToken},
		{"MCHZ is not a payment token", nil, "PSG", "1", "MCHZ", ErrUnsupportedToken},
		{"unknown fan token", nil, "XYZ", "1", "USDC", ErrUnsupportedToken},
		{"negative amount", nil, "PSG", "-1", "USDC", ErrInvalidAmount},
		{"fraction of an indivisible fan token", nil, "PSG", "1.5", "USDC", ErrInvalidAmount},
		{"no route for USDT", nil, "PSG", "1", "USDT", ErrPoolUnavailable},
		{"pool read failure", func(f *fixture) { f.pool.Err = errors.New("rpc timeout") }, "PSG", "1", "USDC", ErrPoolUnavailable},
		{"empty pool", func(f *fixture) { f.pool.SetReserves(big.NewInt(0), big.NewInt(0)) }, "PSG", "1", "USDC", ErrInsufficientLiquidity},
		{"no DEX rate", func(f *fixture) { f.dex.Rates = map[common.Address]*big.Int{} }, "PSG", "1", "USDC", ErrNoFanTokenLiquidity},
		{"DEX read failure", func(f *fixture) { f.dex.Err = errors.New("rpc timeout") }, "PSG", "1", "USDC", ErrOracleUnavailable},
		{"output above pool reserve", func(f *fixture) { f.pool.SetReserves(wei("6000000000"), wei("1000000000000000000")) }, "PSG", "1000", "USDC", ErrInsufficientOutputAmount},
		{"bridge read failure", func(f *fixture) { f.bridge.LiquidityErr = errors.New("rpc timeout") }, "PSG", "1", "USDC", ErrBridgeUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			if tt.setup != nil {
				tt.setup(f)
			}
			quote, err := f.engine.Quote(context.Background(), tt.fan, tt.amount, tt.payment)
			assert.Nil(t, quote)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestFixedRatePricer(t *testing.T) {
	ctx := context.Background()

	t.Run("1.7 USD token with 3% slippage", func(t *testing.T) {
		rate, err := NewFixedRate("1.7", "25")
		require.NoError(t, err)
		pricer := NewFixedRatePricer(map[string]FixedRate{"PSG": rate},
			oracle.NewBridgeLiquidity(&mocks.Bridge{Available: wei("100000000000000000000")}), 300, &logger.EmptyLogger{})

		quote, err := pricer.Quote(ctx, "PSG", "1", "USDC")
		require.NoError(t, err)
		assert.Equal(t, "1.751000", quote.PaymentTokenNeeded)
		assert.Equal(t, "1751000", quote.PaymentTokenNeededBaseUnits.String())
		assert.Equal(t, "25000000000000000000", quote.ChzNeededWei.String())
		assert.Equal(t, "3%", quote.Slippage)
		assert.Equal(t, models.PricingModeFixed, quote.PricingMode)
	})

	t.Run("fractional results round up", func(t *testing.T) {
		rate, err := NewFixedRate("0.0000013", "1")
		require.NoError(t, err)
		pricer := NewFixedRatePricer(map[string]FixedRate{"PSG": rate},
			oracle.NewBridgeLiquidity(&mocks.Bridge{Available: wei("100000000000000000000")}), 0, &logger.EmptyLogger{})

		quote, err := pricer.Quote(ctx, "PSG", "1", "USDT")
		require.NoError(t, err)
		assert.Equal(t, "0.000002", quote.PaymentTokenNeeded)
	})

	t.Run("default table", func(t *testing.T) {
		rates := DefaultFixedRates()
		require.Len(t, rates, len(chains.FanTokens()))
		for _, token := range chains.FanTokens() {
			_, ok := rates[token.Symbol]
			assert.True(t, ok, token.Symbol)
		}
		assert.Equal(t, "54300000", rates["PSG"].PriceMicroUSD.String())
		assert.Equal(t, "676035000000000000000", rates["PSG"].ChzPerTokenWei.String())

		pricer := NewFixedRatePricer(rates,
			oracle.NewBridgeLiquidity(&mocks.Bridge{Available: wei("1000000000000000000000")}), 300, &logger.EmptyLogger{})
		quote, err := pricer.Quote(ctx, "PSG", "1", "USDC")
		require.NoError(t, err)
		assert.Equal(t, "55.929000", quote.PaymentTokenNeeded)
	})

	t.Run("bridge still applies", func(t *testing.T) {
		pricer := NewFixedRatePricer(DefaultFixedRates(),
			oracle.NewBridgeLiquidity(&mocks.Bridge{Available: big.NewInt(0)}), 300, &logger.EmptyLogger{})
		_, err := pricer.Quote(ctx, "BAR", "1", "USDC")
		assert.ErrorIs(t, err, ErrInsufficientBridgeLiquidity)
	})

	t.Run("fractional fan token amount", func(t *testing.T) {
		_, err := NewFixedRatePricer(DefaultFixedRates(),
			oracle.NewBridgeLiquidity(&mocks.Bridge{Available: wei("1000000000000000000000")}), 300, &logger.EmptyLogger{}).
			Quote(ctx, "PSG", "1.5", "USDC")
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("invalid rates", func(t *testing.T) {
		_, err := NewFixedRate("abc", "1")
		assert.Error(t, err)
		_, err = NewFixedRate("1", "0")
		assert.Error(t, err)
	})
}

func TestValidatePools(t *testing.T) {
	f := newFixture()
	empty := mocks.NewPool(common.HexToAddress("0x05"), weth.Address, big.NewInt(0), big.NewInt(0))
	f.router.AddPair(weth.Address, mchz.Address, empty)
	broken := mocks.NewPool(common.HexToAddress("0x06"), usdt.Address, big.NewInt(1), big.NewInt(1))
	broken.Err = &chainclient.RemoteReadError{ChainID: chains.SepoliaChainID, Op: "getReserves", Err: errors.New("timeout")}
	f.router.AddPair(usdt.Address, mchz.Address, broken)

	statuses := ValidatePools(context.Background(), f.router)
	require.Len(t, statuses, 5)

	byPair := make(map[string]PoolStatus)
	for _, s := range statuses {
		byPair[s.Pair] = s
	}

	assert.True(t, byPair["USDC/MCHZ"].Exists)
	assert.True(t, byPair["USDC/MCHZ"].Healthy)
	assert.Equal(t, "6000000000", byPair["USDC/MCHZ"].Reserve0.String())

	assert.True(t, byPair["USDT/MCHZ"].Exists)
	assert.False(t, byPair["USDT/MCHZ"].Healthy)
	assert.NotEmpty(t, byPair["USDT/MCHZ"].Error)

	assert.False(t, byPair["USDC/WETH"].Exists)
	assert.Empty(t, byPair["USDC/WETH"].Error)

	assert.True(t, byPair["WETH/MCHZ"].Exists)
	assert.False(t, byPair["WETH/MCHZ"].Healthy)
}
