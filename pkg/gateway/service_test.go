package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/drift-pay/drift-gateway/pkg/chainclient"
	"github.com/drift-pay/drift-gateway/pkg/chainclient/mocks"
	"github.com/drift-pay/drift-gateway/pkg/chains"
	"github.com/drift-pay/drift-gateway/pkg/circuitbreaker"
	"github.com/drift-pay/drift-gateway/pkg/logger"
	"github.com/drift-pay/drift-gateway/pkg/models"
	"github.com/drift-pay/drift-gateway/pkg/oracle"
	"github.com/drift-pay/drift-gateway/pkg/quote"
	"github.com/drift-pay/drift-gateway/pkg/saga"
	"github.com/drift-pay/drift-gateway/pkg/store"
	"github.com/drift-pay/drift-gateway/pkg/webhook"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	usdc = chains.MustGetToken(chains.SepoliaChainID, chains.SymbolUSDC)
	mchz = chains.MustGetToken(chains.SepoliaChainID, chains.SymbolMCHZ)
	psg  = chains.MustGetToken(chains.ChilizSpicyChainID, "PSG")

	merchant = "0x00000000000000000000000000000000000000aa"
)

func wei(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic(s)
	}
	return v
}

func newWallet(t *testing.T) *chainclient.Wallet {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return chainclient.NewWalletFromKey(key)
}

type hookReceiver struct {
	server *httptest.Server
	mu     sync.Mutex
	events []string
}

func newHookReceiver(t *testing.T) *hookReceiver {
	r := &hookReceiver{}
	r.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var payload models.WebhookPayload
		if err := json.NewDecoder(req.Body).Decode(&payload); err == nil {
			r.mu.Lock()
			r.events = append(r.events, models.EventName(payload.Step, payload.StepStatus))
			r.mu.Unlock()
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(r.server.Close)
	return r
}

func (r *hookReceiver) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fixture struct {
	svc      *Service
	store    *store.MemoryStore
	usdc     *mocks.Token
	psg      *mocks.Token
	pool     *mocks.Pool
	dex      *mocks.DEX
	bridge   *mocks.Bridge
	webhooks *webhook.Service
	operator *chainclient.Wallet
	float    *chainclient.Wallet
	buyer    *chainclient.Wallet
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		store:    store.NewMemoryStore(),
		usdc:     mocks.NewToken(usdc.Address),
		psg:      mocks.NewToken(psg.Address),
		pool:     mocks.NewPool(common.HexToAddress("0x02"), usdc.Address, wei("6000000000"), wei("143997790000000000000000")),
		bridge:   &mocks.Bridge{Addr: common.HexToAddress("0x03"), Available: wei("1000000000000000000000")},
		operator: newWallet(t),
		float:    newWallet(t),
		buyer:    newWallet(t),
	}
	all := make([]*big.Int, len(chains.FanTokens()))
	for i := range all {
		all[i] = wei("25000000000000000000")
	}
	f.dex = &mocks.DEX{Rates: map[common.Address]*big.Int{psg.Address: wei("25000000000000000000")}, All: all}

	router := mocks.NewRouter(common.HexToAddress("0x01"))
	router.AddPair(usdc.Address, mchz.Address, f.pool)

	f.usdc.SetBalance(f.buyer.Address, big.NewInt(10_000_000))
	f.usdc.SetAllowance(f.buyer.Address, f.operator.Address, big.NewInt(10_000_000))
	f.psg.SetBalance(f.float.Address, big.NewInt(100))

	fanTokenOracle := oracle.NewFanTokenOracle(f.dex)
	liquidity := oracle.NewBridgeLiquidity(f.bridge)
	engine := quote.NewEngine(router, fanTokenOracle, liquidity, quote.EngineConfig{SlippageBps: 200}, &logger.EmptyLogger{})

	breakers := circuitbreaker.NewRegistry(true, 5, time.Minute, time.Minute, &logger.EmptyLogger{})
	f.webhooks = webhook.NewService(time.Second, webhook.DefaultRetryPolicy(), breakers, &logger.EmptyLogger{})

	orchestrator := saga.NewOrchestrator(
		f.store,
		saga.Contracts{
			Tokens: saga.TokenMap{
				chains.SepoliaChainID:     {chains.SymbolUSDC: f.usdc, chains.SymbolMCHZ: mocks.NewToken(mchz.Address)},
				chains.ChilizSpicyChainID: {"PSG": f.psg},
			},
			Router:    router,
			Bridge:    f.bridge,
			Processor: &mocks.Processor{Addr: common.HexToAddress("0x04")},
		},
		saga.Wallets{Operator: f.operator, Float: f.float},
		saga.NewFixedDelay(time.Millisecond),
		f.webhooks,
		saga.Config{CallTimeout: time.Second},
		&logger.EmptyLogger{},
	)

	f.svc = New(Components{
		Quoter:       engine,
		Router:       router,
		Oracle:       fanTokenOracle,
		Bridge:       liquidity,
		Store:        f.store,
		Orchestrator: orchestrator,
		PriceCache:   oracle.NewPriceCache(time.Minute),
	}, &logger.EmptyLogger{})
	return f
}

func (f *fixture) request() CreateIntentRequest {
	return CreateIntentRequest{
		MerchantAddress: merchant,
		UserAddress:     f.buyer.Address.Hex(),
		FanTokenSymbol:  "PSG",
		FanTokenAmount:  "10",
		PaymentToken:    chains.SymbolUSDC,
	}
}

func TestCreateIntent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	quoted, err := f.svc.GetQuote(ctx, "PSG", "10", chains.SymbolUSDC)
	require.NoError(t, err)

	intent, err := f.svc.CreateIntent(ctx, f.request())
	require.NoError(t, err)

	assert.Regexp(t, `^pay_\d{13}_[0-9a-f]{9}$`, intent.ID)
	assert.Equal(t, models.IntentStatusCreated, intent.Status)
	assert.Equal(t, uint64(1), intent.Version)
	assert.Equal(t, common.HexToAddress(merchant), intent.MerchantAddress)
	assert.Equal(t, 0, quoted.PaymentTokenNeededBaseUnits.Cmp(intent.Quote.PaymentTokenNeededBaseUnits))
	assert.Equal(t, quoted.Route, intent.Quote.Route)
	for _, name := range models.StepOrder {
		assert.Equal(t, models.StepStatusPending, intent.Steps.Get(name).Status, name)
	}

	stored, err := f.svc.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, intent.ID, stored.ID)

	listed, err := f.svc.ListIntents(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestCreateIntentRejectsInvalidRequests(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		mutate func(r *CreateIntentRequest)
		target error
	}{
		{"bad merchant address", func(r *CreateIntentRequest) { r.MerchantAddress = "0x1234" }, ErrInvalidRequest},
		{"missing user address", func(r *CreateIntentRequest) { r.UserAddress = "" }, ErrInvalidRequest},
		{"non numeric amount", func(r *CreateIntentRequest) { r.FanTokenAmount = "ten" }, ErrInvalidRequest},
		{"unaccepted payment token", func(r *CreateIntentRequest) { r.PaymentToken = "DAI" }, ErrInvalidRequest},
		{"bad webhook url", func(r *CreateIntentRequest) { r.WebhookURLs = []string{"not a url"} }, ErrInvalidRequest},
		{"unlisted fan token", func(r *CreateIntentRequest) { r.FanTokenSymbol = "NOPE" }, quote.ErrUnsupportedToken},
		{"zero amount", func(r *CreateIntentRequest) { r.FanTokenAmount = "0" }, quote.ErrInvalidAmount},
		{"fractional fan token amount", func(r *CreateIntentRequest) { r.FanTokenAmount = "1.5" }, quote.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.request()
			tt.mutate(&req)
			_, err := f.svc.CreateIntent(context.Background(), req)
			assert.ErrorIs(t, err, tt.target)
		})
	}

	listed, err := f.svc.ListIntents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestCreateIntentSurfacesBridgeShortfall(t *testing.T) {
	f := newFixture(t)
	f.bridge.Available = big.NewInt(1)

	_, err := f.svc.CreateIntent(context.Background(), f.request())
	var qerr *quote.QuoteError
	require.True(t, errors.As(err, &qerr))
	assert.Equal(t, quote.KindInsufficientBridgeLiquidity, qerr.Kind)
	assert.NotEmpty(t, qerr.Needed)
}

func TestExecuteIntent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hooks := newHookReceiver(t)

	req := f.request()
	req.WebhookURLs = []string{hooks.server.URL}
	intent, err := f.svc.CreateIntent(ctx, req)
	require.NoError(t, err)

	require.NoError(t, f.svc.ExecuteIntent(ctx, intent.ID, nil))
	assert.ErrorIs(t, f.svc.ExecuteIntent(ctx, intent.ID, nil), ErrAlreadyExecuted)
	assert.ErrorIs(t, f.svc.ExecuteIntent(ctx, "pay_0_missing", nil), ErrNotFound)

	f.svc.Wait()
	f.webhooks.Wait()

	done, err := f.svc.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IntentStatusCompleted, done.Status)
	require.NotNil(t, done.FinalTransactionHash)
	assert.NoError(t, done.CheckConsistency())
	assert.Equal(t, big.NewInt(90), f.psg.Balance(f.float.Address))
	assert.Equal(t, big.NewInt(10), f.psg.Balance(common.HexToAddress(merchant)))

	events := hooks.Events()
	assert.Len(t, events, 9)
	assert.Contains(t, events, models.EventPaymentInitiated)
	assert.Contains(t, events, models.EventPaymentCompleted)
}

func TestFanTokenPrices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	prices, err := f.svc.FanTokenPrices(ctx)
	require.NoError(t, err)
	require.Len(t, prices, len(chains.FanTokens()))
	assert.Equal(t, "PSG", prices[0].Symbol)
	assert.Equal(t, "25", prices[0].FanTokensPerCHZ)

	// served from the cache while the DEX is down
	f.dex.Err = mocks.ErrMockFailure
	cached, err := f.svc.FanTokenPrices(ctx)
	require.NoError(t, err)
	assert.Equal(t, prices, cached)
}

func TestBridgeBalanceAndPools(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	balance, err := f.svc.BridgeBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, wei("1000000000000000000000"), balance)

	statuses := f.svc.ValidatePools(ctx)
	require.NotEmpty(t, statuses)
	assert.Equal(t, "USDC/MCHZ", statuses[0].Pair)
	assert.True(t, statuses[0].Healthy)
	for _, status := range statuses[1:] {
		assert.False(t, status.Exists, status.Pair)
	}
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.History(ctx, 10)
	assert.ErrorIs(t, err, ErrHistoryDisabled)

	mirror, err := store.OpenSQLiteMirror(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer mirror.Close()
	f.svc.history = mirror
	f.svc.store = store.WithMirror(f.store, mirror, &logger.EmptyLogger{})

	intent, err := f.svc.CreateIntent(ctx, f.request())
	require.NoError(t, err)

	records, err := f.svc.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, intent.ID, records[0].PaymentID)
	assert.Equal(t, string(models.IntentStatusCreated), records[0].Status)
}

type fakeReader struct {
	block    uint64
	blockErr error
	native   *big.Int
}

func (r *fakeReader) GetLatestBlockNumber(_ context.Context) (uint64, error) {
	return r.block, r.blockErr
}

func (r *fakeReader) NativeBalance(_ context.Context, _ common.Address) (*big.Int, error) {
	return r.native, nil
}

func TestChainStatuses(t *testing.T) {
	f := newFixture(t)
	assert.Error(t, f.svc.Ready())

	f.svc.monitors = []*chainMonitor{
		{
			chainID: chains.SepoliaChainID,
			rpcURL:  "https://rpc.sepolia",
			reader:  &fakeReader{block: 42, native: wei("1500000000000000000")},
			native:  "ETH",
			account: f.operator.Address,
			tokens:  map[string]chainclient.Token{chains.SymbolUSDC: f.usdc},
		},
		{
			chainID: chains.ChilizSpicyChainID,
			rpcURL:  "https://rpc.chiliz",
			reader:  &fakeReader{blockErr: mocks.ErrMockFailure},
			native:  chains.SymbolCHZ,
			account: f.float.Address,
		},
	}
	require.NoError(t, f.svc.Ready())

	statuses := f.svc.ChainStatuses(context.Background())
	require.Len(t, statuses, 2)

	assert.True(t, statuses[0].Connected)
	assert.Equal(t, uint64(42), statuses[0].LatestBlock)
	assert.Equal(t, "1.500000000000000000", statuses[0].Balances["ETH"])
	assert.Equal(t, "0.000000", statuses[0].Balances[chains.SymbolUSDC])

	assert.False(t, statuses[1].Connected)
	assert.NotEmpty(t, statuses[1].Error)
}
