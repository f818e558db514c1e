package gateway

import (
	"context"
	"fmt"

	"github.com/drift-pay/drift-gateway/pkg/blockchain"
	"github.com/drift-pay/drift-gateway/pkg/chainclient"
	"github.com/drift-pay/drift-gateway/pkg/chains"
	"github.com/drift-pay/drift-gateway/pkg/circuitbreaker"
	"github.com/drift-pay/drift-gateway/pkg/config"
	"github.com/drift-pay/drift-gateway/pkg/health"
	"github.com/drift-pay/drift-gateway/pkg/logger"
	"github.com/drift-pay/drift-gateway/pkg/oracle"
	"github.com/drift-pay/drift-gateway/pkg/quote"
	"github.com/drift-pay/drift-gateway/pkg/saga"
	"github.com/drift-pay/drift-gateway/pkg/store"
	"github.com/drift-pay/drift-gateway/pkg/webhook"
	"github.com/ethereum/go-ethereum/common"
)

// NewService connects to both chains and wires the gateway from configuration
func NewService(ctx context.Context, cfg *config.Config, logger logger.Logger) (*Service, error) {
	nonces := blockchain.NewNonceManager(logger)

	source, err := chainclient.New(ctx, cfg.Source.ChainID, cfg.Source.RPCURL,
		cfg.Source.GasMultiplier, cfg.Saga.CallTimeout, nonces, logger)
	if err != nil {
		return nil, err
	}
	destination, err := chainclient.New(ctx, cfg.Destination.ChainID, cfg.Destination.RPCURL,
		cfg.Destination.GasMultiplier, cfg.Saga.CallTimeout, nonces, logger)
	if err != nil {
		source.Close()
		return nil, err
	}
	clients := []*chainclient.Client{source, destination}

	svc, err := wire(cfg, source, destination, logger)
	if err != nil {
		for _, client := range clients {
			client.Close()
		}
		return nil, err
	}
	svc.clients = clients
	for _, client := range clients {
		svc.gasRoutines = append(svc.gasRoutines, chainclient.NewGasPriceRoutine(ctx, client, cfg.GasUpdateInterval))
	}
	return svc, nil
}

func wire(cfg *config.Config, source *chainclient.Client, destination *chainclient.Client, logger logger.Logger) (*Service, error) {
	operator, err := chainclient.NewWallet(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid operator key: %v", err)
	}
	float, err := chainclient.NewWallet(cfg.FloatPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid float key: %v", err)
	}

	tokens, err := bindTokens(source, destination)
	if err != nil {
		return nil, err
	}

	router, err := chainclient.NewUniswapV2Router(source,
		common.HexToAddress(cfg.Contracts.UniswapV2Router), addressOrZero(cfg.Contracts.UniswapV2Factory))
	if err != nil {
		return nil, err
	}
	bridge, err := chainclient.NewWarpBridge(source, common.HexToAddress(cfg.Contracts.HyperlaneWarpMCHZ))
	if err != nil {
		return nil, err
	}
	dex, err := chainclient.NewChilizDEX(destination, common.HexToAddress(cfg.Contracts.ChilizDEX))
	if err != nil {
		return nil, err
	}
	processor, err := chainclient.NewPaymentProcessor(destination, common.HexToAddress(cfg.Contracts.PaymentProcessor))
	if err != nil {
		return nil, err
	}

	fanTokenOracle := oracle.NewFanTokenOracle(dex)
	liquidity := oracle.NewBridgeLiquidity(bridge)

	var quoter quote.Quoter
	if cfg.Pricing.Mode == config.PricingModeFixed {
		quoter = quote.NewFixedRatePricer(quote.DefaultFixedRates(), liquidity, cfg.Pricing.SlippageBps, logger)
	} else {
		quoter = quote.NewEngine(router, fanTokenOracle, liquidity, quote.EngineConfig{
			FeeNumerator:   cfg.Pricing.FeeNumerator,
			FeeDenominator: cfg.Pricing.FeeDenominator,
			SlippageBps:    cfg.Pricing.SlippageBps,
		}, logger)
	}

	var (
		intents store.Store = store.NewMemoryStore()
		history *store.SQLiteMirror
		mirror  *store.AsyncMirror
	)
	if cfg.MirrorDBPath != "" {
		history, err = store.OpenSQLiteMirror(cfg.MirrorDBPath)
		if err != nil {
			return nil, err
		}
		mirror = store.NewAsyncMirror(history, store.DefaultMirrorQueueSize, logger)
		intents = store.WithMirror(intents, mirror, logger)
	}

	breakers := circuitbreaker.NewRegistry(
		cfg.CircuitBreaker.Enabled,
		cfg.CircuitBreaker.Threshold,
		cfg.CircuitBreaker.WindowDuration,
		cfg.CircuitBreaker.ResetTimeout,
		logger,
	)
	webhooks := webhook.NewService(cfg.Webhook.Timeout, webhook.RetryPolicy{
		MaxAttempts: cfg.Webhook.MaxAttempts,
		Backoff:     cfg.Webhook.RetryDelay,
		Critical:    webhook.IsCritical,
	}, breakers, logger)

	var waiter saga.SettlementWaiter
	switch cfg.Saga.Confirmation {
	case config.ConfirmationPoll:
		waiter = saga.NewPollingConfirmer(destination, saga.DefaultConfirmationPoll, cfg.Saga.ConfirmationTimeout, logger)
	case config.ConfirmationEvent:
		receiver, err := chainclient.NewWarpReceiver(destination, common.HexToAddress(cfg.Contracts.HyperlaneWarpCHZ))
		if err != nil {
			return nil, err
		}
		origin, ok := chains.GetHyperlaneDomain(source.ChainID)
		if !ok {
			return nil, fmt.Errorf("no Hyperlane domain for chain %d", source.ChainID)
		}
		waiter = saga.NewEventConfirmer(receiver, origin, saga.DefaultConfirmationPoll, cfg.Saga.ConfirmationTimeout, logger)
	default:
		waiter = saga.NewFixedDelay(cfg.Saga.SettlementDelay)
	}

	orchestrator := saga.NewOrchestrator(
		intents,
		saga.Contracts{Tokens: tokens, Router: router, Bridge: bridge, Processor: processor},
		saga.Wallets{Operator: operator, Float: float},
		waiter,
		webhooks,
		saga.Config{
			SwapToleranceBps: cfg.Saga.SwapToleranceBps,
			BridgeGasValue:   cfg.Saga.BridgeGasValue,
			CallTimeout:      cfg.Saga.CallTimeout,

			DestinationChainID: cfg.Destination.ChainID,
		},
		logger,
	)

	svc := New(Components{
		Quoter:       quoter,
		Router:       router,
		Oracle:       fanTokenOracle,
		Bridge:       liquidity,
		Store:        intents,
		Orchestrator: orchestrator,
		PriceCache:   oracle.NewPriceCache(cfg.PriceCacheTTL),
		History:      history,
	}, logger)
	svc.webhooks = webhooks
	svc.mirror = mirror
	svc.monitors = []*chainMonitor{
		newChainMonitor(source, "ETH", operator.Address, tokens[chains.SepoliaChainID]),
		newChainMonitor(destination, chains.SymbolCHZ, float.Address, tokens[chains.ChilizSpicyChainID]),
	}
	svc.healthSrv = health.NewServer(cfg.MetricsPort, svc, breakers, cfg.MetricsAPIKey, logger)

	logger.Info("Gateway wired: %s pricing, %s settlement, operator %s, float %s",
		quoter.Mode(), cfg.Saga.Confirmation, operator.Address.Hex(), float.Address.Hex())
	return svc, nil
}

// bindTokens binds every registered ERC-20 of both chains
func bindTokens(source *chainclient.Client, destination *chainclient.Client) (saga.TokenMap, error) {
	tokens := make(saga.TokenMap)
	for _, client := range []*chainclient.Client{source, destination} {
		tokens[client.ChainID] = make(map[string]chainclient.Token)
		for _, token := range chains.TokensForChain(client.ChainID) {
			if token.Address == (common.Address{}) {
				continue
			}
			bound, err := chainclient.NewERC20Token(client, token.Address)
			if err != nil {
				return nil, err
			}
			tokens[client.ChainID][token.Symbol] = bound
		}
	}
	return tokens, nil
}

func addressOrZero(address string) common.Address {
	if address == "" {
		return common.Address{}
	}
	return common.HexToAddress(address)
}

// Start runs the health server and the gas price routines until ctx is cancelled
func (s *Service) Start(ctx context.Context) {
	if s.healthSrv != nil {
		go s.healthSrv.Start(ctx)
	}
	for _, routine := range s.gasRoutines {
		routine.Start()
	}

	s.logger.Info("Payment gateway started in %s pricing mode", s.quoter.Mode())
	<-ctx.Done()
	s.logger.Info("Context cancelled, shutting down gateway")

	for _, routine := range s.gasRoutines {
		routine.Stop()
	}
}

// Close waits for running sagas and their webhooks, then releases the mirror and the chain connections
func (s *Service) Close() {
	s.orchestrator.Wait()
	if s.webhooks != nil {
		s.webhooks.Wait()
	}
	if s.mirror != nil {
		s.mirror.Close()
	}
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			s.logger.Error("Failed to close transaction mirror: %v", err)
		}
	}
	for _, client := range s.clients {
		client.Close()
	}
}
