package saga

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/drift-pay/drift-gateway/pkg/chainclient"
	"github.com/drift-pay/drift-gateway/pkg/chains"
	"github.com/drift-pay/drift-gateway/pkg/logger"
	"github.com/drift-pay/drift-gateway/pkg/metrics"
	"github.com/drift-pay/drift-gateway/pkg/models"
	"github.com/drift-pay/drift-gateway/pkg/store"
)

const (
	DefaultCallTimeout      = 45 * time.Second
	DefaultSwapToleranceBps = 500
	DefaultSwapDeadline     = 20 * time.Minute
)

// Notifier receives every step transition
type Notifier interface {
	Notify(intent *models.PaymentIntent, step models.StepName, status models.StepStatus, txHash string, err error)
}

// Tokens resolves token adapters by chain and symbol
type Tokens interface {
	Token(chainID int, symbol string) (chainclient.Token, error)
}

// TokenMap is a Tokens backed by a map of chain ID to symbol to token
type TokenMap map[int]map[string]chainclient.Token

func (m TokenMap) Token(chainID int, symbol string) (chainclient.Token, error) {
	token, ok := m[chainID][symbol]
	if !ok {
		return nil, fmt.Errorf("no token %s on chain %d", symbol, chainID)
	}
	return token, nil
}

// Contracts are the chain adapters a saga drives
type Contracts struct {
	Tokens    Tokens
	Router    chainclient.Router
	Bridge    chainclient.Bridge
	Processor chainclient.Processor
}

// Wallets are the shared signing wallets. Float holds pre-funded fan tokens on the destination chain.
type Wallets struct {
	Operator *chainclient.Wallet
	Float    *chainclient.Wallet
}

// Config holds the saga parameters
type Config struct {
	SwapToleranceBps int64
	BridgeGasValue   *big.Int
	CallTimeout      time.Duration
	SwapDeadline     time.Duration
	// DestinationChainID is the chain the bridge delivers to, Chiliz Spicy when zero
	DestinationChainID int
}

// Orchestrator runs payment sagas, mutating intents only through the store
type Orchestrator struct {
	store     store.Store
	contracts Contracts
	wallets   Wallets
	waiter    SettlementWaiter
	notifier  Notifier
	config    Config
	logger    logger.Logger
	now       func() time.Time

	wg sync.WaitGroup
}

// NewOrchestrator creates a new saga orchestrator
func NewOrchestrator(
	intents store.Store,
	contracts Contracts,
	wallets Wallets,
	waiter SettlementWaiter,
	notifier Notifier,
	config Config,
	logger logger.Logger,
) *Orchestrator {
	if config.CallTimeout <= 0 {
		config.CallTimeout = DefaultCallTimeout
	}
	if config.SwapDeadline <= 0 {
		config.SwapDeadline = DefaultSwapDeadline
	}
	if config.DestinationChainID == 0 {
		config.DestinationChainID = chains.ChilizSpicyChainID
	}
	if config.BridgeGasValue == nil {
		config.BridgeGasValue = big.NewInt(1_000_000_000_000_000) // 0.001 ETH
	}
	if wallets.Float == nil {
		wallets.Float = wallets.Operator
	}
	return &Orchestrator{
		store:     intents,
		contracts: contracts,
		wallets:   wallets,
		waiter:    waiter,
		notifier:  notifier,
		config:    config,
		logger:    logger,
		now:       time.Now,
	}
}

// Execute moves a created intent to processing and runs its saga in the background.
// buyer signs the user payment when set; otherwise the operator pulls the approved amount.
func (o *Orchestrator) Execute(ctx context.Context, paymentID string, buyer *chainclient.Wallet) error {
	intent, err := store.Update(ctx, o.store, paymentID, func(intent *models.PaymentIntent) error {
		if intent.Status != models.IntentStatusCreated {
			return fmt.Errorf("%s is %s: %w", paymentID, intent.Status, ErrAlreadyExecuted)
		}
		if _, _, err := fanTokenUnits(intent); err != nil {
			return err
		}
		intent.Status = models.IntentStatusProcessing
		return nil
	})
	if err != nil {
		return err
	}
	metrics.IntentsTotal.WithLabelValues(string(models.IntentStatusProcessing)).Inc()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.run(context.WithoutCancel(ctx), intent, buyer)
	}()
	return nil
}

// Wait blocks until every running saga has finished
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// stageResult is the outcome of a stage that did not fail
type stageResult struct {
	txHash   string
	fallback models.Fallback
	cause    error
}

func (o *Orchestrator) run(ctx context.Context, intent *models.PaymentIntent, buyer *chainclient.Wallet) {
	start := time.Now()
	metrics.ActiveSagas.Inc()
	defer metrics.ActiveSagas.Dec()

	o.logger.Info("Payment %s: starting saga for %s %s paid in %s",
		intent.ID, intent.FanTokenAmount, intent.FanTokenSymbol, intent.PaymentToken)

	status := o.runStages(ctx, intent, buyer)

	metrics.SagaDuration.WithLabelValues(string(status)).Observe(time.Since(start).Seconds())
	metrics.IntentsTotal.WithLabelValues(string(status)).Inc()
	o.logger.Info("Payment %s: saga finished as %s in %s", intent.ID, status, time.Since(start).Round(time.Millisecond))
}

func (o *Orchestrator) runStages(ctx context.Context, intent *models.PaymentIntent, buyer *chainclient.Wallet) models.IntentStatus {
	id := intent.ID
	stages := []struct {
		name models.StepName
		run  func(ctx context.Context, intent *models.PaymentIntent) (stageResult, error)
	}{
		{models.StepUserPayment, func(ctx context.Context, intent *models.PaymentIntent) (stageResult, error) {
			return o.userPayment(ctx, intent, buyer)
		}},
		{models.StepUniswapSwap, o.uniswapSwap},
		{models.StepBridgeTransfer, o.bridgeTransfer},
	}

	var (
		bridged  stageResult
		baseline *big.Int
	)
	for _, stage := range stages {
		current, err := o.beginStep(ctx, id, stage.name)
		if err != nil {
			return o.abort(ctx, id, stage.name, err)
		}
		if stage.name == models.StepBridgeTransfer {
			baseline = o.observeBaseline(ctx, current)
		}

		result, err := stage.run(ctx, current)
		if err != nil {
			return o.failStep(ctx, id, stage.name, err)
		}
		if intent, err = o.completeStep(ctx, id, stage.name, result); err != nil {
			return o.abort(ctx, id, stage.name, err)
		}
		bridged = result
	}

	delivery := Delivery{
		PaymentID: id,
		Recipient: o.contracts.Processor.Address(),
		Amount:    intent.Quote.ChzNeededWei,
		Baseline:  baseline,
		Bypassed:  bridged.fallback == models.FallbackBypassed,
	}
	if err := o.waiter.Wait(ctx, delivery); err != nil {
		return o.failStep(ctx, id, models.StepFanTokenConversion,
			stageError(models.StepFanTokenConversion, KindInterrupted, err, "settlement wait interrupted"))
	}

	current, err := o.beginStep(ctx, id, models.StepFanTokenConversion)
	if err != nil {
		return o.abort(ctx, id, models.StepFanTokenConversion, err)
	}
	result, err := o.fanTokenConversion(ctx, current)
	if err != nil {
		return o.failStep(ctx, id, models.StepFanTokenConversion, err)
	}
	if _, err := o.completePayment(ctx, id, result); err != nil {
		return o.abort(ctx, id, models.StepMerchantPayment, err)
	}
	return models.IntentStatusCompleted
}

// observeBaseline asks the waiter for the recipient balance before bridging, if it wants one
func (o *Orchestrator) observeBaseline(ctx context.Context, intent *models.PaymentIntent) *big.Int {
	observer, ok := o.waiter.(BaselineObserver)
	if !ok {
		return nil
	}
	callCtx, cancel := o.callContext(ctx)
	defer cancel()
	baseline, err := observer.Baseline(callCtx, o.contracts.Processor.Address())
	if err != nil {
		o.logger.Error("Payment %s: failed to read settlement baseline: %v", intent.ID, err)
		return nil
	}
	return baseline
}

func (o *Orchestrator) beginStep(ctx context.Context, id string, name models.StepName) (*models.PaymentIntent, error) {
	intent, err := store.Update(ctx, o.store, id, func(intent *models.PaymentIntent) error {
		now := o.now()
		step := intent.Steps.Get(name)
		step.Status = models.StepStatusProcessing
		step.StartedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	o.notifier.Notify(intent, name, models.StepStatusProcessing, "", nil)
	return intent, nil
}

func (o *Orchestrator) completeStep(ctx context.Context, id string, name models.StepName, result stageResult) (*models.PaymentIntent, error) {
	intent, err := store.Update(ctx, o.store, id, func(intent *models.PaymentIntent) error {
		now := o.now()
		applyResult(intent.Steps.Get(name), result, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	o.recordOutcome(intent.ID, name, result)
	o.notifier.Notify(intent, name, models.StepStatusCompleted, result.txHash, nil)
	return intent, nil
}

// completePayment completes the conversion and the merchant payment in a single write
func (o *Orchestrator) completePayment(ctx context.Context, id string, result stageResult) (*models.PaymentIntent, error) {
	intent, err := store.Update(ctx, o.store, id, func(intent *models.PaymentIntent) error {
		now := o.now()
		applyResult(&intent.Steps.FanTokenConversion, result, now)

		merchant := &intent.Steps.MerchantPayment
		merchant.Status = models.StepStatusCompleted
		merchant.StartedAt = &now
		merchant.CompletedAt = &now
		merchant.TransactionHash = result.txHash
		merchant.ViaFallback = result.fallback != models.FallbackNone
		merchant.Fallback = result.fallback

		intent.FinalTransactionHash = nil
		if result.txHash != "" {
			hash := result.txHash
			intent.FinalTransactionHash = &hash
		}
		intent.Status = models.IntentStatusCompleted
		intent.CompletedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	o.recordOutcome(intent.ID, models.StepFanTokenConversion, result)
	metrics.StageOutcomes.WithLabelValues(string(models.StepMerchantPayment), string(models.StepStatusCompleted)).Inc()
	o.notifier.Notify(intent, models.StepFanTokenConversion, models.StepStatusCompleted, result.txHash, nil)
	o.notifier.Notify(intent, models.StepMerchantPayment, models.StepStatusCompleted, result.txHash, nil)
	return intent, nil
}

func applyResult(step *models.Step, result stageResult, now time.Time) {
	step.Status = models.StepStatusCompleted
	step.TransactionHash = result.txHash
	step.ViaFallback = result.fallback != models.FallbackNone
	step.Fallback = result.fallback
	step.CompletedAt = &now
}

func (o *Orchestrator) recordOutcome(id string, name models.StepName, result stageResult) {
	metrics.StageOutcomes.WithLabelValues(string(name), string(models.StepStatusCompleted)).Inc()
	if result.fallback == models.FallbackNone {
		o.logger.Info("Payment %s: %s completed (tx %s)", id, name, result.txHash)
		return
	}
	metrics.StageFallbacks.WithLabelValues(string(name), string(result.fallback)).Inc()
	o.logger.Notice("Payment %s: %v", id, &StageFallbackTriggered{Stage: name, Fallback: result.fallback, Cause: result.cause})
}

// failStep fails the step and the intent, halting the saga
func (o *Orchestrator) failStep(ctx context.Context, id string, name models.StepName, cause error) models.IntentStatus {
	o.logger.Error("Payment %s: %v", id, cause)
	metrics.StageOutcomes.WithLabelValues(string(name), string(models.StepStatusFailed)).Inc()

	intent, err := store.Update(ctx, o.store, id, func(intent *models.PaymentIntent) error {
		step := intent.Steps.Get(name)
		step.Status = models.StepStatusFailed
		step.Error = cause.Error()
		intent.Status = models.IntentStatusFailed
		intent.Error = cause.Error()
		return nil
	})
	if err != nil {
		o.logger.Error("Payment %s: failed to record %s failure: %v", id, name, err)
		return models.IntentStatusFailed
	}
	o.notifier.Notify(intent, name, models.StepStatusFailed, "", cause)
	return models.IntentStatusFailed
}

// abort handles a store write that failed mid-saga
func (o *Orchestrator) abort(ctx context.Context, id string, name models.StepName, err error) models.IntentStatus {
	if errors.Is(err, store.ErrNotFound) {
		o.logger.Error("Payment %s: cannot persist %s: %v", id, name, err)
		return models.IntentStatusFailed
	}
	return o.failStep(ctx, id, name, fmt.Errorf("failed to persist %s: %w", name, err))
}

func (o *Orchestrator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.config.CallTimeout)
}
