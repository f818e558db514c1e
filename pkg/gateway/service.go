package gateway

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/drift-pay/drift-gateway/pkg/chainclient"
	"github.com/drift-pay/drift-gateway/pkg/health"
	"github.com/drift-pay/drift-gateway/pkg/logger"
	"github.com/drift-pay/drift-gateway/pkg/metrics"
	"github.com/drift-pay/drift-gateway/pkg/models"
	"github.com/drift-pay/drift-gateway/pkg/oracle"
	"github.com/drift-pay/drift-gateway/pkg/quote"
	"github.com/drift-pay/drift-gateway/pkg/saga"
	"github.com/drift-pay/drift-gateway/pkg/store"
	"github.com/drift-pay/drift-gateway/pkg/webhook"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// priceListingKey caches the full DEX listing
const priceListingKey = "all"

var (
	// ErrInvalidRequest is returned when a create request fails validation
	ErrInvalidRequest = errors.New("invalid payment request")
	// ErrAlreadyExecuted is returned when executing an intent that is no longer created
	ErrAlreadyExecuted = saga.ErrAlreadyExecuted
	// ErrNotFound is returned for an unknown payment id
	ErrNotFound = store.ErrNotFound
	// ErrHistoryDisabled is returned when no transaction mirror is configured
	ErrHistoryDisabled = errors.New("transaction mirror is disabled")
)

// CreateIntentRequest is the input of CreateIntent
type CreateIntentRequest struct {
	MerchantAddress string   `json:"merchantAddress" validate:"required,eth_addr"`
	UserAddress     string   `json:"userAddress" validate:"required,eth_addr"`
	FanTokenSymbol  string   `json:"fanTokenSymbol" validate:"required,alphanum,max=10"`
	FanTokenAmount  string   `json:"fanTokenAmount" validate:"required,numeric"`
	PaymentToken    string   `json:"paymentToken" validate:"required,oneof=USDC USDT"`
	WebhookURLs     []string `json:"webhookUrls,omitempty" validate:"omitempty,max=10,dive,required,url"`
}

// Components are the collaborators a Service drives
type Components struct {
	Quoter       quote.Quoter
	Router       chainclient.Router
	Oracle       *oracle.FanTokenOracle
	Bridge       *oracle.BridgeLiquidity
	Store        store.Store
	Orchestrator *saga.Orchestrator
	PriceCache   *oracle.PriceCache
	// History serves status --history, nil when the mirror is disabled
	History *store.SQLiteMirror
}

// Service is the payment gateway boundary: quotes, intents and their execution
type Service struct {
	quoter       quote.Quoter
	router       chainclient.Router
	oracle       *oracle.FanTokenOracle
	bridge       *oracle.BridgeLiquidity
	store        store.Store
	orchestrator *saga.Orchestrator
	prices       *oracle.PriceCache
	history      *store.SQLiteMirror
	validate     *validator.Validate
	logger       logger.Logger
	now          func() time.Time

	// set by NewService only
	monitors    []*chainMonitor
	clients     []*chainclient.Client
	gasRoutines []*chainclient.GasPriceRoutine
	webhooks    *webhook.Service
	mirror      *store.AsyncMirror
	healthSrv   *health.Server
}

// New creates a service over already built components
func New(c Components, logger logger.Logger) *Service {
	prices := c.PriceCache
	if prices == nil {
		prices = oracle.NewPriceCache(0)
	}
	return &Service{
		quoter:       c.Quoter,
		router:       c.Router,
		oracle:       c.Oracle,
		bridge:       c.Bridge,
		store:        c.Store,
		orchestrator: c.Orchestrator,
		prices:       prices,
		history:      c.History,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		logger:       logger,
		now:          time.Now,
	}
}

// GetQuote prices a fan-token purchase from fresh chain reads
func (s *Service) GetQuote(ctx context.Context, fanTokenSymbol string, fanTokenAmount string, paymentTokenSymbol string) (*models.PaymentQuote, error) {
	return s.quoter.Quote(ctx, fanTokenSymbol, fanTokenAmount, paymentTokenSymbol)
}

// CreateIntent validates the request, quotes it and stores a created intent
func (s *Service) CreateIntent(ctx context.Context, req CreateIntentRequest) (*models.PaymentIntent, error) {
	if err := s.validate.StructCtx(ctx, req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	paymentQuote, err := s.quoter.Quote(ctx, req.FanTokenSymbol, req.FanTokenAmount, req.PaymentToken)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	intent := &models.PaymentIntent{
		ID:              newPaymentID(now),
		MerchantAddress: common.HexToAddress(req.MerchantAddress),
		UserAddress:     common.HexToAddress(req.UserAddress),
		FanTokenSymbol:  paymentQuote.FanTokenSymbol,
		FanTokenAmount:  paymentQuote.FanTokenAmount,
		PaymentToken:    paymentQuote.PaymentToken,
		Quote:           *paymentQuote,
		Status:          models.IntentStatusCreated,
		Steps:           models.NewStepMap(),
		CreatedAt:       now,
		WebhookURLs:     append([]string(nil), req.WebhookURLs...),
	}

	stored, err := s.store.Put(ctx, intent)
	if err != nil {
		return nil, fmt.Errorf("failed to store intent %s: %w", intent.ID, err)
	}
	metrics.IntentsTotal.WithLabelValues(string(models.IntentStatusCreated)).Inc()
	s.logger.Info("Created payment %s: %s %s for %s %s via %s", stored.ID,
		stored.FanTokenAmount, stored.FanTokenSymbol, paymentQuote.PaymentTokenNeeded, stored.PaymentToken, paymentQuote.Route)
	return stored, nil
}

// ExecuteIntent starts the saga of a created intent and returns immediately.
// buyer signs the user payment when set, otherwise the operator pulls the approved amount.
func (s *Service) ExecuteIntent(ctx context.Context, paymentID string, buyer *chainclient.Wallet) error {
	return s.orchestrator.Execute(ctx, paymentID, buyer)
}

// GetIntent returns a snapshot of an intent
func (s *Service) GetIntent(ctx context.Context, paymentID string) (*models.PaymentIntent, error) {
	return s.store.Get(ctx, paymentID)
}

// ListIntents returns every intent held in memory, oldest first
func (s *Service) ListIntents(ctx context.Context) ([]*models.PaymentIntent, error) {
	return s.store.List(ctx)
}

// History returns the newest mirrored transactions
func (s *Service) History(ctx context.Context, limit int) ([]models.TransactionRecord, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.List(ctx, limit)
}

// Record returns the mirrored row of a payment, including payments of earlier runs
func (s *Service) Record(ctx context.Context, paymentID string) (models.TransactionRecord, error) {
	if s.history == nil {
		return models.TransactionRecord{}, ErrHistoryDisabled
	}
	return s.history.Load(ctx, paymentID)
}

// BridgeBalance returns the MCHZ collateral locked in the bridge
func (s *Service) BridgeBalance(ctx context.Context) (*big.Int, error) {
	return s.bridge.Available(ctx)
}

// FanTokenPrices lists the DEX rate of every fan token for one CHZ
func (s *Service) FanTokenPrices(ctx context.Context) ([]oracle.FanTokenPrice, error) {
	if prices, ok := s.prices.Get(priceListingKey); ok {
		return prices, nil
	}
	prices, err := s.oracle.AllPrices(ctx, oracle.OneCHZ())
	if err != nil {
		return nil, fmt.Errorf("failed to list fan token prices: %w", err)
	}
	s.prices.Set(priceListingKey, prices)
	return prices, nil
}

// ValidatePools reports the state of every pair a payment can route through
func (s *Service) ValidatePools(ctx context.Context) []quote.PoolStatus {
	return quote.ValidatePools(ctx, s.router)
}

// Wait blocks until every running saga has finished
func (s *Service) Wait() {
	s.orchestrator.Wait()
}

// newPaymentID returns pay_<unix-ms>_<random>
func newPaymentID(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("pay_%d_%s", now.UnixMilli(), random[:9])
}
