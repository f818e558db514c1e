package saga

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/drift-pay/drift-gateway/pkg/chainclient"
	"github.com/drift-pay/drift-gateway/pkg/chains"
	"github.com/drift-pay/drift-gateway/pkg/logger"
	"github.com/ethereum/go-ethereum/common"
)

const (
	DefaultSettlementDelay     = 30 * time.Second
	DefaultConfirmationPoll    = 5 * time.Second
	DefaultConfirmationTimeout = 5 * time.Minute
)

// Delivery is a bridge transfer awaiting settlement on the destination chain
type Delivery struct {
	PaymentID string
	Recipient common.Address
	Amount    *big.Int
	// Baseline is the waiter's observation before the transfer, when it asked for one:
	// the recipient balance for PollingConfirmer, the destination chain head for EventConfirmer
	Baseline *big.Int
	// Bypassed is set when no transfer was submitted
	Bypassed bool
}

// SettlementWaiter blocks between the bridge transfer and the conversion.
// It returns an error only when ctx ends.
type SettlementWaiter interface {
	Wait(ctx context.Context, delivery Delivery) error
}

// BaselineObserver is implemented by waiters that need the recipient balance before the transfer
type BaselineObserver interface {
	Baseline(ctx context.Context, recipient common.Address) (*big.Int, error)
}

// FixedDelay waits a fixed time regardless of delivery
type FixedDelay struct {
	Delay time.Duration
}

var _ SettlementWaiter = (*FixedDelay)(nil)

// NewFixedDelay creates a waiter sleeping delay, DefaultSettlementDelay when zero
func NewFixedDelay(delay time.Duration) *FixedDelay {
	if delay <= 0 {
		delay = DefaultSettlementDelay
	}
	return &FixedDelay{Delay: delay}
}

func (w *FixedDelay) Wait(ctx context.Context, _ Delivery) error {
	timer := time.NewTimer(w.Delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PollingConfirmer polls the recipient's native balance on the destination chain until it
// has risen by the bridged amount. On deadline it proceeds and logs the unconfirmed delivery.
type PollingConfirmer struct {
	balances chainclient.BalanceReader
	interval time.Duration
	timeout  time.Duration
	logger   logger.Logger
}

var (
	_ SettlementWaiter = (*PollingConfirmer)(nil)
	_ BaselineObserver = (*PollingConfirmer)(nil)
)

// NewPollingConfirmer creates a confirmer over the destination chain balances
func NewPollingConfirmer(balances chainclient.BalanceReader, interval time.Duration, timeout time.Duration, logger logger.Logger) *PollingConfirmer {
	if interval <= 0 {
		interval = DefaultConfirmationPoll
	}
	if timeout <= 0 {
		timeout = DefaultConfirmationTimeout
	}
	return &PollingConfirmer{balances: balances, interval: interval, timeout: timeout, logger: logger}
}

func (w *PollingConfirmer) Baseline(ctx context.Context, recipient common.Address) (*big.Int, error) {
	return w.balances.NativeBalance(ctx, recipient)
}

func (w *PollingConfirmer) Wait(ctx context.Context, delivery Delivery) error {
	if delivery.Bypassed {
		w.logger.NoticeWithChain(chains.ChilizSpicyChainID, "Payment %s: bridge bypassed, nothing to confirm", delivery.PaymentID)
		return nil
	}

	baseline := delivery.Baseline
	if baseline == nil {
		baseline = big.NewInt(0)
	}
	target := new(big.Int).Add(baseline, delivery.Amount)

	deadline := time.NewTimer(w.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		balance, err := w.balances.NativeBalance(ctx, delivery.Recipient)
		if err != nil {
			w.logger.DebugWithChain(chains.ChilizSpicyChainID, "Payment %s: failed to read settlement balance: %v", delivery.PaymentID, err)
		} else if balance.Cmp(target) >= 0 {
			w.logger.InfoWithChain(chains.ChilizSpicyChainID, "Payment %s: bridge delivery confirmed", delivery.PaymentID)
			return nil
		}

		select {
		case <-ticker.C:
		case <-deadline.C:
			w.logger.NoticeWithChain(chains.ChilizSpicyChainID,
				"Payment %s: bridge delivery not confirmed after %s, proceeding", delivery.PaymentID, w.timeout)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// EventConfirmer watches the destination warp route for the ReceivedTransferRemote payout of each
// transfer. Each payout confirms at most one delivery. On deadline it proceeds and logs the
// unconfirmed delivery.
type EventConfirmer struct {
	feed     chainclient.DeliveryFeed
	origin   uint32
	interval time.Duration
	timeout  time.Duration
	logger   logger.Logger

	mu      sync.Mutex
	claimed map[common.Hash]bool
}

var (
	_ SettlementWaiter = (*EventConfirmer)(nil)
	_ BaselineObserver = (*EventConfirmer)(nil)
)

// NewEventConfirmer creates a confirmer over payouts bridged from the origin domain
func NewEventConfirmer(feed chainclient.DeliveryFeed, origin uint32, interval time.Duration, timeout time.Duration, logger logger.Logger) *EventConfirmer {
	if interval <= 0 {
		interval = DefaultConfirmationPoll
	}
	if timeout <= 0 {
		timeout = DefaultConfirmationTimeout
	}
	return &EventConfirmer{
		feed:     feed,
		origin:   origin,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
		claimed:  make(map[common.Hash]bool),
	}
}

// Baseline returns the destination chain head, payouts are searched from the block after it
func (w *EventConfirmer) Baseline(ctx context.Context, _ common.Address) (*big.Int, error) {
	block, err := w.feed.GetLatestBlockNumber(ctx)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetUint64(block), nil
}

func (w *EventConfirmer) Wait(ctx context.Context, delivery Delivery) error {
	if delivery.Bypassed {
		w.logger.NoticeWithChain(chains.ChilizSpicyChainID, "Payment %s: bridge bypassed, nothing to confirm", delivery.PaymentID)
		return nil
	}

	var fromBlock uint64
	if delivery.Baseline != nil {
		fromBlock = delivery.Baseline.Uint64() + 1
	} else if head, err := w.feed.GetLatestBlockNumber(ctx); err == nil {
		fromBlock = head
	}

	deadline := time.NewTimer(w.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		transfers, err := w.feed.ReceivedTransfers(ctx, fromBlock, w.origin, delivery.Recipient)
		if err != nil {
			w.logger.DebugWithChain(chains.ChilizSpicyChainID, "Payment %s: failed to read warp route payouts: %v", delivery.PaymentID, err)
		} else if transfer, ok := w.claim(transfers, delivery.Amount); ok {
			w.logger.InfoWithChain(chains.ChilizSpicyChainID, "Payment %s: bridge delivery confirmed by %s in block %d",
				delivery.PaymentID, transfer.TxHash.Hex(), transfer.Block)
			return nil
		}

		select {
		case <-ticker.C:
		case <-deadline.C:
			w.logger.NoticeWithChain(chains.ChilizSpicyChainID,
				"Payment %s: no warp route payout seen after %s, proceeding", delivery.PaymentID, w.timeout)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// claim takes the first unclaimed payout covering amount
func (w *EventConfirmer) claim(transfers []chainclient.ReceivedTransfer, amount *big.Int) (chainclient.ReceivedTransfer, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, transfer := range transfers {
		if w.claimed[transfer.TxHash] || transfer.Amount.Cmp(amount) < 0 {
			continue
		}
		w.claimed[transfer.TxHash] = true
		return transfer, true
	}
	return chainclient.ReceivedTransfer{}, false
}
