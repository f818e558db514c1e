package blockchain

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/drift-pay/drift-gateway/pkg/logger"
	"github.com/ethereum/go-ethereum/common"
)

// TransactionStatus represents the status of a transaction
type TransactionStatus int

const (
	// TxPending indicates transaction is pending
	TxPending TransactionStatus = iota
	// TxConfirmed indicates transaction is confirmed
	TxConfirmed
	// TxFailed indicates transaction has failed
	TxFailed
	// TxTimedOut indicates transaction has timed out
	TxTimedOut
)

// resyncInterval forces a refresh of the local counter from the node
const resyncInterval = 5 * time.Minute

// NonceSource reads the pending nonce of an account, satisfied by *ethclient.Client
type NonceSource interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// TransactionRecord tracks details about a transaction
type TransactionRecord struct {
	Hash      common.Hash
	Nonce     uint64
	CreatedAt time.Time
	UpdatedAt time.Time
	Status    TransactionStatus
}

// accountKey identifies a signing wallet on a chain
type accountKey struct {
	chainID int
	address common.Address
}

// NonceManager allocates nonces for wallets shared by concurrent sagas
type NonceManager struct {
	accounts  map[accountKey]*accountNonceData
	mu        sync.RWMutex
	txTimeout time.Duration
	logger    logger.Logger
}

// accountNonceData holds nonce data for a specific wallet
type accountNonceData struct {
	// Next nonce to hand out
	currentNonce uint64
	// Map of pending transactions by nonce
	pendingTxs map[uint64]*TransactionRecord
	// Last time nonce was synchronized with the blockchain
	lastSync time.Time
	mu       sync.Mutex
}

// NewNonceManager creates a new nonce manager
func NewNonceManager(logger logger.Logger) *NonceManager {
	return &NonceManager{
		accounts:  make(map[accountKey]*accountNonceData),
		txTimeout: 5 * time.Minute,
		logger:    logger,
	}
}

// SetTransactionTimeout sets the timeout for transactions
func (nm *NonceManager) SetTransactionTimeout(timeout time.Duration) {
	nm.txTimeout = timeout
}

// account returns the data for a wallet, creating it on first use
func (nm *NonceManager) account(chainID int, address common.Address) *accountNonceData {
	key := accountKey{chainID: chainID, address: address}

	nm.mu.RLock()
	data, exists := nm.accounts[key]
	nm.mu.RUnlock()
	if exists {
		return data
	}

	nm.mu.Lock()
	defer nm.mu.Unlock()
	if data, exists = nm.accounts[key]; !exists {
		data = &accountNonceData{pendingTxs: make(map[uint64]*TransactionRecord)}
		nm.accounts[key] = data
	}
	return data
}

// GetNonce reserves and returns the next available nonce for a wallet
func (nm *NonceManager) GetNonce(ctx context.Context, chainID int, source NonceSource, address common.Address) (uint64, error) {
	data := nm.account(chainID, address)

	data.mu.Lock()
	defer data.mu.Unlock()

	if data.lastSync.IsZero() || time.Since(data.lastSync) > resyncInterval {
		nonce, err := source.PendingNonceAt(ctx, address)
		if err != nil {
			return 0, fmt.Errorf("failed to get pending nonce: %w", err)
		}

		// If our tracked nonce is behind, update it
		if nonce > data.currentNonce {
			nm.logger.DebugWithChain(chainID, "Updating nonce for %s: %d -> %d", address.Hex(), data.currentNonce, nonce)
			data.currentNonce = nonce
		}
		data.lastSync = time.Now()
	}

	nonce := data.currentNonce
	data.currentNonce++
	return nonce, nil
}

// TrackTransaction records a new transaction
func (nm *NonceManager) TrackTransaction(chainID int, address common.Address, txHash common.Hash, nonce uint64) {
	data := nm.account(chainID, address)

	data.mu.Lock()
	defer data.mu.Unlock()

	now := time.Now()
	data.pendingTxs[nonce] = &TransactionRecord{
		Hash:      txHash,
		Nonce:     nonce,
		CreatedAt: now,
		UpdatedAt: now,
		Status:    TxPending,
	}
	nm.logger.DebugWithChain(chainID, "Tracking transaction for %s with nonce %d: %s", address.Hex(), nonce, txHash.Hex())
}

// MarkTransactionConfirmed marks a transaction as confirmed
func (nm *NonceManager) MarkTransactionConfirmed(chainID int, address common.Address, nonce uint64) bool {
	data := nm.account(chainID, address)

	data.mu.Lock()
	defer data.mu.Unlock()

	tx, exists := data.pendingTxs[nonce]
	if !exists {
		return false
	}

	tx.Status = TxConfirmed
	tx.UpdatedAt = time.Now()
	delete(data.pendingTxs, nonce)
	return true
}

// ReleaseNonce gives back a nonce whose transaction was never broadcast or failed.
// The nonce is reused only when no higher nonce has been handed out since,
// otherwise the next GetNonce after a resync picks up the gap.
func (nm *NonceManager) ReleaseNonce(chainID int, address common.Address, nonce uint64) bool {
	data := nm.account(chainID, address)

	data.mu.Lock()
	defer data.mu.Unlock()

	if tx, exists := data.pendingTxs[nonce]; exists {
		tx.Status = TxFailed
		delete(data.pendingTxs, nonce)
	}

	if data.currentNonce == nonce+1 {
		data.currentNonce = nonce
		nm.logger.DebugWithChain(chainID, "Reusing nonce %d for %s", nonce, address.Hex())
		return true
	}

	// A gap was left behind, force a resync on next allocation
	data.lastSync = time.Time{}
	return false
}

// FindTimeoutTransactions returns the nonces of transactions pending longer than the timeout
func (nm *NonceManager) FindTimeoutTransactions(chainID int, address common.Address) []uint64 {
	data := nm.account(chainID, address)

	data.mu.Lock()
	defer data.mu.Unlock()

	now := time.Now()
	var timedOutNonces []uint64
	for nonce, tx := range data.pendingTxs {
		if tx.Status == TxPending && now.Sub(tx.CreatedAt) > nm.txTimeout {
			tx.Status = TxTimedOut
			tx.UpdatedAt = now
			nm.logger.NoticeWithChain(chainID, "Transaction timed out for %s, nonce %d: %s", address.Hex(), nonce, tx.Hash.Hex())
			timedOutNonces = append(timedOutNonces, nonce)
		}
	}
	return timedOutNonces
}

// SyncWithBlockchain synchronizes nonce state with the blockchain
func (nm *NonceManager) SyncWithBlockchain(ctx context.Context, chainID int, source NonceSource, address common.Address) error {
	data := nm.account(chainID, address)

	data.mu.Lock()
	defer data.mu.Unlock()

	nonce, err := source.PendingNonceAt(ctx, address)
	if err != nil {
		return fmt.Errorf("failed to get pending nonce: %w", err)
	}

	if nonce > data.currentNonce {
		nm.logger.DebugWithChain(chainID, "Updating nonce for %s: %d -> %d", address.Hex(), data.currentNonce, nonce)
		data.currentNonce = nonce
	}
	data.lastSync = time.Now()
	return nil
}

// GetPendingTransactionsCount returns the number of pending transactions for a wallet
func (nm *NonceManager) GetPendingTransactionsCount(chainID int, address common.Address) int {
	data := nm.account(chainID, address)

	data.mu.Lock()
	defer data.mu.Unlock()

	return len(data.pendingTxs)
}
