package chainclient

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/drift-pay/drift-gateway/pkg/blockchain"
	"github.com/drift-pay/drift-gateway/pkg/logger"
	"github.com/drift-pay/drift-gateway/pkg/metrics"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Backend is the subset of the RPC client used by the gateway, satisfied by *ethclient.Client
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// Client contains client and config information for a specific blockchain
type Client struct {
	ChainID       int
	RPCURL        string
	Backend       Backend
	GasMultiplier float64
	CallTimeout   time.Duration

	// CurrentGasPrice is refreshed by the GasPriceRoutine, nil lets the node suggest one per transaction
	CurrentGasPrice *big.Int

	nonces *blockchain.NonceManager
	logger logger.Logger
	mu     sync.RWMutex
}

// New dials the chain and returns a client
func New(
	ctx context.Context,
	chainID int,
	rpcURL string,
	gasMultiplier float64,
	callTimeout time.Duration,
	nonces *blockchain.NonceManager,
	logger logger.Logger,
) (*Client, error) {
	rpc, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chain %d: %v", chainID, err)
	}

	// Make sure the endpoint serves the chain we expect
	timeoutCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	remoteID, err := rpc.ChainID(timeoutCtx)
	if err != nil {
		rpc.Close()
		return nil, fmt.Errorf("failed to get chain ID for chain %d: %v", chainID, err)
	}
	if remoteID.Int64() != int64(chainID) {
		rpc.Close()
		return nil, fmt.Errorf("RPC endpoint %s serves chain %s, expected %d", rpcURL, remoteID.String(), chainID)
	}

	return NewWithBackend(chainID, rpcURL, rpc, gasMultiplier, callTimeout, nonces, logger), nil
}

// NewWithBackend creates a client over an existing backend
func NewWithBackend(
	chainID int,
	rpcURL string,
	backend Backend,
	gasMultiplier float64,
	callTimeout time.Duration,
	nonces *blockchain.NonceManager,
	logger logger.Logger,
) *Client {
	return &Client{
		ChainID:       chainID,
		RPCURL:        rpcURL,
		Backend:       backend,
		GasMultiplier: gasMultiplier,
		CallTimeout:   callTimeout,
		nonces:        nonces,
		logger:        logger,
	}
}

// Close releases the RPC connection
func (c *Client) Close() {
	if rpc, ok := c.Backend.(*ethclient.Client); ok {
		rpc.Close()
	}
}

// UpdateGasPrice updates the gas price based on current network conditions
func (c *Client) UpdateGasPrice(ctx context.Context) (*big.Int, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.CallTimeout)
	defer cancel()

	gasPrice, err := c.Backend.SuggestGasPrice(timeoutCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %v", err)
	}

	finalGasPrice := applyGasMultiplier(gasPrice, c.GasMultiplier)

	c.mu.Lock()
	c.CurrentGasPrice = finalGasPrice
	c.mu.Unlock()

	return finalGasPrice, nil
}

// GasPrice returns the last refreshed gas price, nil when none has been fetched yet
func (c *Client) GasPrice() *big.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.CurrentGasPrice == nil {
		return nil
	}
	return new(big.Int).Set(c.CurrentGasPrice)
}

// GetLatestBlockNumber gets the latest block number from the chain
func (c *Client) GetLatestBlockNumber(ctx context.Context) (uint64, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.CallTimeout)
	defer cancel()
	return c.Backend.BlockNumber(timeoutCtx)
}

// NativeBalance returns the native coin balance of an account
func (c *Client) NativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.CallTimeout)
	defer cancel()

	balance, err := c.Backend.BalanceAt(timeoutCtx, account, nil)
	if err != nil {
		return nil, c.readError("balance", account, err)
	}
	return balance, nil
}

// callOpts returns call options bounded by the per-call timeout
func (c *Client) callOpts(ctx context.Context) (*bind.CallOpts, context.CancelFunc) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.CallTimeout)
	return &bind.CallOpts{Context: timeoutCtx}, cancel
}

func (c *Client) readError(op string, contract common.Address, err error) error {
	metrics.ChainErrors.WithLabelValues(c.chainLabel(), "read", op).Inc()
	return &RemoteReadError{ChainID: c.ChainID, Op: op, Contract: contract, Err: err}
}

func (c *Client) writeError(op string, contract common.Address, txHash common.Hash, err error) error {
	metrics.ChainErrors.WithLabelValues(c.chainLabel(), "write", op).Inc()
	return &RemoteWriteError{ChainID: c.ChainID, Op: op, Contract: contract, TxHash: txHash, Err: err}
}

func (c *Client) chainLabel() string {
	return strconv.Itoa(c.ChainID)
}

// Send signs a transaction built by the given function with the wallet's next nonce,
// broadcasts it and waits for a successful receipt. The whole round trip is bounded
// by the per-call timeout.
func (c *Client) Send(
	ctx context.Context,
	wallet *Wallet,
	op string,
	contract common.Address,
	value *big.Int,
	build func(opts *bind.TransactOpts) (*types.Transaction, error),
) (common.Hash, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.CallTimeout)
	defer cancel()

	opts, err := wallet.transactOpts(c.ChainID)
	if err != nil {
		return common.Hash{}, c.writeError(op, contract, common.Hash{}, err)
	}

	nonce, err := c.nonces.GetNonce(timeoutCtx, c.ChainID, c.Backend, wallet.Address)
	if err != nil {
		return common.Hash{}, c.writeError(op, contract, common.Hash{}, err)
	}

	opts.Context = timeoutCtx
	opts.Nonce = new(big.Int).SetUint64(nonce)
	opts.GasPrice = c.GasPrice()
	if value != nil {
		opts.Value = new(big.Int).Set(value)
	}

	tx, err := build(opts)
	if err != nil {
		// Estimation or broadcast failed, the nonce was never consumed
		c.nonces.ReleaseNonce(c.ChainID, wallet.Address, nonce)
		return common.Hash{}, c.writeError(op, contract, common.Hash{}, err)
	}

	c.nonces.TrackTransaction(c.ChainID, wallet.Address, tx.Hash(), nonce)
	c.logger.DebugWithChain(c.ChainID, "%s transaction sent: %s (nonce %d)", op, tx.Hash().Hex(), nonce)

	receipt, err := bind.WaitMined(timeoutCtx, c.Backend, tx)
	if err != nil {
		return tx.Hash(), c.writeError(op, contract, tx.Hash(), fmt.Errorf("failed to wait for transaction to be mined: %w", err))
	}
	c.nonces.MarkTransactionConfirmed(c.ChainID, wallet.Address, nonce)
	metrics.GasUsed.WithLabelValues(c.chainLabel(), op).Observe(float64(receipt.GasUsed))

	if receipt.Status != types.ReceiptStatusSuccessful {
		return tx.Hash(), c.writeError(op, contract, tx.Hash(), ErrTransactionReverted)
	}

	c.logger.InfoWithChain(c.ChainID, "%s transaction confirmed in block %d: %s", op, receipt.BlockNumber.Uint64(), tx.Hash().Hex())
	return tx.Hash(), nil
}

// applyGasMultiplier scales a gas price by the configured buffer (e.g. 1.1 = 10% buffer)
func applyGasMultiplier(gasPrice *big.Int, multiplier float64) *big.Int {
	if gasPrice == nil {
		return nil
	}
	multiplied := new(big.Float).Mul(
		new(big.Float).SetInt(gasPrice),
		big.NewFloat(multiplier),
	)
	final := new(big.Int)
	multiplied.Int(final)
	return final
}
