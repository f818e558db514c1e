package chainclient

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrTransactionReverted is returned when a mined transaction has a failed receipt
	ErrTransactionReverted = errors.New("transaction reverted")

	// ErrPairNotFound is returned when the factory has no pool for a token pair
	ErrPairNotFound = errors.New("pair not found")
)

// RemoteReadError is a failed contract or RPC read
type RemoteReadError struct {
	ChainID  int
	Op       string
	Contract common.Address
	Err      error
}

func (e *RemoteReadError) Error() string {
	return fmt.Sprintf("failed to read %s from %s on chain %d: %v", e.Op, e.Contract.Hex(), e.ChainID, e.Err)
}

func (e *RemoteReadError) Unwrap() error {
	return e.Err
}

// RemoteWriteError is a failed, reverted or timed out transaction
type RemoteWriteError struct {
	ChainID  int
	Op       string
	Contract common.Address
	// TxHash is zero when the transaction was never broadcast
	TxHash common.Hash
	Err    error
}

func (e *RemoteWriteError) Error() string {
	if e.TxHash != (common.Hash{}) {
		return fmt.Sprintf("failed to %s on %s on chain %d (tx %s): %v", e.Op, e.Contract.Hex(), e.ChainID, e.TxHash.Hex(), e.Err)
	}
	return fmt.Sprintf("failed to %s on %s on chain %d: %v", e.Op, e.Contract.Hex(), e.ChainID, e.Err)
}

func (e *RemoteWriteError) Unwrap() error {
	return e.Err
}
