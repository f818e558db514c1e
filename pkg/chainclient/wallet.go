package chainclient

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Wallet is a signing key usable on any chain
type Wallet struct {
	Address common.Address
	key     *ecdsa.PrivateKey
}

// NewWallet parses a hex encoded private key, with or without 0x prefix
func NewWallet(privateKeyHex string) (*Wallet, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %v", err)
	}
	return NewWalletFromKey(privateKey), nil
}

// NewWalletFromKey wraps an already parsed key
func NewWalletFromKey(privateKey *ecdsa.PrivateKey) *Wallet {
	return &Wallet{
		Address: crypto.PubkeyToAddress(privateKey.PublicKey),
		key:     privateKey,
	}
}

// transactOpts creates a transaction signer for the chain
func (w *Wallet) transactOpts(chainID int) (*bind.TransactOpts, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(w.key, big.NewInt(int64(chainID)))
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %v", err)
	}
	return auth, nil
}
