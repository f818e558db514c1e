package chainclient

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/drift-pay/drift-gateway/pkg/blockchain"
	"github.com/drift-pay/drift-gateway/pkg/logger"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const simulatedChainID = 1337

// setupSimulation creates a simulated chain with a funded operator wallet
func setupSimulation(t *testing.T) (*simulated.Backend, *Client, *Wallet) {
	privateKey, err := crypto.GenerateKey()
	require.NoError(t, err, "Failed to generate private key")
	wallet := NewWalletFromKey(privateKey)

	balance, _ := new(big.Int).SetString("10000000000000000000", 10) // 10 ETH
	//nolint:SA1019 // Using deprecated GenesisAccount for compatibility
	sim := simulated.NewBackend(map[common.Address]core.GenesisAccount{
		wallet.Address: {Balance: balance},
	})
	t.Cleanup(func() { _ = sim.Close() })

	client := NewWithBackend(
		simulatedChainID,
		"simulated",
		sim.Client(),
		1.0,
		10*time.Second,
		blockchain.NewNonceManager(&logger.EmptyLogger{}),
		&logger.EmptyLogger{},
	)
	return sim, client, wallet
}

// mine commits blocks until the returned function is called
func mine(sim *simulated.Backend) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sim.Commit()
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}

func valueTransfer(client *Client, to common.Address) func(opts *bind.TransactOpts) (*types.Transaction, error) {
	return func(opts *bind.TransactOpts) (*types.Transaction, error) {
		gasPrice, err := client.Backend.SuggestGasPrice(opts.Context)
		if err != nil {
			return nil, err
		}
		tx := types.NewTransaction(opts.Nonce.Uint64(), to, opts.Value, 21000, gasPrice, nil)
		signed, err := opts.Signer(opts.From, tx)
		if err != nil {
			return nil, err
		}
		return signed, client.Backend.SendTransaction(opts.Context, signed)
	}
}

func TestSend(t *testing.T) {
	sim, client, wallet := setupSimulation(t)
	stop := mine(sim)
	defer stop()

	ctx := context.Background()
	recipient := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	value := big.NewInt(1_000_000_000_000_000) // 0.001 ETH

	t.Run("value transfer is mined", func(t *testing.T) {
		hash, err := client.Send(ctx, wallet, "transfer", recipient, value, valueTransfer(client, recipient))
		require.NoError(t, err)
		assert.NotEqual(t, common.Hash{}, hash)

		balance, err := client.NativeBalance(ctx, recipient)
		require.NoError(t, err)
		assert.Equal(t, 0, balance.Cmp(value))
	})

	t.Run("consecutive sends use consecutive nonces", func(t *testing.T) {
		_, err := client.Send(ctx, wallet, "transfer", recipient, value, valueTransfer(client, recipient))
		require.NoError(t, err)

		nonce, err := client.Backend.PendingNonceAt(ctx, wallet.Address)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), nonce)
	})

	t.Run("build failure releases the nonce", func(t *testing.T) {
		buildErr := errors.New("execution reverted")
		_, err := client.Send(ctx, wallet, "swapExactTokensForTokens", recipient, nil, func(opts *bind.TransactOpts) (*types.Transaction, error) {
			return nil, buildErr
		})

		var writeErr *RemoteWriteError
		require.True(t, errors.As(err, &writeErr))
		assert.Equal(t, "swapExactTokensForTokens", writeErr.Op)
		assert.ErrorIs(t, err, buildErr)

		// The next send must reuse the released nonce or it would never be mined
		_, err = client.Send(ctx, wallet, "transfer", recipient, value, valueTransfer(client, recipient))
		require.NoError(t, err)
	})
}

func TestNativeBalanceAndBlockNumber(t *testing.T) {
	sim, client, wallet := setupSimulation(t)
	sim.Commit()

	balance, err := client.NativeBalance(context.Background(), wallet.Address)
	require.NoError(t, err)
	assert.True(t, balance.Sign() > 0)

	block, err := client.GetLatestBlockNumber(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, block, uint64(1))
}
