package chainclient

import (
	"context"
	"fmt"
	"math/big"

	"github.com/drift-pay/drift-gateway/pkg/contracts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// WarpBridge implements Bridge over a Hyperlane collateral warp route
type WarpBridge struct {
	client   *Client
	contract *contracts.HyperlaneWarpRoute
}

var _ Bridge = (*WarpBridge)(nil)

// NewWarpBridge binds the warp route on the client's chain
func NewWarpBridge(client *Client, address common.Address) (*WarpBridge, error) {
	contract, err := contracts.NewHyperlaneWarpRoute(address, client.Backend)
	if err != nil {
		return nil, fmt.Errorf("failed to bind warp route %s: %v", address.Hex(), err)
	}
	return &WarpBridge{client: client, contract: contract}, nil
}

func (b *WarpBridge) Address() common.Address {
	return b.contract.Address
}

// Liquidity reads the collateral balance held by the route itself
func (b *WarpBridge) Liquidity(ctx context.Context) (*big.Int, error) {
	opts, cancel := b.client.callOpts(ctx)
	defer cancel()

	balance, err := b.contract.BalanceOf(opts, b.contract.Address)
	if err != nil {
		return nil, b.client.readError("balanceOf", b.contract.Address, err)
	}
	return balance, nil
}

func (b *WarpBridge) TransferRemote(
	ctx context.Context,
	wallet *Wallet,
	domain uint32,
	recipient common.Address,
	amount *big.Int,
	value *big.Int,
) (common.Hash, error) {
	return b.client.Send(ctx, wallet, "transferRemote", b.contract.Address, value, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return b.contract.TransferRemote(opts, domain, contracts.AddressToBytes32(recipient), amount)
	})
}

// WarpReceiver implements DeliveryFeed over the destination warp route
type WarpReceiver struct {
	client   *Client
	contract *contracts.HyperlaneWarpRoute
}

var _ DeliveryFeed = (*WarpReceiver)(nil)

// NewWarpReceiver binds the warp route paying out on the client's chain
func NewWarpReceiver(client *Client, address common.Address) (*WarpReceiver, error) {
	contract, err := contracts.NewHyperlaneWarpRoute(address, client.Backend)
	if err != nil {
		return nil, fmt.Errorf("failed to bind warp route %s: %v", address.Hex(), err)
	}
	return &WarpReceiver{client: client, contract: contract}, nil
}

func (r *WarpReceiver) GetLatestBlockNumber(ctx context.Context) (uint64, error) {
	return r.client.GetLatestBlockNumber(ctx)
}

func (r *WarpReceiver) ReceivedTransfers(ctx context.Context, fromBlock uint64, origin uint32, recipient common.Address) ([]ReceivedTransfer, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, r.client.CallTimeout)
	defer cancel()

	events, err := r.contract.FilterReceivedTransferRemote(timeoutCtx, fromBlock, origin, recipient)
	if err != nil {
		return nil, r.client.readError("ReceivedTransferRemote", r.contract.Address, err)
	}
	transfers := make([]ReceivedTransfer, 0, len(events))
	for _, event := range events {
		transfers = append(transfers, ReceivedTransfer{
			Origin:    event.Origin,
			Recipient: event.Recipient,
			Amount:    event.Amount,
			TxHash:    event.Raw.TxHash,
			Block:     event.Raw.BlockNumber,
		})
	}
	return transfers, nil
}
