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

// ERC20Token implements Token over an ERC-20 binding
type ERC20Token struct {
	client   *Client
	contract *contracts.ERC20
}

var _ Token = (*ERC20Token)(nil)

// NewERC20Token binds an ERC-20 token on the client's chain
func NewERC20Token(client *Client, address common.Address) (*ERC20Token, error) {
	contract, err := contracts.NewERC20(address, client.Backend)
	if err != nil {
		return nil, fmt.Errorf("failed to bind token %s: %v", address.Hex(), err)
	}
	return &ERC20Token{client: client, contract: contract}, nil
}

func (t *ERC20Token) Address() common.Address {
	return t.contract.Address
}

func (t *ERC20Token) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	opts, cancel := t.client.callOpts(ctx)
	defer cancel()

	balance, err := t.contract.BalanceOf(opts, account)
	if err != nil {
		return nil, t.client.readError("balanceOf", t.contract.Address, err)
	}
	return balance, nil
}

func (t *ERC20Token) Allowance(ctx context.Context, owner common.Address, spender common.Address) (*big.Int, error) {
	opts, cancel := t.client.callOpts(ctx)
	defer cancel()

	allowance, err := t.contract.Allowance(opts, owner, spender)
	if err != nil {
		return nil, t.client.readError("allowance", t.contract.Address, err)
	}
	return allowance, nil
}

func (t *ERC20Token) Approve(ctx context.Context, wallet *Wallet, spender common.Address, amount *big.Int) (common.Hash, error) {
	return t.client.Send(ctx, wallet, "approve", t.contract.Address, nil, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return t.contract.Approve(opts, spender, amount)
	})
}

func (t *ERC20Token) Transfer(ctx context.Context, wallet *Wallet, to common.Address, amount *big.Int) (common.Hash, error) {
	return t.client.Send(ctx, wallet, "transfer", t.contract.Address, nil, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return t.contract.Transfer(opts, to, amount)
	})
}

func (t *ERC20Token) TransferFrom(ctx context.Context, wallet *Wallet, from common.Address, to common.Address, amount *big.Int) (common.Hash, error) {
	return t.client.Send(ctx, wallet, "transferFrom", t.contract.Address, nil, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return t.contract.TransferFrom(opts, from, to, amount)
	})
}
