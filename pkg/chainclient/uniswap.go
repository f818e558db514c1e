package chainclient

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/drift-pay/drift-gateway/pkg/contracts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// UniswapV2Pool implements Pool over a pair binding
type UniswapV2Pool struct {
	client   *Client
	contract *contracts.UniswapV2Pair
}

var _ Pool = (*UniswapV2Pool)(nil)

// NewUniswapV2Pool binds a pair on the client's chain
func NewUniswapV2Pool(client *Client, address common.Address) (*UniswapV2Pool, error) {
	contract, err := contracts.NewUniswapV2Pair(address, client.Backend)
	if err != nil {
		return nil, fmt.Errorf("failed to bind pair %s: %v", address.Hex(), err)
	}
	return &UniswapV2Pool{client: client, contract: contract}, nil
}

func (p *UniswapV2Pool) Address() common.Address {
	return p.contract.Address
}

// Snapshot reads reserves, token0 and total supply
func (p *UniswapV2Pool) Snapshot(ctx context.Context) (PoolSnapshot, error) {
	opts, cancel := p.client.callOpts(ctx)
	defer cancel()

	reserves, err := p.contract.GetReserves(opts)
	if err != nil {
		return PoolSnapshot{}, p.client.readError("getReserves", p.contract.Address, err)
	}
	token0, err := p.contract.Token0(opts)
	if err != nil {
		return PoolSnapshot{}, p.client.readError("token0", p.contract.Address, err)
	}
	totalSupply, err := p.contract.TotalSupply(opts)
	if err != nil {
		return PoolSnapshot{}, p.client.readError("totalSupply", p.contract.Address, err)
	}

	return PoolSnapshot{
		Pair:        p.contract.Address,
		Token0:      token0,
		Reserve0:    reserves.Reserve0,
		Reserve1:    reserves.Reserve1,
		TotalSupply: totalSupply,
	}, nil
}

// UniswapV2Router implements Router, resolving pairs through the router's factory
type UniswapV2Router struct {
	client   *Client
	contract *contracts.UniswapV2Router

	factoryAddress common.Address
	factory        *contracts.UniswapV2Factory
	factoryMu      sync.Mutex
}

var _ Router = (*UniswapV2Router)(nil)

// NewUniswapV2Router binds the router. A zero factory address is resolved from the router on first use.
func NewUniswapV2Router(client *Client, router common.Address, factory common.Address) (*UniswapV2Router, error) {
	contract, err := contracts.NewUniswapV2Router(router, client.Backend)
	if err != nil {
		return nil, fmt.Errorf("failed to bind router %s: %v", router.Hex(), err)
	}
	return &UniswapV2Router{client: client, contract: contract, factoryAddress: factory}, nil
}

func (r *UniswapV2Router) Address() common.Address {
	return r.contract.Address
}

func (r *UniswapV2Router) getFactory(ctx context.Context) (*contracts.UniswapV2Factory, error) {
	r.factoryMu.Lock()
	defer r.factoryMu.Unlock()

	if r.factory != nil {
		return r.factory, nil
	}

	if r.factoryAddress == (common.Address{}) {
		opts, cancel := r.client.callOpts(ctx)
		defer cancel()
		address, err := r.contract.Factory(opts)
		if err != nil {
			return nil, r.client.readError("factory", r.contract.Address, err)
		}
		r.factoryAddress = address
	}

	factory, err := contracts.NewUniswapV2Factory(r.factoryAddress, r.client.Backend)
	if err != nil {
		return nil, fmt.Errorf("failed to bind factory %s: %v", r.factoryAddress.Hex(), err)
	}
	r.factory = factory
	return factory, nil
}

func (r *UniswapV2Router) Pair(ctx context.Context, tokenA common.Address, tokenB common.Address) (Pool, error) {
	factory, err := r.getFactory(ctx)
	if err != nil {
		return nil, err
	}

	opts, cancel := r.client.callOpts(ctx)
	defer cancel()

	pair, err := factory.GetPair(opts, tokenA, tokenB)
	if err != nil {
		return nil, r.client.readError("getPair", factory.Address, err)
	}
	if pair == (common.Address{}) {
		return nil, ErrPairNotFound
	}
	return NewUniswapV2Pool(r.client, pair)
}

func (r *UniswapV2Router) SwapExactTokensForTokens(
	ctx context.Context,
	wallet *Wallet,
	amountIn *big.Int,
	amountOutMin *big.Int,
	path []common.Address,
	to common.Address,
	deadline *big.Int,
) (common.Hash, error) {
	return r.client.Send(ctx, wallet, "swapExactTokensForTokens", r.contract.Address, nil, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return r.contract.SwapExactTokensForTokens(opts, amountIn, amountOutMin, path, to, deadline)
	})
}
