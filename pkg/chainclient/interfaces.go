package chainclient

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Token is an ERC-20 token on a single chain
type Token interface {
	Address() common.Address
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)
	Allowance(ctx context.Context, owner common.Address, spender common.Address) (*big.Int, error)
	Approve(ctx context.Context, wallet *Wallet, spender common.Address, amount *big.Int) (common.Hash, error)
	Transfer(ctx context.Context, wallet *Wallet, to common.Address, amount *big.Int) (common.Hash, error)
	TransferFrom(ctx context.Context, wallet *Wallet, from common.Address, to common.Address, amount *big.Int) (common.Hash, error)
}

// Pool is a constant-product pair
type Pool interface {
	Address() common.Address
	Snapshot(ctx context.Context) (PoolSnapshot, error)
}

// Router resolves pairs and executes swaps
type Router interface {
	Address() common.Address
	// Pair returns ErrPairNotFound when the factory has no pool for the tokens
	Pair(ctx context.Context, tokenA common.Address, tokenB common.Address) (Pool, error)
	SwapExactTokensForTokens(
		ctx context.Context,
		wallet *Wallet,
		amountIn *big.Int,
		amountOutMin *big.Int,
		path []common.Address,
		to common.Address,
		deadline *big.Int,
	) (common.Hash, error)
}

// Bridge is the source side of a collateral-backed warp route
type Bridge interface {
	Address() common.Address
	// Liquidity is the collateral currently locked in the route
	Liquidity(ctx context.Context) (*big.Int, error)
	TransferRemote(ctx context.Context, wallet *Wallet, domain uint32, recipient common.Address, amount *big.Int, value *big.Int) (common.Hash, error)
}

// ReceivedTransfer is a warp route payout on the destination chain
type ReceivedTransfer struct {
	Origin    uint32
	Recipient common.Address
	Amount    *big.Int
	TxHash    common.Hash
	Block     uint64
}

// DeliveryFeed is the destination side of a warp route, read through its payout events
type DeliveryFeed interface {
	GetLatestBlockNumber(ctx context.Context) (uint64, error)
	// ReceivedTransfers lists payouts from origin to recipient emitted since fromBlock
	ReceivedTransfers(ctx context.Context, fromBlock uint64, origin uint32, recipient common.Address) ([]ReceivedTransfer, error)
}

// DEX is the fan-token price oracle on the destination chain
type DEX interface {
	Address() common.Address
	// GetPrice returns the fan tokens, at 18 decimals, obtainable for chzAmount
	GetPrice(ctx context.Context, fanToken common.Address, chzAmount *big.Int) (*big.Int, error)
	GetAllPrices(ctx context.Context, chzAmount *big.Int) ([]*big.Int, error)
}

// Processor is the on-chain payment processor used as conversion fallback
type Processor interface {
	Address() common.Address
	ProcessPayment(
		ctx context.Context,
		wallet *Wallet,
		paymentID string,
		merchant common.Address,
		fanToken common.Address,
		fanTokenAmount *big.Int,
		value *big.Int,
	) (common.Hash, error)
}

// BalanceReader reads native coin balances
type BalanceReader interface {
	NativeBalance(ctx context.Context, account common.Address) (*big.Int, error)
}

// PoolSnapshot is a fresh read of a pair's state
type PoolSnapshot struct {
	Pair        common.Address
	Token0      common.Address
	Reserve0    *big.Int
	Reserve1    *big.Int
	TotalSupply *big.Int
}

// Oriented returns the reserves ordered as (tokenIn, other token)
func (s PoolSnapshot) Oriented(tokenIn common.Address) (reserveIn *big.Int, reserveOut *big.Int) {
	if s.Token0 == tokenIn {
		return s.Reserve0, s.Reserve1
	}
	return s.Reserve1, s.Reserve0
}
