package contracts

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// UniswapV2PairABI is the ABI of the pair functions read by the quote engine
const UniswapV2PairABI = `[
	{"constant":true,"inputs":[],"name":"getReserves","outputs":[{"name":"reserve0","type":"uint112"},{"name":"reserve1","type":"uint112"},{"name":"blockTimestampLast","type":"uint32"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"token0","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"token1","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"totalSupply","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

// UniswapV2FactoryABI is the ABI of the factory pair lookup
const UniswapV2FactoryABI = `[
	{"constant":true,"inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"}],"name":"getPair","outputs":[{"name":"pair","type":"address"}],"stateMutability":"view","type":"function"}
]`

// UniswapV2RouterABI is the ABI of the router functions used for swaps
const UniswapV2RouterABI = `[
	{"inputs":[],"name":"factory","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"name":"swapExactTokensForTokens","outputs":[{"name":"amounts","type":"uint256[]"}],"stateMutability":"nonpayable","type":"function"}
]`

// PairReserves is the result of getReserves
type PairReserves struct {
	Reserve0           *big.Int
	Reserve1           *big.Int
	BlockTimestampLast uint32
}

// UniswapV2Pair is a binding around a Uniswap V2 pair contract
type UniswapV2Pair struct {
	Address  common.Address
	contract *bind.BoundContract
}

// NewUniswapV2Pair creates a new pair binding
func NewUniswapV2Pair(address common.Address, backend bind.ContractBackend) (*UniswapV2Pair, error) {
	contract, err := bindContract(address, UniswapV2PairABI, backend)
	if err != nil {
		return nil, err
	}
	return &UniswapV2Pair{Address: address, contract: contract}, nil
}

// GetReserves is a free data retrieval call binding the contract method getReserves
func (p *UniswapV2Pair) GetReserves(opts *bind.CallOpts) (PairReserves, error) {
	var out []interface{}
	if err := p.contract.Call(opts, &out, "getReserves"); err != nil {
		return PairReserves{}, err
	}
	return PairReserves{
		Reserve0:           *abi.ConvertType(out[0], new(*big.Int)).(**big.Int),
		Reserve1:           *abi.ConvertType(out[1], new(*big.Int)).(**big.Int),
		BlockTimestampLast: *abi.ConvertType(out[2], new(uint32)).(*uint32),
	}, nil
}

// Token0 is a free data retrieval call binding the contract method token0
func (p *UniswapV2Pair) Token0(opts *bind.CallOpts) (common.Address, error) {
	return callAddress(p.contract, opts, "token0")
}

// TotalSupply is a free data retrieval call binding the contract method totalSupply
func (p *UniswapV2Pair) TotalSupply(opts *bind.CallOpts) (*big.Int, error) {
	return callUint256(p.contract, opts, "totalSupply")
}

// UniswapV2Factory is a binding around a Uniswap V2 factory contract
type UniswapV2Factory struct {
	Address  common.Address
	contract *bind.BoundContract
}

// NewUniswapV2Factory creates a new factory binding
func NewUniswapV2Factory(address common.Address, backend bind.ContractBackend) (*UniswapV2Factory, error) {
	contract, err := bindContract(address, UniswapV2FactoryABI, backend)
	if err != nil {
		return nil, err
	}
	return &UniswapV2Factory{Address: address, contract: contract}, nil
}

// GetPair is a free data retrieval call binding the contract method getPair
func (f *UniswapV2Factory) GetPair(opts *bind.CallOpts, tokenA common.Address, tokenB common.Address) (common.Address, error) {
	return callAddress(f.contract, opts, "getPair", tokenA, tokenB)
}

// UniswapV2Router is a binding around a Uniswap V2 router contract
type UniswapV2Router struct {
	Address  common.Address
	contract *bind.BoundContract
}

// NewUniswapV2Router creates a new router binding
func NewUniswapV2Router(address common.Address, backend bind.ContractBackend) (*UniswapV2Router, error) {
	contract, err := bindContract(address, UniswapV2RouterABI, backend)
	if err != nil {
		return nil, err
	}
	return &UniswapV2Router{Address: address, contract: contract}, nil
}

// Factory is a free data retrieval call binding the contract method factory
func (r *UniswapV2Router) Factory(opts *bind.CallOpts) (common.Address, error) {
	return callAddress(r.contract, opts, "factory")
}

// SwapExactTokensForTokens is a paid mutator transaction binding the contract method swapExactTokensForTokens
func (r *UniswapV2Router) SwapExactTokensForTokens(
	opts *bind.TransactOpts,
	amountIn *big.Int,
	amountOutMin *big.Int,
	path []common.Address,
	to common.Address,
	deadline *big.Int,
) (*types.Transaction, error) {
	return r.contract.Transact(opts, "swapExactTokensForTokens", amountIn, amountOutMin, path, to, deadline)
}

// callAddress performs a read call returning a single address
func callAddress(contract *bind.BoundContract, opts *bind.CallOpts, method string, params ...interface{}) (common.Address, error) {
	var out []interface{}
	if err := contract.Call(opts, &out, method, params...); err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}
