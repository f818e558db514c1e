package mocks

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/drift-pay/drift-gateway/pkg/chainclient"
	"github.com/ethereum/go-ethereum/common"
)

// ErrMockFailure is a generic failure used by tests
var ErrMockFailure = errors.New("mock failure")

var txCounter uint64

// NextHash returns a unique fake transaction hash
func NextHash() common.Hash {
	n := atomic.AddUint64(&txCounter, 1)
	return common.BigToHash(new(big.Int).SetUint64(n))
}

// Call records a write made against a mock
type Call struct {
	Method string
	From   common.Address
	To     common.Address
	Amount *big.Int
	Value  *big.Int
	Hash   common.Hash
}

type recorder struct {
	mu    sync.Mutex
	calls []Call
}

func (r *recorder) record(call Call) common.Hash {
	r.mu.Lock()
	defer r.mu.Unlock()
	call.Hash = NextHash()
	r.calls = append(r.calls, call)
	return call.Hash
}

// Calls returns the recorded writes
func (r *recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// CallCount returns how many writes of the method were recorded
func (r *recorder) CallCount(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Token is an in-memory ERC-20 token
type Token struct {
	recorder
	Addr       common.Address
	mu         sync.Mutex
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int

	// Fail makes the named method fail
	Fail map[string]error
}

var _ chainclient.Token = (*Token)(nil)

// NewToken creates a token at the address
func NewToken(address common.Address) *Token {
	return &Token{
		Addr:       address,
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
		Fail:       make(map[string]error),
	}
}

// SetBalance sets an account balance
func (t *Token) SetBalance(account common.Address, amount *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[account] = new(big.Int).Set(amount)
}

// SetAllowance sets an allowance
func (t *Token) SetAllowance(owner common.Address, spender common.Address, amount *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.allowances[owner] == nil {
		t.allowances[owner] = make(map[common.Address]*big.Int)
	}
	t.allowances[owner][spender] = new(big.Int).Set(amount)
}

// Balance returns an account balance
func (t *Token) Balance(account common.Address) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balanceLocked(account)
}

func (t *Token) balanceLocked(account common.Address) *big.Int {
	if b, ok := t.balances[account]; ok {
		return new(big.Int).Set(b)
	}
	return big.NewInt(0)
}

func (t *Token) Address() common.Address {
	return t.Addr
}

func (t *Token) BalanceOf(_ context.Context, account common.Address) (*big.Int, error) {
	if err := t.Fail["balanceOf"]; err != nil {
		return nil, err
	}
	return t.Balance(account), nil
}

func (t *Token) Allowance(_ context.Context, owner common.Address, spender common.Address) (*big.Int, error) {
	if err := t.Fail["allowance"]; err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if a, ok := t.allowances[owner][spender]; ok {
		return new(big.Int).Set(a), nil
	}
	return big.NewInt(0), nil
}

func (t *Token) Approve(_ context.Context, wallet *chainclient.Wallet, spender common.Address, amount *big.Int) (common.Hash, error) {
	if err := t.Fail["approve"]; err != nil {
		return common.Hash{}, err
	}
	t.SetAllowance(wallet.Address, spender, amount)
	return t.record(Call{Method: "approve", From: wallet.Address, To: spender, Amount: amount}), nil
}

func (t *Token) Transfer(_ context.Context, wallet *chainclient.Wallet, to common.Address, amount *big.Int) (common.Hash, error) {
	if err := t.Fail["transfer"]; err != nil {
		return common.Hash{}, err
	}
	if err := t.move(wallet.Address, to, amount); err != nil {
		return common.Hash{}, err
	}
	return t.record(Call{Method: "transfer", From: wallet.Address, To: to, Amount: amount}), nil
}

func (t *Token) TransferFrom(_ context.Context, wallet *chainclient.Wallet, from common.Address, to common.Address, amount *big.Int) (common.Hash, error) {
	if err := t.Fail["transferFrom"]; err != nil {
		return common.Hash{}, err
	}
	t.mu.Lock()
	allowance := t.allowances[from][wallet.Address]
	if allowance == nil || allowance.Cmp(amount) < 0 {
		t.mu.Unlock()
		return common.Hash{}, fmt.Errorf("transfer amount exceeds allowance")
	}
	allowance.Sub(allowance, amount)
	t.mu.Unlock()

	if err := t.move(from, to, amount); err != nil {
		return common.Hash{}, err
	}
	return t.record(Call{Method: "transferFrom", From: from, To: to, Amount: amount}), nil
}

// Credit adds to an account balance
func (t *Token) Credit(account common.Address, amount *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[account] = new(big.Int).Add(t.balanceLocked(account), amount)
}

func (t *Token) move(from common.Address, to common.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	balance := t.balanceLocked(from)
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("transfer amount exceeds balance")
	}
	t.balances[from] = new(big.Int).Sub(balance, amount)
	t.balances[to] = new(big.Int).Add(t.balanceLocked(to), amount)
	return nil
}

// Pool is a pair with fixed reserves
type Pool struct {
	Addr     common.Address
	Snap     chainclient.PoolSnapshot
	Err      error
	mu       sync.Mutex
	readings int
}

var _ chainclient.Pool = (*Pool)(nil)

func (p *Pool) Address() common.Address {
	return p.Addr
}

func (p *Pool) Snapshot(_ context.Context) (chainclient.PoolSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readings++
	if p.Err != nil {
		return chainclient.PoolSnapshot{}, p.Err
	}
	return p.Snap, nil
}

// Readings returns how many times the pool was read
func (p *Pool) Readings() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.readings
}

// SetReserves replaces the pool's reserves
func (p *Pool) SetReserves(reserve0 *big.Int, reserve1 *big.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Snap.Reserve0 = reserve0
	p.Snap.Reserve1 = reserve1
}

// NewPool creates a pool whose token0 is tokenA
func NewPool(address common.Address, tokenA common.Address, reserveA *big.Int, reserveB *big.Int) *Pool {
	return &Pool{
		Addr: address,
		Snap: chainclient.PoolSnapshot{
			Pair:        address,
			Token0:      tokenA,
			Reserve0:    reserveA,
			Reserve1:    reserveB,
			TotalSupply: big.NewInt(1_000_000),
		},
	}
}

type pairKey struct {
	a common.Address
	b common.Address
}

// Router resolves pairs from a fixed table and records swaps
type Router struct {
	recorder
	Addr    common.Address
	pairs   map[pairKey]*Pool
	PairErr error

	// SwapErr makes swaps fail
	SwapErr error
	// OnSwap is invoked on a successful swap, e.g. to credit the output token
	OnSwap func(amountIn *big.Int, amountOutMin *big.Int, path []common.Address, to common.Address)
}

var _ chainclient.Router = (*Router)(nil)

// NewRouter creates a router with no pairs
func NewRouter(address common.Address) *Router {
	return &Router{Addr: address, pairs: make(map[pairKey]*Pool)}
}

// AddPair registers a pool for both token orders
func (r *Router) AddPair(tokenA common.Address, tokenB common.Address, pool *Pool) {
	r.pairs[pairKey{tokenA, tokenB}] = pool
	r.pairs[pairKey{tokenB, tokenA}] = pool
}

func (r *Router) Address() common.Address {
	return r.Addr
}

func (r *Router) Pair(_ context.Context, tokenA common.Address, tokenB common.Address) (chainclient.Pool, error) {
	if r.PairErr != nil {
		return nil, r.PairErr
	}
	pool, ok := r.pairs[pairKey{tokenA, tokenB}]
	if !ok {
		return nil, chainclient.ErrPairNotFound
	}
	return pool, nil
}

func (r *Router) SwapExactTokensForTokens(
	_ context.Context,
	wallet *chainclient.Wallet,
	amountIn *big.Int,
	amountOutMin *big.Int,
	path []common.Address,
	to common.Address,
	_ *big.Int,
) (common.Hash, error) {
	if r.SwapErr != nil {
		return common.Hash{}, r.SwapErr
	}
	if r.OnSwap != nil {
		r.OnSwap(amountIn, amountOutMin, path, to)
	}
	return r.record(Call{Method: "swapExactTokensForTokens", From: wallet.Address, To: to, Amount: amountIn, Value: amountOutMin}), nil
}

// Bridge is a warp route with a fixed liquidity
type Bridge struct {
	recorder
	Addr         common.Address
	Available    *big.Int
	LiquidityErr error

	// Failures is the number of leading transferRemote calls that fail
	Failures int
	mu       sync.Mutex
	attempts int
}

var _ chainclient.Bridge = (*Bridge)(nil)

func (b *Bridge) Address() common.Address {
	return b.Addr
}

func (b *Bridge) Liquidity(_ context.Context) (*big.Int, error) {
	if b.LiquidityErr != nil {
		return nil, b.LiquidityErr
	}
	if b.Available == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(b.Available), nil
}

func (b *Bridge) TransferRemote(
	_ context.Context,
	wallet *chainclient.Wallet,
	domain uint32,
	recipient common.Address,
	amount *big.Int,
	value *big.Int,
) (common.Hash, error) {
	b.mu.Lock()
	b.attempts++
	attempt := b.attempts
	b.mu.Unlock()

	if attempt <= b.Failures {
		return common.Hash{}, fmt.Errorf("transferRemote attempt %d to domain %d: %w", attempt, domain, ErrMockFailure)
	}
	return b.record(Call{Method: "transferRemote", From: wallet.Address, To: recipient, Amount: amount, Value: value}), nil
}

// Attempts returns the number of transferRemote calls
func (b *Bridge) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}

// DEX returns fixed rates per fan token
type DEX struct {
	Addr  common.Address
	Rates map[common.Address]*big.Int
	All   []*big.Int
	Err   error
}

var _ chainclient.DEX = (*DEX)(nil)

func (d *DEX) Address() common.Address {
	return d.Addr
}

// GetPrice scales the fixed per-CHZ rate to chzAmount
func (d *DEX) GetPrice(_ context.Context, fanToken common.Address, chzAmount *big.Int) (*big.Int, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	rate, ok := d.Rates[fanToken]
	if !ok {
		return big.NewInt(0), nil
	}
	price := new(big.Int).Mul(rate, chzAmount)
	return price.Quo(price, new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)), nil
}

func (d *DEX) GetAllPrices(_ context.Context, _ *big.Int) ([]*big.Int, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	return d.All, nil
}

// Processor records processPayment calls
type Processor struct {
	recorder
	Addr common.Address
	Err  error
}

var _ chainclient.Processor = (*Processor)(nil)

func (p *Processor) Address() common.Address {
	return p.Addr
}

func (p *Processor) ProcessPayment(
	_ context.Context,
	wallet *chainclient.Wallet,
	_ string,
	merchant common.Address,
	_ common.Address,
	fanTokenAmount *big.Int,
	value *big.Int,
) (common.Hash, error) {
	if p.Err != nil {
		return common.Hash{}, p.Err
	}
	return p.record(Call{Method: "processPayment", From: wallet.Address, To: merchant, Amount: fanTokenAmount, Value: value}), nil
}

// Balances is a BalanceReader backed by a map
type Balances struct {
	mu       sync.Mutex
	balances map[common.Address]*big.Int
	Err      error
}

var _ chainclient.BalanceReader = (*Balances)(nil)

// NewBalances creates an empty balance reader
func NewBalances() *Balances {
	return &Balances{balances: make(map[common.Address]*big.Int)}
}

// Set sets an account balance
func (b *Balances) Set(account common.Address, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[account] = new(big.Int).Set(amount)
}

func (b *Balances) NativeBalance(_ context.Context, account common.Address) (*big.Int, error) {
	if b.Err != nil {
		return nil, b.Err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if v, ok := b.balances[account]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

// DeliveryFeed is a destination warp route whose payouts are appended by tests
type DeliveryFeed struct {
	mu        sync.Mutex
	block     uint64
	transfers []chainclient.ReceivedTransfer
	Err       error
}

var _ chainclient.DeliveryFeed = (*DeliveryFeed)(nil)

// NewDeliveryFeed creates a feed whose chain head is at block
func NewDeliveryFeed(block uint64) *DeliveryFeed {
	return &DeliveryFeed{block: block}
}

// Deliver mines a payout in the next block
func (f *DeliveryFeed) Deliver(origin uint32, recipient common.Address, amount *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.block++
	f.transfers = append(f.transfers, chainclient.ReceivedTransfer{
		Origin:    origin,
		Recipient: recipient,
		Amount:    new(big.Int).Set(amount),
		TxHash:    NextHash(),
		Block:     f.block,
	})
}

func (f *DeliveryFeed) GetLatestBlockNumber(_ context.Context) (uint64, error) {
	if f.Err != nil {
		return 0, f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.block, nil
}

func (f *DeliveryFeed) ReceivedTransfers(_ context.Context, fromBlock uint64, origin uint32, recipient common.Address) ([]chainclient.ReceivedTransfer, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []chainclient.ReceivedTransfer
	for _, transfer := range f.transfers {
		if transfer.Block >= fromBlock && transfer.Origin == origin && transfer.Recipient == recipient {
			matched = append(matched, transfer)
		}
	}
	return matched, nil
}
