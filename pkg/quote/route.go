package quote

import (
	"context"
	"errors"
	"strings"

	"github.com/drift-pay/drift-gateway/pkg/chainclient"
	"github.com/drift-pay/drift-gateway/pkg/chains"
	"github.com/ethereum/go-ethereum/common"
)

// Route is the sequence of tokens and pools a payment is swapped through
type Route struct {
	Tokens []chains.Token
	Pools  []chainclient.Pool
}

// Description renders the route as "USDC → WETH → MCHZ"
func (r Route) Description() string {
	symbols := make([]string, len(r.Tokens))
	for i, token := range r.Tokens {
		symbols[i] = token.Symbol
	}
	return strings.Join(symbols, " → ")
}

// Path returns the token addresses for the router
func (r Route) Path() []common.Address {
	path := make([]common.Address, len(r.Tokens))
	for i, token := range r.Tokens {
		path[i] = token.Address
	}
	return path
}

// ResolveRoute finds a pool path from the payment token to MCHZ, preferring the direct pair
// and falling back to routing through WETH when the direct pair is absent or unreadable
func ResolveRoute(ctx context.Context, router chainclient.Router, payment chains.Token) (Route, error) {
	mchz := chains.MustGetToken(chains.SepoliaChainID, chains.SymbolMCHZ)
	weth := chains.MustGetToken(chains.SepoliaChainID, chains.SymbolWETH)

	direct, directErr := router.Pair(ctx, payment.Address, mchz.Address)
	if directErr == nil {
		return Route{Tokens: []chains.Token{payment, mchz}, Pools: []chainclient.Pool{direct}}, nil
	}

	first, err := router.Pair(ctx, payment.Address, weth.Address)
	if err != nil {
		return Route{}, routeError(payment, directErr)
	}
	second, err := router.Pair(ctx, weth.Address, mchz.Address)
	if err != nil {
		return Route{}, routeError(payment, directErr)
	}
	return Route{
		Tokens: []chains.Token{payment, weth, mchz},
		Pools:  []chainclient.Pool{first, second},
	}, nil
}

func routeError(payment chains.Token, err error) *QuoteError {
	if errors.Is(err, chainclient.ErrPairNotFound) {
		return newError(KindPoolUnavailable, err, "no %s/MCHZ pool or route through WETH", payment.Symbol)
	}
	return newError(KindPoolUnavailable, err, "failed to resolve %s/MCHZ pool", payment.Symbol)
}

// readHops snapshots every pool of the route, oriented along the route
func readHops(ctx context.Context, route Route) ([]Hop, error) {
	hops := make([]Hop, len(route.Pools))
	for i, pool := range route.Pools {
		snapshot, err := pool.Snapshot(ctx)
		if err != nil {
			return nil, newError(KindPoolUnavailable, err, "failed to read pool %s", pool.Address().Hex())
		}
		if snapshot.Reserve0 == nil || snapshot.Reserve1 == nil || snapshot.TotalSupply == nil ||
			snapshot.Reserve0.Sign() == 0 || snapshot.Reserve1.Sign() == 0 || snapshot.TotalSupply.Sign() == 0 {
			return nil, newError(KindInsufficientLiquidity, nil, "pool %s %s/%s has no liquidity",
				pool.Address().Hex(), route.Tokens[i].Symbol, route.Tokens[i+1].Symbol)
		}
		reserveIn, reserveOut := snapshot.Oriented(route.Tokens[i].Address)
		hops[i] = Hop{ReserveIn: reserveIn, ReserveOut: reserveOut}
	}
	return hops, nil
}
