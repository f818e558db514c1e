package quote

import (
	"context"
	"errors"
	"math/big"

	"github.com/drift-pay/drift-gateway/pkg/chainclient"
	"github.com/drift-pay/drift-gateway/pkg/chains"
	"github.com/ethereum/go-ethereum/common"
)

// PoolStatus is the health of one configured pair
type PoolStatus struct {
	Pair     string         `json:"pair"`
	Address  common.Address `json:"address"`
	Exists   bool           `json:"exists"`
	Reserve0 *big.Int       `json:"reserve0,omitempty"`
	Reserve1 *big.Int       `json:"reserve1,omitempty"`
	Healthy  bool           `json:"healthy"`
	Error    string         `json:"error,omitempty"`
}

// monitoredPairs are the pairs a payment can route through
var monitoredPairs = [][2]string{
	{chains.SymbolUSDC, chains.SymbolMCHZ},
	{chains.SymbolUSDT, chains.SymbolMCHZ},
	{chains.SymbolUSDC, chains.SymbolWETH},
	{chains.SymbolUSDT, chains.SymbolWETH},
	{chains.SymbolWETH, chains.SymbolMCHZ},
}

// ValidatePools reports whether every routable pair exists and holds reserves
func ValidatePools(ctx context.Context, router chainclient.Router) []PoolStatus {
	statuses := make([]PoolStatus, 0, len(monitoredPairs))
	for _, pair := range monitoredPairs {
		tokenA := chains.MustGetToken(chains.SepoliaChainID, pair[0])
		tokenB := chains.MustGetToken(chains.SepoliaChainID, pair[1])
		status := PoolStatus{Pair: tokenA.Symbol + "/" + tokenB.Symbol}

		pool, err := router.Pair(ctx, tokenA.Address, tokenB.Address)
		if err != nil {
			if !errors.Is(err, chainclient.ErrPairNotFound) {
				status.Error = err.Error()
			}
			statuses = append(statuses, status)
			continue
		}
		status.Exists = true
		status.Address = pool.Address()

		snapshot, err := pool.Snapshot(ctx)
		if err != nil {
			status.Error = err.Error()
			statuses = append(statuses, status)
			continue
		}
		status.Reserve0, status.Reserve1 = snapshot.Oriented(tokenA.Address)
		status.Healthy = status.Reserve0 != nil && status.Reserve1 != nil &&
			status.Reserve0.Sign() > 0 && status.Reserve1.Sign() > 0
		statuses = append(statuses, status)
	}
	return statuses
}
