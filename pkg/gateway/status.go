package gateway

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/drift-pay/drift-gateway/pkg/chainclient"
	"github.com/drift-pay/drift-gateway/pkg/chains"
	"github.com/drift-pay/drift-gateway/pkg/health"
	"github.com/drift-pay/drift-gateway/pkg/metrics"
	"github.com/ethereum/go-ethereum/common"
)

var _ health.StatusSource = (*Service)(nil)

// chainReader is the part of a chain client the status report reads
type chainReader interface {
	chainclient.BalanceReader
	GetLatestBlockNumber(ctx context.Context) (uint64, error)
}

// chainMonitor reports the block height and the balances of the wallet working on one chain
type chainMonitor struct {
	chainID int
	rpcURL  string
	reader  chainReader
	native  string
	account common.Address
	tokens  map[string]chainclient.Token
}

func newChainMonitor(client *chainclient.Client, native string, account common.Address, tokens map[string]chainclient.Token) *chainMonitor {
	return &chainMonitor{
		chainID: client.ChainID,
		rpcURL:  client.RPCURL,
		reader:  client,
		native:  native,
		account: account,
		tokens:  tokens,
	}
}

// Ready reports an error while any chain is unconnected
func (s *Service) Ready() error {
	if len(s.monitors) == 0 {
		return errors.New("no chain clients connected")
	}
	for _, monitor := range s.monitors {
		if monitor.reader == nil {
			return fmt.Errorf("chain %d client not connected", monitor.chainID)
		}
	}
	return nil
}

// ChainStatuses reads the block height and wallet balances of every chain
func (s *Service) ChainStatuses(ctx context.Context) []health.ChainStatus {
	statuses := make([]health.ChainStatus, 0, len(s.monitors))
	for _, monitor := range s.monitors {
		statuses = append(statuses, monitor.status(ctx))
	}
	return statuses
}

func (p *chainMonitor) status(ctx context.Context) health.ChainStatus {
	status := health.ChainStatus{
		ChainID: p.chainID,
		Name:    chains.GetChainName(p.chainID),
		RPCURL:  p.rpcURL,
	}
	if p.reader == nil {
		status.Error = "not connected"
		return status
	}

	block, err := p.reader.GetLatestBlockNumber(ctx)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.Connected = true
	status.LatestBlock = block
	status.Balances = make(map[string]string)

	if balance, err := p.reader.NativeBalance(ctx, p.account); err == nil {
		status.Balances[p.native] = p.record(p.native, chains.FormatBaseUnits(balance, chains.PriceDecimals))
	}

	symbols := make([]string, 0, len(p.tokens))
	for symbol := range p.tokens {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	for _, symbol := range symbols {
		registered, ok := chains.GetToken(p.chainID, symbol)
		if !ok {
			continue
		}
		balance, err := p.tokens[symbol].BalanceOf(ctx, p.account)
		if err != nil {
			continue
		}
		status.Balances[symbol] = p.record(symbol, chains.FormatBaseUnits(balance, registered.Decimals))
	}
	return status
}

// record publishes a formatted balance as the operator balance gauge
func (p *chainMonitor) record(symbol string, formatted string) string {
	if value, err := strconv.ParseFloat(formatted, 64); err == nil {
		metrics.OperatorBalance.WithLabelValues(strconv.Itoa(p.chainID), symbol).Set(value)
	}
	return formatted
}
