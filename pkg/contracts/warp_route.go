package contracts

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// HyperlaneWarpRouteABI is the ABI of the Hyperlane collateral warp route
const HyperlaneWarpRouteABI = `[
	{"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"destination","type":"uint32"},{"name":"recipient","type":"bytes32"},{"name":"amount","type":"uint256"}],"name":"transferRemote","outputs":[{"name":"messageId","type":"bytes32"}],"stateMutability":"payable","type":"function"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"destination","type":"uint32"},{"indexed":true,"name":"recipient","type":"bytes32"},{"indexed":false,"name":"amount","type":"uint256"}],"name":"SentTransferRemote","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"origin","type":"uint32"},{"indexed":true,"name":"recipient","type":"bytes32"},{"indexed":false,"name":"amount","type":"uint256"}],"name":"ReceivedTransferRemote","type":"event"}
]`

// ReceivedTransferRemote is a payout of the warp route on its own chain
type ReceivedTransferRemote struct {
	Origin    uint32
	Recipient common.Address
	Amount    *big.Int
	Raw       types.Log
}

// HyperlaneWarpRoute is a binding around a Hyperlane warp route contract
type HyperlaneWarpRoute struct {
	Address  common.Address
	contract *bind.BoundContract
	abi      abi.ABI
	filterer bind.ContractFilterer
}

// NewHyperlaneWarpRoute creates a new warp route binding
func NewHyperlaneWarpRoute(address common.Address, backend bind.ContractBackend) (*HyperlaneWarpRoute, error) {
	contract, err := bindContract(address, HyperlaneWarpRouteABI, backend)
	if err != nil {
		return nil, err
	}
	parsed, err := abi.JSON(strings.NewReader(HyperlaneWarpRouteABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %v", err)
	}
	return &HyperlaneWarpRoute{Address: address, contract: contract, abi: parsed, filterer: backend}, nil
}

// BalanceOf is a free data retrieval call binding the contract method balanceOf
func (w *HyperlaneWarpRoute) BalanceOf(opts *bind.CallOpts, account common.Address) (*big.Int, error) {
	return callUint256(w.contract, opts, "balanceOf", account)
}

// TransferRemote is a paid mutator transaction binding the contract method transferRemote
func (w *HyperlaneWarpRoute) TransferRemote(opts *bind.TransactOpts, destination uint32, recipient [32]byte, amount *big.Int) (*types.Transaction, error) {
	return w.contract.Transact(opts, "transferRemote", destination, recipient, amount)
}

// FilterReceivedTransferRemote returns the payouts from origin to recipient emitted since fromBlock
func (w *HyperlaneWarpRoute) FilterReceivedTransferRemote(ctx context.Context, fromBlock uint64, origin uint32, recipient common.Address) ([]ReceivedTransferRemote, error) {
	topics, err := abi.MakeTopics(
		[]interface{}{w.abi.Events["ReceivedTransferRemote"].ID},
		[]interface{}{origin},
		[]interface{}{common.Hash(AddressToBytes32(recipient))},
	)
	if err != nil {
		return nil, err
	}
	logs, err := w.filterer.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		Addresses: []common.Address{w.Address},
		Topics:    topics,
	})
	if err != nil {
		return nil, err
	}

	events := make([]ReceivedTransferRemote, 0, len(logs))
	for _, log := range logs {
		event, err := w.ParseReceivedTransferRemote(log)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// ParseReceivedTransferRemote decodes a ReceivedTransferRemote log
func (w *HyperlaneWarpRoute) ParseReceivedTransferRemote(log types.Log) (ReceivedTransferRemote, error) {
	event := w.abi.Events["ReceivedTransferRemote"]
	if len(log.Topics) != 3 || log.Topics[0] != event.ID {
		return ReceivedTransferRemote{}, fmt.Errorf("log %s is not a ReceivedTransferRemote", log.TxHash.Hex())
	}
	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return ReceivedTransferRemote{}, fmt.Errorf("failed to unpack ReceivedTransferRemote: %v", err)
	}
	return ReceivedTransferRemote{
		Origin:    uint32(new(big.Int).SetBytes(log.Topics[1].Bytes()).Uint64()),
		Recipient: common.BytesToAddress(log.Topics[2].Bytes()),
		Amount:    *abi.ConvertType(values[0], new(*big.Int)).(**big.Int),
		Raw:       log,
	}, nil
}

// AddressToBytes32 left-pads an address the way Hyperlane encodes recipients
func AddressToBytes32(address common.Address) [32]byte {
	return common.BytesToHash(address.Bytes())
}
