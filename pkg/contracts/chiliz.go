package contracts

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ChilizDEXABI is the ABI of the Chiliz fan-token price contract
const ChilizDEXABI = `[
	{"inputs":[{"name":"token","type":"address"},{"name":"chzAmount","type":"uint256"}],"name":"getPrice","outputs":[{"name":"tokens","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"chzAmount","type":"uint256"}],"name":"getAllPrices","outputs":[
		{"name":"psgTokens","type":"uint256"},{"name":"barTokens","type":"uint256"},{"name":"spursTokens","type":"uint256"},
		{"name":"acmTokens","type":"uint256"},{"name":"ogTokens","type":"uint256"},{"name":"cityTokens","type":"uint256"},
		{"name":"afcTokens","type":"uint256"},{"name":"mengoTokens","type":"uint256"},{"name":"juvTokens","type":"uint256"},
		{"name":"napTokens","type":"uint256"},{"name":"atmTokens","type":"uint256"}
	],"stateMutability":"view","type":"function"}
]`

// PaymentProcessorABI is the ABI of the destination-chain payment processor
const PaymentProcessorABI = `[
	{"inputs":[{"name":"paymentId","type":"string"},{"name":"merchant","type":"address"},{"name":"fanToken","type":"address"},{"name":"fanTokenAmount","type":"uint256"}],"name":"processPayment","outputs":[],"stateMutability":"payable","type":"function"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"paymentId","type":"string"},{"indexed":true,"name":"merchant","type":"address"},{"indexed":false,"name":"fanToken","type":"address"},{"indexed":false,"name":"totalFanTokens","type":"uint256"}],"name":"PaymentCompleted","type":"event"}
]`

// ChilizDEX is a binding around the Chiliz fan-token price contract
type ChilizDEX struct {
	Address  common.Address
	contract *bind.BoundContract
}

// NewChilizDEX creates a new DEX binding
func NewChilizDEX(address common.Address, backend bind.ContractBackend) (*ChilizDEX, error) {
	contract, err := bindContract(address, ChilizDEXABI, backend)
	if err != nil {
		return nil, err
	}
	return &ChilizDEX{Address: address, contract: contract}, nil
}

// GetPrice returns the fan tokens obtainable for chzAmount, scaled to 18 decimals
func (d *ChilizDEX) GetPrice(opts *bind.CallOpts, token common.Address, chzAmount *big.Int) (*big.Int, error) {
	return callUint256(d.contract, opts, "getPrice", token, chzAmount)
}

// GetAllPrices returns prices of every listed fan token in contract order
func (d *ChilizDEX) GetAllPrices(opts *bind.CallOpts, chzAmount *big.Int) ([]*big.Int, error) {
	var out []interface{}
	if err := d.contract.Call(opts, &out, "getAllPrices", chzAmount); err != nil {
		return nil, err
	}
	prices := make([]*big.Int, len(out))
	for i := range out {
		prices[i] = *abi.ConvertType(out[i], new(*big.Int)).(**big.Int)
	}
	return prices, nil
}

// PaymentProcessor is a binding around the destination-chain payment processor
type PaymentProcessor struct {
	Address  common.Address
	contract *bind.BoundContract
}

// NewPaymentProcessor creates a new processor binding
func NewPaymentProcessor(address common.Address, backend bind.ContractBackend) (*PaymentProcessor, error) {
	contract, err := bindContract(address, PaymentProcessorABI, backend)
	if err != nil {
		return nil, err
	}
	return &PaymentProcessor{Address: address, contract: contract}, nil
}

// ProcessPayment is a paid mutator transaction binding the contract method processPayment
func (p *PaymentProcessor) ProcessPayment(opts *bind.TransactOpts, paymentID string, merchant common.Address, fanToken common.Address, fanTokenAmount *big.Int) (*types.Transaction, error) {
	return p.contract.Transact(opts, "processPayment", paymentID, merchant, fanToken, fanTokenAmount)
}
