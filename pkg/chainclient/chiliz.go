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

// ChilizDEX implements DEX over the fan-token DEX binding
type ChilizDEX struct {
	client   *Client
	contract *contracts.ChilizDEX
}

var _ DEX = (*ChilizDEX)(nil)

// NewChilizDEX binds the DEX on the client's chain
func NewChilizDEX(client *Client, address common.Address) (*ChilizDEX, error) {
	contract, err := contracts.NewChilizDEX(address, client.Backend)
	if err != nil {
		return nil, fmt.Errorf("failed to bind DEX %s: %v", address.Hex(), err)
	}
	return &ChilizDEX{client: client, contract: contract}, nil
}

func (d *ChilizDEX) Address() common.Address {
	return d.contract.Address
}

func (d *ChilizDEX) GetPrice(ctx context.Context, fanToken common.Address, chzAmount *big.Int) (*big.Int, error) {
	opts, cancel := d.client.callOpts(ctx)
	defer cancel()

	price, err := d.contract.GetPrice(opts, fanToken, chzAmount)
	if err != nil {
		return nil, d.client.readError("getPrice", d.contract.Address, err)
	}
	return price, nil
}

func (d *ChilizDEX) GetAllPrices(ctx context.Context, chzAmount *big.Int) ([]*big.Int, error) {
	opts, cancel := d.client.callOpts(ctx)
	defer cancel()

	prices, err := d.contract.GetAllPrices(opts, chzAmount)
	if err != nil {
		return nil, d.client.readError("getAllPrices", d.contract.Address, err)
	}
	return prices, nil
}

// PaymentProcessor implements Processor over the payment processor binding
type PaymentProcessor struct {
	client   *Client
	contract *contracts.PaymentProcessor
}

var _ Processor = (*PaymentProcessor)(nil)

// NewPaymentProcessor binds the processor on the client's chain
func NewPaymentProcessor(client *Client, address common.Address) (*PaymentProcessor, error) {
	contract, err := contracts.NewPaymentProcessor(address, client.Backend)
	if err != nil {
		return nil, fmt.Errorf("failed to bind payment processor %s: %v", address.Hex(), err)
	}
	return &PaymentProcessor{client: client, contract: contract}, nil
}

func (p *PaymentProcessor) Address() common.Address {
	return p.contract.Address
}

func (p *PaymentProcessor) ProcessPayment(
	ctx context.Context,
	wallet *Wallet,
	paymentID string,
	merchant common.Address,
	fanToken common.Address,
	fanTokenAmount *big.Int,
	value *big.Int,
) (common.Hash, error) {
	return p.client.Send(ctx, wallet, "processPayment", p.contract.Address, value, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return p.contract.ProcessPayment(opts, paymentID, merchant, fanToken, fanTokenAmount)
	})
}
