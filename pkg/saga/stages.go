package saga

import (
	"context"
	"fmt"
	"math/big"

	"github.com/drift-pay/drift-gateway/pkg/chainclient"
	"github.com/drift-pay/drift-gateway/pkg/chains"
	"github.com/drift-pay/drift-gateway/pkg/models"
	"github.com/drift-pay/drift-gateway/pkg/quote"
	"github.com/ethereum/go-ethereum/common"
)

// userPayment moves the quoted payment from the buyer to the operator. Every failure is fatal.
func (o *Orchestrator) userPayment(ctx context.Context, intent *models.PaymentIntent, buyer *chainclient.Wallet) (stageResult, error) {
	const stage = models.StepUserPayment
	operator := o.wallets.Operator.Address
	amount := intent.Quote.PaymentTokenNeededBaseUnits

	token, err := o.contracts.Tokens.Token(chains.SepoliaChainID, intent.PaymentToken)
	if err != nil {
		return stageResult{}, stageError(stage, KindRemoteRead, err, "payment token unavailable")
	}

	callCtx, cancel := o.callContext(ctx)
	balance, err := token.BalanceOf(callCtx, intent.UserAddress)
	cancel()
	if err != nil {
		return stageResult{}, stageError(stage, KindRemoteRead, err, "failed to read buyer balance")
	}
	if balance.Cmp(amount) < 0 {
		return stageResult{}, stageError(stage, KindInsufficientBalance, nil, "buyer holds %s %s, %s needed",
			formatPayment(balance, intent.PaymentToken), intent.PaymentToken, intent.Quote.PaymentTokenNeeded)
	}

	if buyer != nil {
		if buyer.Address != intent.UserAddress {
			return stageResult{}, stageError(stage, KindInvalidCredential, nil,
				"credential for %s cannot pay for %s", buyer.Address.Hex(), intent.UserAddress.Hex())
		}
		callCtx, cancel := o.callContext(ctx)
		defer cancel()
		hash, err := token.Transfer(callCtx, buyer, operator, amount)
		if err != nil {
			return stageResult{}, stageError(stage, KindRemoteWrite, err, "buyer transfer failed")
		}
		return stageResult{txHash: hash.Hex()}, nil
	}

	callCtx, cancel = o.callContext(ctx)
	allowance, err := token.Allowance(callCtx, intent.UserAddress, operator)
	cancel()
	if err != nil {
		return stageResult{}, stageError(stage, KindRemoteRead, err, "failed to read allowance")
	}
	if allowance.Cmp(amount) < 0 {
		return stageResult{}, stageError(stage, KindInsufficientAllowance, nil, "buyer approved %s %s, %s needed",
			formatPayment(allowance, intent.PaymentToken), intent.PaymentToken, intent.Quote.PaymentTokenNeeded)
	}

	callCtx, cancel = o.callContext(ctx)
	defer cancel()
	hash, err := token.TransferFrom(callCtx, o.wallets.Operator, intent.UserAddress, operator, amount)
	if err != nil {
		return stageResult{}, stageError(stage, KindRemoteWrite, err, "transferFrom failed")
	}
	return stageResult{txHash: hash.Hex()}, nil
}

// uniswapSwap swaps the payment into MCHZ, falling back to the operator's MCHZ float
func (o *Orchestrator) uniswapSwap(ctx context.Context, intent *models.PaymentIntent) (stageResult, error) {
	const stage = models.StepUniswapSwap
	operator := o.wallets.Operator
	chzNeeded := intent.Quote.ChzNeededWei

	mchz, err := o.contracts.Tokens.Token(chains.SepoliaChainID, chains.SymbolMCHZ)
	if err != nil {
		return stageResult{}, stageError(stage, KindRemoteRead, err, "MCHZ token unavailable")
	}

	hash, swapErr := o.swap(ctx, intent)
	if swapErr == nil {
		return stageResult{txHash: hash.Hex()}, nil
	}

	callCtx, cancel := o.callContext(ctx)
	float, err := mchz.BalanceOf(callCtx, operator.Address)
	cancel()
	if err != nil {
		return stageResult{}, stageError(stage, KindInsufficientFloat, swapErr, "swap failed and MCHZ float is unreadable (%v)", err)
	}
	if float.Cmp(chzNeeded) < 0 {
		return stageResult{}, stageError(stage, KindInsufficientFloat, swapErr, "swap failed and MCHZ float %s is below %s",
			chains.FormatBaseUnits(float, chains.PriceDecimals), intent.Quote.ChzNeeded)
	}
	return stageResult{fallback: models.FallbackFloatReserve, cause: swapErr}, nil
}

func (o *Orchestrator) swap(ctx context.Context, intent *models.PaymentIntent) (common.Hash, error) {
	operator := o.wallets.Operator
	amountIn := intent.Quote.PaymentTokenNeededBaseUnits
	minOut := quote.ApplyTolerance(intent.Quote.ChzNeededWei, o.config.SwapToleranceBps)

	token, err := o.contracts.Tokens.Token(chains.SepoliaChainID, intent.PaymentToken)
	if err != nil {
		return common.Hash{}, err
	}
	path := intent.Quote.RoutePath
	if len(path) < 2 {
		mchz := chains.MustGetToken(chains.SepoliaChainID, chains.SymbolMCHZ)
		path = []common.Address{token.Address(), mchz.Address}
	}

	callCtx, cancel := o.callContext(ctx)
	_, err = token.Approve(callCtx, operator, o.contracts.Router.Address(), amountIn)
	cancel()
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to approve router: %w", err)
	}

	deadline := big.NewInt(o.now().Add(o.config.SwapDeadline).Unix())
	callCtx, cancel = o.callContext(ctx)
	defer cancel()
	return o.contracts.Router.SwapExactTokensForTokens(callCtx, operator, amountIn, minOut, path, operator.Address, deadline)
}

// bridgeTransfer sends the MCHZ to the processor on the destination chain. Chain writes never fail
// the saga: a plain transfer is retried with native value attached, then bypassed.
// A destination without a Hyperlane domain is fatal.
func (o *Orchestrator) bridgeTransfer(ctx context.Context, intent *models.PaymentIntent) (stageResult, error) {
	operator := o.wallets.Operator
	amount := intent.Quote.ChzNeededWei
	recipient := o.contracts.Processor.Address()
	domain, ok := chains.GetHyperlaneDomain(o.config.DestinationChainID)
	if !ok {
		return stageResult{}, stageError(models.StepBridgeTransfer, KindUnknownDestination, nil,
			"no Hyperlane domain for chain %d", o.config.DestinationChainID)
	}

	mchz, err := o.contracts.Tokens.Token(chains.SepoliaChainID, chains.SymbolMCHZ)
	if err == nil {
		callCtx, cancel := o.callContext(ctx)
		_, err = mchz.Approve(callCtx, operator, o.contracts.Bridge.Address(), amount)
		cancel()
	}
	if err != nil {
		o.logger.ErrorWithChain(chains.SepoliaChainID, "Payment %s: failed to approve bridge: %v", intent.ID, err)
	}

	callCtx, cancel := o.callContext(ctx)
	hash, firstErr := o.contracts.Bridge.TransferRemote(callCtx, operator, domain, recipient, amount, nil)
	cancel()
	if firstErr == nil {
		return stageResult{txHash: hash.Hex()}, nil
	}
	o.logger.ErrorWithChain(chains.SepoliaChainID, "Payment %s: transferRemote failed, retrying with native value: %v", intent.ID, firstErr)

	callCtx, cancel = o.callContext(ctx)
	hash, err = o.contracts.Bridge.TransferRemote(callCtx, operator, domain, recipient, amount, o.config.BridgeGasValue)
	cancel()
	if err == nil {
		return stageResult{txHash: hash.Hex(), fallback: models.FallbackNativeValue, cause: firstErr}, nil
	}
	return stageResult{txHash: models.BypassedTxMarker, fallback: models.FallbackBypassed, cause: err}, nil
}

// fanTokenConversion delivers the fan tokens to the merchant from the float wallet, through the
// processor contract when the float is short, and completes silently when both fail
func (o *Orchestrator) fanTokenConversion(ctx context.Context, intent *models.PaymentIntent) (stageResult, error) {
	const stage = models.StepFanTokenConversion

	registered, units, err := fanTokenUnits(intent)
	if err != nil {
		return stageResult{}, stageError(stage, KindRemoteRead, err, "invalid fan token amount")
	}
	fanToken, err := o.contracts.Tokens.Token(chains.ChilizSpicyChainID, registered.Symbol)
	if err != nil {
		return stageResult{}, stageError(stage, KindRemoteRead, err, "fan token unavailable")
	}

	callCtx, cancel := o.callContext(ctx)
	float, err := fanToken.BalanceOf(callCtx, o.wallets.Float.Address)
	cancel()

	var cause error
	switch {
	case err != nil:
		cause = fmt.Errorf("failed to read float balance: %w", err)
	case float.Cmp(units) < 0:
		cause = fmt.Errorf("float holds %s %s, %s needed", float.String(), registered.Symbol, units.String())
	default:
		callCtx, cancel := o.callContext(ctx)
		hash, err := fanToken.Transfer(callCtx, o.wallets.Float, intent.MerchantAddress, units)
		cancel()
		if err == nil {
			return stageResult{txHash: hash.Hex()}, nil
		}
		cause = err
	}

	callCtx, cancel = o.callContext(ctx)
	hash, err := o.contracts.Processor.ProcessPayment(callCtx, o.wallets.Operator, intent.ID,
		intent.MerchantAddress, fanToken.Address(), units, intent.Quote.ChzNeededWei)
	cancel()
	if err == nil {
		return stageResult{txHash: hash.Hex(), fallback: models.FallbackProcessorContract, cause: cause}, nil
	}
	return stageResult{fallback: models.FallbackSilent, cause: fmt.Errorf("%v; processor: %w", cause, err)}, nil
}

// fanTokenUnits converts the intent's fan token amount to exact base units
func fanTokenUnits(intent *models.PaymentIntent) (chains.Token, *big.Int, error) {
	registered, err := chains.GetFanToken(intent.FanTokenSymbol)
	if err != nil {
		return chains.Token{}, nil, err
	}
	amount, err := chains.ParseAmount(intent.FanTokenAmount)
	if err != nil {
		return chains.Token{}, nil, err
	}
	units := amount.Shift(registered.Decimals)
	if !units.IsInteger() {
		return chains.Token{}, nil, fmt.Errorf("%s %s: %w", intent.FanTokenAmount, registered.Symbol, ErrUnrepresentableAmount)
	}
	return registered, units.BigInt(), nil
}

func formatPayment(amount *big.Int, symbol string) string {
	token, err := chains.GetPaymentToken(symbol)
	if err != nil {
		return amount.String()
	}
	return chains.FormatBaseUnits(amount, token.Decimals)
}
