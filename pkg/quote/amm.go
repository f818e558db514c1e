package quote

import (
	"math/big"
)

const bpsDenominator = 10000

// Hop is the oriented reserves of one pool along a route
type Hop struct {
	ReserveIn  *big.Int
	ReserveOut *big.Int
}

// GetAmountIn returns the input needed to receive amountOut from a constant-product pool:
// ceil(amountOut * reserveIn / (reserveOut - amountOut)) grossed up by feeDenominator/feeNumerator, rounding up
func GetAmountIn(amountOut *big.Int, reserveIn *big.Int, reserveOut *big.Int, feeNumerator int64, feeDenominator int64) (*big.Int, error) {
	if amountOut.Sign() <= 0 {
		return nil, newError(KindInsufficientOutputAmount, nil, "requested output must be positive")
	}
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, newError(KindInsufficientLiquidity, nil, "pool has no reserves")
	}
	if amountOut.Cmp(reserveOut) >= 0 {
		return nil, newError(KindInsufficientOutputAmount, nil,
			"requested output %s exceeds pool reserve %s", amountOut.String(), reserveOut.String())
	}

	raw := ceilDiv(
		new(big.Int).Mul(amountOut, reserveIn),
		new(big.Int).Sub(reserveOut, amountOut),
	)
	return ceilDiv(
		new(big.Int).Mul(raw, big.NewInt(feeDenominator)),
		big.NewInt(feeNumerator),
	), nil
}

// GetAmountsIn walks a route backwards from the final output, returning the input of every hop
func GetAmountsIn(amountOut *big.Int, hops []Hop, feeNumerator int64, feeDenominator int64) ([]*big.Int, error) {
	amounts := make([]*big.Int, len(hops)+1)
	amounts[len(hops)] = new(big.Int).Set(amountOut)
	for i := len(hops) - 1; i >= 0; i-- {
		in, err := GetAmountIn(amounts[i+1], hops[i].ReserveIn, hops[i].ReserveOut, feeNumerator, feeDenominator)
		if err != nil {
			return nil, err
		}
		amounts[i] = in
	}
	return amounts, nil
}

// GetAmountOut returns the output of swapping amountIn through a constant-product pool, rounding down
func GetAmountOut(amountIn *big.Int, reserveIn *big.Int, reserveOut *big.Int, feeNumerator int64, feeDenominator int64) *big.Int {
	inWithFee := new(big.Int).Mul(amountIn, big.NewInt(feeNumerator))
	numerator := new(big.Int).Mul(inWithFee, reserveOut)
	denominator := new(big.Int).Add(new(big.Int).Mul(reserveIn, big.NewInt(feeDenominator)), inWithFee)
	return numerator.Quo(numerator, denominator)
}

// ApplySlippage adds a buffer of bps on top of amount, rounding up
func ApplySlippage(amount *big.Int, bps int64) *big.Int {
	return ceilDiv(
		new(big.Int).Mul(amount, big.NewInt(bpsDenominator+bps)),
		big.NewInt(bpsDenominator),
	)
}

// ApplyTolerance reduces amount by bps, rounding down
func ApplyTolerance(amount *big.Int, bps int64) *big.Int {
	reduced := new(big.Int).Mul(amount, big.NewInt(bpsDenominator-bps))
	return reduced.Quo(reduced, big.NewInt(bpsDenominator))
}

func ceilDiv(numerator *big.Int, denominator *big.Int) *big.Int {
	quotient, remainder := new(big.Int).QuoRem(numerator, denominator, new(big.Int))
	if remainder.Sign() > 0 {
		quotient.Add(quotient, big.NewInt(1))
	}
	return quotient
}
