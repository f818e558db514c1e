package models

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// PricingMode selects how a quote was priced
type PricingMode string

const (
	PricingModeAMM   PricingMode = "amm"
	PricingModeFixed PricingMode = "fixed"
)

// PaymentQuote is the price of a fan-token purchase, immutable once returned
type PaymentQuote struct {
	FanTokenSymbol              string           `json:"fanTokenSymbol"`
	FanTokenAmount              string           `json:"fanTokenAmount"`
	PaymentToken                string           `json:"paymentToken"`
	PaymentTokenNeeded          string           `json:"paymentTokenNeeded"`
	PaymentTokenNeededBaseUnits *big.Int         `json:"paymentTokenNeededBaseUnits"`
	ChzNeeded                   string           `json:"chzNeeded"`
	ChzNeededWei                *big.Int         `json:"chzNeededWei"`
	BridgeBalance               string           `json:"bridgeBalance"`
	Slippage                    string           `json:"slippage"`
	SlippageBps                 int64            `json:"slippageBps"`
	Route                       string           `json:"route"`
	RoutePath                   []common.Address `json:"routePath,omitempty"`
	PricingMode                 PricingMode      `json:"pricingMode"`
	QuotedAt                    time.Time        `json:"quotedAt"`
}

// Clone returns a deep copy of the quote
func (q PaymentQuote) Clone() PaymentQuote {
	c := q
	c.PaymentTokenNeededBaseUnits = cloneBig(q.PaymentTokenNeededBaseUnits)
	c.ChzNeededWei = cloneBig(q.ChzNeededWei)
	if q.RoutePath != nil {
		c.RoutePath = append([]common.Address(nil), q.RoutePath...)
	}
	return c
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
