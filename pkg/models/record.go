package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionRecord is the durable mirror row of an intent
type TransactionRecord struct {
	PaymentID          string     `json:"payment_id"`
	Merchant           string     `json:"merchant"`
	UserAddress        string     `json:"user_address"`
	FanTokenSymbol     string     `json:"fan_token_symbol"`
	FanTokenAmount     string     `json:"fan_token_amount"`
	PaymentToken       string     `json:"payment_token"`
	PaymentTokenAmount string     `json:"payment_token_amount"`
	USDValue           string     `json:"usd_value"`
	TransactionHash    string     `json:"transaction_hash"`
	Status             string     `json:"status"`
	CreatedAt          time.Time  `json:"created_at"`
	CompletedAt        *time.Time `json:"completed_at"`
}

// NewTransactionRecord projects an intent into its mirror row.
// Payment tokens are USD stablecoins so the USD value is the quoted payment amount.
func NewTransactionRecord(intent *PaymentIntent) TransactionRecord {
	record := TransactionRecord{
		PaymentID:          intent.ID,
		Merchant:           intent.MerchantAddress.Hex(),
		UserAddress:        intent.UserAddress.Hex(),
		FanTokenSymbol:     intent.FanTokenSymbol,
		FanTokenAmount:     intent.FanTokenAmount,
		PaymentToken:       intent.PaymentToken,
		PaymentTokenAmount: intent.Quote.PaymentTokenNeeded,
		USDValue:           usdValue(intent.Quote.PaymentTokenNeeded),
		Status:             string(intent.Status),
		CreatedAt:          intent.CreatedAt,
		CompletedAt:        cloneTime(intent.CompletedAt),
	}
	if intent.FinalTransactionHash != nil {
		record.TransactionHash = *intent.FinalTransactionHash
	} else {
		record.TransactionHash = intent.Steps.UserPayment.TransactionHash
	}
	return record
}

func usdValue(amount string) string {
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return "0.00"
	}
	return value.Shift(2).Ceil().Shift(-2).StringFixed(2)
}
