package models

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completedSteps(start time.Time) StepMap {
	steps := NewStepMap()
	for i, name := range StepOrder {
		at := start.Add(time.Duration(i) * time.Second)
		step := steps.Get(name)
		step.Status = StepStatusCompleted
		step.StartedAt = &at
		step.CompletedAt = &at
	}
	return steps
}

func TestCheckConsistency(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		intent  func() *PaymentIntent
		wantErr string
	}{
		{
			name: "fresh intent",
			intent: func() *PaymentIntent {
				return &PaymentIntent{Status: IntentStatusCreated, Steps: NewStepMap()}
			},
		},
		{
			name: "all completed",
			intent: func() *PaymentIntent {
				return &PaymentIntent{Status: IntentStatusCompleted, Steps: completedSteps(now)}
			},
		},
		{
			name: "failed first step",
			intent: func() *PaymentIntent {
				steps := NewStepMap()
				steps.UserPayment.Status = StepStatusFailed
				return &PaymentIntent{Status: IntentStatusFailed, Steps: steps}
			},
		},
		{
			name: "swap started before user payment completed",
			intent: func() *PaymentIntent {
				steps := NewStepMap()
				steps.UserPayment.Status = StepStatusProcessing
				steps.UniswapSwap.Status = StepStatusProcessing
				return &PaymentIntent{Status: IntentStatusProcessing, Steps: steps}
			},
			wantErr: "step uniswapSwap is processing while userPayment has not completed",
		},
		{
			name: "completed status with pending steps",
			intent: func() *PaymentIntent {
				steps := NewStepMap()
				steps.UserPayment.Status = StepStatusCompleted
				return &PaymentIntent{Status: IntentStatusCompleted, Steps: steps}
			},
			wantErr: "status completed but step uniswapSwap is not",
		},
		{
			name: "failed step with processing status",
			intent: func() *PaymentIntent {
				steps := NewStepMap()
				steps.UserPayment.Status = StepStatusFailed
				return &PaymentIntent{Status: IntentStatusProcessing, Steps: steps}
			},
			wantErr: "a step failed but status is processing",
		},
		{
			name: "completion timestamps out of order",
			intent: func() *PaymentIntent {
				steps := completedSteps(now)
				earlier := now.Add(-time.Hour)
				steps.MerchantPayment.CompletedAt = &earlier
				return &PaymentIntent{Status: IntentStatusCompleted, Steps: steps}
			},
			wantErr: "step merchantPayment completed before the previous step",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.intent().CheckConsistency()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestClone(t *testing.T) {
	hash := "0xabc"
	completed := time.Now()
	original := &PaymentIntent{
		ID:                   "pay_1",
		Status:               IntentStatusCompleted,
		Steps:                completedSteps(completed),
		FinalTransactionHash: &hash,
		CompletedAt:          &completed,
		WebhookURLs:          []string{"https://merchant.example/hook"},
		Quote: PaymentQuote{
			PaymentTokenNeededBaseUnits: big.NewInt(1_751_000),
		},
	}

	clone := original.Clone()
	*clone.FinalTransactionHash = "0xdef"
	clone.WebhookURLs[0] = "changed"
	clone.Quote.PaymentTokenNeededBaseUnits.SetInt64(1)
	clone.Steps.UserPayment.Status = StepStatusFailed
	*clone.Steps.BridgeTransfer.CompletedAt = time.Time{}

	assert.Equal(t, "0xabc", *original.FinalTransactionHash)
	assert.Equal(t, "https://merchant.example/hook", original.WebhookURLs[0])
	assert.Equal(t, int64(1_751_000), original.Quote.PaymentTokenNeededBaseUnits.Int64())
	assert.Equal(t, StepStatusCompleted, original.Steps.UserPayment.Status)
	assert.False(t, original.Steps.BridgeTransfer.CompletedAt.IsZero())
}

func TestEventName(t *testing.T) {
	assert.Equal(t, EventPaymentInitiated, EventName(StepUserPayment, StepStatusCompleted))
	assert.Equal(t, EventPaymentCompleted, EventName(StepMerchantPayment, StepStatusCompleted))
	assert.Equal(t, EventStepUpdated, EventName(StepUserPayment, StepStatusProcessing))
	assert.Equal(t, EventStepUpdated, EventName(StepBridgeTransfer, StepStatusCompleted))
}

func TestNewTransactionRecord(t *testing.T) {
	hash := "0xfinal"
	intent := &PaymentIntent{
		ID:             "pay_1",
		FanTokenSymbol: "PSG",
		FanTokenAmount: "2",
		PaymentToken:   "USDC",
		Status:         IntentStatusCompleted,
		Quote:          PaymentQuote{PaymentTokenNeeded: "1.751000"},
		Steps:          NewStepMap(),
	}

	record := NewTransactionRecord(intent)
	assert.Equal(t, "1.76", record.USDValue)
	assert.Equal(t, "", record.TransactionHash)

	intent.Steps.UserPayment.TransactionHash = "0xuser"
	assert.Equal(t, "0xuser", NewTransactionRecord(intent).TransactionHash)

	intent.FinalTransactionHash = &hash
	assert.Equal(t, "0xfinal", NewTransactionRecord(intent).TransactionHash)
	assert.Equal(t, "completed", NewTransactionRecord(intent).Status)
}
