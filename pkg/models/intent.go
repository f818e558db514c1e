package models

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// IntentStatus is the overall lifecycle state of a payment
type IntentStatus string

const (
	IntentStatusCreated    IntentStatus = "created"
	IntentStatusProcessing IntentStatus = "processing"
	IntentStatusCompleted  IntentStatus = "completed"
	IntentStatusFailed     IntentStatus = "failed"
)

// StepStatus is the state of a single saga stage
type StepStatus string

const (
	StepStatusPending    StepStatus = "pending"
	StepStatusProcessing StepStatus = "processing"
	StepStatusCompleted  StepStatus = "completed"
	StepStatusFailed     StepStatus = "failed"
)

// StepName identifies a saga stage
type StepName string

const (
	StepUserPayment        StepName = "userPayment"
	StepUniswapSwap        StepName = "uniswapSwap"
	StepBridgeTransfer     StepName = "bridgeTransfer"
	StepFanTokenConversion StepName = "fanTokenConversion"
	StepMerchantPayment    StepName = "merchantPayment"
)

// StepOrder lists the stages in execution order
var StepOrder = []StepName{
	StepUserPayment,
	StepUniswapSwap,
	StepBridgeTransfer,
	StepFanTokenConversion,
	StepMerchantPayment,
}

// Fallback names the degraded path that completed a stage
type Fallback string

const (
	FallbackNone Fallback = ""
	// FallbackFloatReserve completes the swap from the operator's pre-funded MCHZ
	FallbackFloatReserve Fallback = "float_reserve"
	// FallbackNativeValue is a bridge transfer that only succeeded with native value attached
	FallbackNativeValue Fallback = "native_value"
	// FallbackBypassed marks a bridge transfer that never happened
	FallbackBypassed Fallback = "bypassed"
	// FallbackProcessorContract converts through the payment processor instead of the float wallet
	FallbackProcessorContract Fallback = "processor_contract"
	// FallbackSilent marks a conversion that completed without any transaction
	FallbackSilent Fallback = "silent"
)

// BypassedTxMarker is recorded as the bridge transaction hash when every attempt failed
const BypassedTxMarker = "bypassed"

// Step is the recorded state of one stage
type Step struct {
	Status          StepStatus `json:"status"`
	TransactionHash string     `json:"transactionHash,omitempty"`
	ViaFallback     bool       `json:"viaFallback,omitempty"`
	Fallback        Fallback   `json:"fallback,omitempty"`
	Error           string     `json:"error,omitempty"`
	StartedAt       *time.Time `json:"startedAt,omitempty"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
}

// StepMap holds the five stages of a payment
type StepMap struct {
	UserPayment        Step `json:"userPayment"`
	UniswapSwap        Step `json:"uniswapSwap"`
	BridgeTransfer     Step `json:"bridgeTransfer"`
	FanTokenConversion Step `json:"fanTokenConversion"`
	MerchantPayment    Step `json:"merchantPayment"`
}

// NewStepMap returns a map with every stage pending
func NewStepMap() StepMap {
	pending := Step{Status: StepStatusPending}
	return StepMap{
		UserPayment:        pending,
		UniswapSwap:        pending,
		BridgeTransfer:     pending,
		FanTokenConversion: pending,
		MerchantPayment:    pending,
	}
}

// Get returns a pointer to the named stage
func (m *StepMap) Get(name StepName) *Step {
	switch name {
	case StepUserPayment:
		return &m.UserPayment
	case StepUniswapSwap:
		return &m.UniswapSwap
	case StepBridgeTransfer:
		return &m.BridgeTransfer
	case StepFanTokenConversion:
		return &m.FanTokenConversion
	case StepMerchantPayment:
		return &m.MerchantPayment
	}
	return nil
}

// PaymentIntent is a payment and its saga progress
type PaymentIntent struct {
	ID                   string         `json:"paymentId"`
	MerchantAddress      common.Address `json:"merchantAddress"`
	UserAddress          common.Address `json:"userAddress"`
	FanTokenSymbol       string         `json:"fanTokenSymbol"`
	FanTokenAmount       string         `json:"fanTokenAmount"`
	PaymentToken         string         `json:"paymentToken"`
	Quote                PaymentQuote   `json:"quote"`
	Status               IntentStatus   `json:"status"`
	Steps                StepMap        `json:"steps"`
	FinalTransactionHash *string        `json:"finalTransactionHash"`
	CreatedAt            time.Time      `json:"createdAt"`
	CompletedAt          *time.Time     `json:"completedAt,omitempty"`
	WebhookURLs          []string       `json:"webhookUrls,omitempty"`
	Error                string         `json:"error,omitempty"`

	// Version is the store revision, bumped on every successful write
	Version uint64 `json:"version"`
}

// Clone returns a deep copy of the intent
func (i *PaymentIntent) Clone() *PaymentIntent {
	if i == nil {
		return nil
	}
	c := *i
	c.Quote = i.Quote.Clone()
	c.Steps = i.Steps.clone()
	if i.FinalTransactionHash != nil {
		hash := *i.FinalTransactionHash
		c.FinalTransactionHash = &hash
	}
	c.CompletedAt = cloneTime(i.CompletedAt)
	if i.WebhookURLs != nil {
		c.WebhookURLs = append([]string(nil), i.WebhookURLs...)
	}
	return &c
}

func (m StepMap) clone() StepMap {
	c := m
	for _, name := range StepOrder {
		step := c.Get(name)
		step.StartedAt = cloneTime(step.StartedAt)
		step.CompletedAt = cloneTime(step.CompletedAt)
	}
	return c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// IsTerminal reports whether the saga has finished
func (i *PaymentIntent) IsTerminal() bool {
	return i.Status == IntentStatusCompleted || i.Status == IntentStatusFailed
}

// CheckConsistency verifies stage ordering and that the overall status matches the steps
func (i *PaymentIntent) CheckConsistency() error {
	var (
		prevCompleted *time.Time
		earlierOpen   StepName
		failed        bool
	)
	for _, name := range StepOrder {
		step := i.Steps.Get(name)

		if step.Status != StepStatusPending && earlierOpen != "" {
			return fmt.Errorf("step %s is %s while %s has not completed", name, step.Status, earlierOpen)
		}
		if step.Status != StepStatusCompleted && earlierOpen == "" {
			earlierOpen = name
		}
		if step.Status == StepStatusFailed {
			failed = true
		}

		if step.Status == StepStatusCompleted && step.CompletedAt != nil {
			if prevCompleted != nil && step.CompletedAt.Before(*prevCompleted) {
				return fmt.Errorf("step %s completed before the previous step", name)
			}
			prevCompleted = step.CompletedAt
		}
	}

	allCompleted := earlierOpen == ""
	switch {
	case allCompleted && i.Status != IntentStatusCompleted:
		return fmt.Errorf("all steps completed but status is %s", i.Status)
	case failed && i.Status != IntentStatusFailed:
		return fmt.Errorf("a step failed but status is %s", i.Status)
	case i.Status == IntentStatusCompleted && !allCompleted:
		return fmt.Errorf("status completed but step %s is not", earlierOpen)
	}
	return nil
}
