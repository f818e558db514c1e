package models

import (
	"time"
)

// WebhookPayload is the body posted to subscribers on every step transition
type WebhookPayload struct {
	PaymentID            string       `json:"paymentId"`
	Status               IntentStatus `json:"status"`
	Step                 StepName     `json:"step"`
	StepStatus           StepStatus   `json:"stepStatus"`
	Timestamp            time.Time    `json:"timestamp"`
	TransactionHash      string       `json:"transactionHash,omitempty"`
	FinalTransactionHash string       `json:"finalTransactionHash,omitempty"`
	Error                string       `json:"error,omitempty"`
	ViaFallback          bool         `json:"viaFallback,omitempty"`
}

// Event names used for webhook event classification
const (
	EventPaymentInitiated = "payment.initiated"
	EventPaymentCompleted = "payment.completed"
	EventStepUpdated      = "payment.step_updated"
)

// EventName classifies a step transition
func EventName(step StepName, status StepStatus) string {
	switch {
	case step == StepUserPayment && status == StepStatusCompleted:
		return EventPaymentInitiated
	case step == StepMerchantPayment && status == StepStatusCompleted:
		return EventPaymentCompleted
	}
	return EventStepUpdated
}
