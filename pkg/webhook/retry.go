package webhook

import (
	"time"

	"github.com/drift-pay/drift-gateway/pkg/models"
)

const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxAttempts = 2
	DefaultBackoff     = 5 * time.Second
)

// RetryPolicy decides how many times an event is delivered
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	// Critical selects the events that are retried; all others get a single attempt
	Critical func(step models.StepName, status models.StepStatus) bool
}

// DefaultRetryPolicy retries only payment initiated and payment completed
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		Backoff:     DefaultBackoff,
		Critical:    IsCritical,
	}
}

// IsCritical reports whether a transition is a payment initiated or payment completed event
func IsCritical(step models.StepName, status models.StepStatus) bool {
	return models.EventName(step, status) != models.EventStepUpdated
}

// Attempts returns the number of delivery attempts for a transition
func (p RetryPolicy) Attempts(step models.StepName, status models.StepStatus) int {
	if p.MaxAttempts <= 1 || p.Critical == nil || !p.Critical(step, status) {
		return 1
	}
	return p.MaxAttempts
}
