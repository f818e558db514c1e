package saga

import (
	"errors"
	"fmt"

	"github.com/drift-pay/drift-gateway/pkg/models"
)

// ErrAlreadyExecuted is returned when executing an intent that is no longer created
var ErrAlreadyExecuted = errors.New("payment intent already executed")

// ErrUnrepresentableAmount is returned when executing an intent whose fan token amount is finer than the token's precision
var ErrUnrepresentableAmount = errors.New("fan token amount is finer than the token's precision")

// StageErrorKind classifies a fatal stage failure
type StageErrorKind string

const (
	KindInsufficientBalance   StageErrorKind = "InsufficientBalance"
	KindInsufficientAllowance StageErrorKind = "InsufficientAllowance"
	KindInsufficientFloat     StageErrorKind = "InsufficientFloat"
	KindInvalidCredential     StageErrorKind = "InvalidCredential"
	KindRemoteRead            StageErrorKind = "RemoteRead"
	KindRemoteWrite           StageErrorKind = "RemoteWrite"
	KindInterrupted           StageErrorKind = "Interrupted"
	KindUnknownDestination    StageErrorKind = "UnknownDestination"
)

// Sentinels for errors.Is, matched on Kind only
var (
	ErrInsufficientBalance   = &StageError{Kind: KindInsufficientBalance}
	ErrInsufficientAllowance = &StageError{Kind: KindInsufficientAllowance}
	ErrInsufficientFloat     = &StageError{Kind: KindInsufficientFloat}
	ErrInvalidCredential     = &StageError{Kind: KindInvalidCredential}
	ErrRemoteRead            = &StageError{Kind: KindRemoteRead}
	ErrRemoteWrite           = &StageError{Kind: KindRemoteWrite}
	ErrInterrupted           = &StageError{Kind: KindInterrupted}
	ErrUnknownDestination    = &StageError{Kind: KindUnknownDestination}
)

// StageError is a fatal stage failure. It fails the intent and halts the saga.
type StageError struct {
	Stage   models.StepName
	Kind    StageErrorKind
	Message string
	Err     error
}

func stageError(stage models.StepName, kind StageErrorKind, err error, format string, args ...interface{}) *StageError {
	return &StageError{Stage: stage, Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed (%s): %s: %v", e.Stage, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s failed (%s): %s", e.Stage, e.Kind, e.Message)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func (e *StageError) Is(target error) bool {
	t, ok := target.(*StageError)
	return ok && t.Kind == e.Kind
}

// StageFallbackTriggered records a stage that completed through a degraded path.
// It is logged and recorded on the step, never returned to callers.
type StageFallbackTriggered struct {
	Stage    models.StepName
	Fallback models.Fallback
	Cause    error
}

func (e *StageFallbackTriggered) Error() string {
	return fmt.Sprintf("%s completed via %s fallback: %v", e.Stage, e.Fallback, e.Cause)
}

func (e *StageFallbackTriggered) Unwrap() error {
	return e.Cause
}
