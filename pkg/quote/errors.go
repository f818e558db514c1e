package quote

import (
	"fmt"
)

// ErrorKind classifies a failed quote
type ErrorKind string

const (
	KindUnsupportedToken            ErrorKind = "UnsupportedToken"
	KindInvalidAmount               ErrorKind = "InvalidAmount"
	KindPoolUnavailable             ErrorKind = "PoolUnavailable"
	KindInsufficientLiquidity       ErrorKind = "InsufficientLiquidity"
	KindNoFanTokenLiquidity         ErrorKind = "NoFanTokenLiquidity"
	KindOracleUnavailable           ErrorKind = "OracleUnavailable"
	KindInsufficientOutputAmount    ErrorKind = "InsufficientOutputAmount"
	KindBridgeUnavailable           ErrorKind = "BridgeUnavailable"
	KindInsufficientBridgeLiquidity ErrorKind = "InsufficientBridgeLiquidity"
)

// Sentinels for errors.Is, matched on Kind only
var (
	ErrUnsupportedToken            = &QuoteError{Kind: KindUnsupportedToken}
	ErrInvalidAmount               = &QuoteError{Kind: KindInvalidAmount}
	ErrPoolUnavailable             = &QuoteError{Kind: KindPoolUnavailable}
	ErrInsufficientLiquidity       = &QuoteError{Kind: KindInsufficientLiquidity}
	ErrNoFanTokenLiquidity         = &QuoteError{Kind: KindNoFanTokenLiquidity}
	ErrOracleUnavailable           = &QuoteError{Kind: KindOracleUnavailable}
	ErrInsufficientOutputAmount    = &QuoteError{Kind: KindInsufficientOutputAmount}
	ErrBridgeUnavailable           = &QuoteError{Kind: KindBridgeUnavailable}
	ErrInsufficientBridgeLiquidity = &QuoteError{Kind: KindInsufficientBridgeLiquidity}
)

var suggestions = map[ErrorKind]string{
	KindUnsupportedToken:            "use USDC or USDT as payment token and a listed fan token",
	KindInvalidAmount:               "use a positive decimal amount",
	KindPoolUnavailable:             "retry later or use a different payment token",
	KindInsufficientLiquidity:       "use a different payment token",
	KindNoFanTokenLiquidity:         "choose a different fan token",
	KindOracleUnavailable:           "retry later",
	KindInsufficientOutputAmount:    "reduce the fan token amount or use a different payment token",
	KindBridgeUnavailable:           "retry later",
	KindInsufficientBridgeLiquidity: "reduce the fan token amount or retry once the bridge is refilled",
}

// QuoteError is a failed quote with a reason and a suggested remedy
type QuoteError struct {
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion,omitempty"`

	// Available and Needed are set for InsufficientBridgeLiquidity, in MCHZ
	Available string `json:"available,omitempty"`
	Needed    string `json:"needed,omitempty"`

	Err error `json:"-"`
}

func newError(kind ErrorKind, err error, format string, args ...interface{}) *QuoteError {
	return &QuoteError{
		Kind:       kind,
		Message:    fmt.Sprintf(format, args...),
		Suggestion: suggestions[kind],
		Err:        err,
	}
}

func (e *QuoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *QuoteError) Unwrap() error {
	return e.Err
}

// Is matches any QuoteError of the same kind
func (e *QuoteError) Is(target error) bool {
	t, ok := target.(*QuoteError)
	return ok && t.Kind == e.Kind
}
