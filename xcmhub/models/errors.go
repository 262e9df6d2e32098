package models

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable category of a transfer construction failure
type ErrorKind string

const (
	// route unsupported
	KindNodeNotSupported     ErrorKind = "NodeNotSupported"
	KindNoXcmSupport         ErrorKind = "NoXcmSupport"
	KindScenarioNotSupported ErrorKind = "ScenarioNotSupported"
	// currency
	KindInvalidCurrency  ErrorKind = "InvalidCurrency"
	KindDuplicateAsset   ErrorKind = "DuplicateAsset"
	KindDuplicateAssetID ErrorKind = "DuplicateAssetId"
	// routing
	KindIncompatibleNodes ErrorKind = "IncompatibleNodes"
	// address
	KindInvalidAddress ErrorKind = "InvalidAddress"
	// malformed intent
	KindInvalidParameter ErrorKind = "InvalidParameter"
)

// TransferError is returned by every validation step of the engine
type TransferError struct {
	Kind    ErrorKind
	Chain   string // chain the failure was detected on, if any
	Message string
	Hint    string // what the caller can do instead
	Cause   error
}

func (e *TransferError) Error() string {
	msg := string(e.Kind)
	if e.Chain != "" {
		msg += " [" + e.Chain + "]"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *TransferError) Unwrap() error {
	return e.Cause
}

// Is matches any TransferError of the same kind, so the sentinels below work
// with errors.Is
func (e *TransferError) Is(target error) bool {
	t, ok := target.(*TransferError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrNodeNotSupported     = &TransferError{Kind: KindNodeNotSupported}
	ErrNoXcmSupport         = &TransferError{Kind: KindNoXcmSupport}
	ErrScenarioNotSupported = &TransferError{Kind: KindScenarioNotSupported}
	ErrInvalidCurrency      = &TransferError{Kind: KindInvalidCurrency}
	ErrDuplicateAsset       = &TransferError{Kind: KindDuplicateAsset}
	ErrDuplicateAssetID     = &TransferError{Kind: KindDuplicateAssetID}
	ErrIncompatibleNodes    = &TransferError{Kind: KindIncompatibleNodes}
	ErrInvalidAddress       = &TransferError{Kind: KindInvalidAddress}
	ErrInvalidParameter     = &TransferError{Kind: KindInvalidParameter}
)

// KindOf returns the kind of the first TransferError in the chain
func KindOf(err error) (ErrorKind, bool) {
	var te *TransferError
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return "", false
}

func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

func NewNodeNotSupportedError(chain, format string, args ...any) *TransferError {
	return &TransferError{Kind: KindNodeNotSupported, Chain: chain, Message: fmt.Sprintf(format, args...)}
}

func NewNoXcmSupportError(chain string) *TransferError {
	return &TransferError{Kind: KindNoXcmSupport, Chain: chain, Message: "no transfer pallet is available"}
}

func NewScenarioNotSupportedError(chain string, scenario Scenario, hint string) *TransferError {
	return &TransferError{
		Kind:    KindScenarioNotSupported,
		Chain:   chain,
		Message: fmt.Sprintf("scenario %s is not supported", scenario),
		Hint:    hint,
	}
}

func NewInvalidCurrencyError(chain, format string, args ...any) *TransferError {
	return &TransferError{Kind: KindInvalidCurrency, Chain: chain, Message: fmt.Sprintf(format, args...)}
}

func NewDuplicateAssetError(chain, symbol string) *TransferError {
	return &TransferError{
		Kind:    KindDuplicateAsset,
		Chain:   chain,
		Message: fmt.Sprintf("multiple assets found for symbol %s", symbol),
		Hint:    "specify the currency by id",
	}
}

func NewDuplicateAssetIDError(chain, id string) *TransferError {
	return &TransferError{
		Kind:    KindDuplicateAssetID,
		Chain:   chain,
		Message: fmt.Sprintf("multiple assets found for id %s", id),
		Hint:    "specify the currency by symbol",
	}
}

func NewIncompatibleNodesError(format string, args ...any) *TransferError {
	return &TransferError{Kind: KindIncompatibleNodes, Message: fmt.Sprintf(format, args...)}
}

func NewInvalidAddressError(chain, format string, args ...any) *TransferError {
	return &TransferError{Kind: KindInvalidAddress, Chain: chain, Message: fmt.Sprintf(format, args...)}
}

func NewInvalidParameterError(format string, args ...any) *TransferError {
	return &TransferError{Kind: KindInvalidParameter, Message: fmt.Sprintf(format, args...)}
}

// WithHint attaches a remediation hint
func (e *TransferError) WithHint(hint string) *TransferError {
	e.Hint = hint
	return e
}

// WithCause attaches the underlying error
func (e *TransferError) WithCause(cause error) *TransferError {
	e.Cause = cause
	return e
}
