package domain

import "errors"

// Error is a ledger error with a stable code and user-facing message.
// Callers compare with errors.Is against the sentinel values below; the
// presentation layer renders Message without inspecting anything else.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Ledger error taxonomy
var (
	ErrAlreadyRegistered = &Error{Code: "ALREADY_REGISTERED", Message: "account is already registered"}
	ErrNotRegistered     = &Error{Code: "NOT_REGISTERED", Message: "account is not registered"}
	ErrSymbolNotFound    = &Error{Code: "SYMBOL_NOT_FOUND", Message: "symbol could not be found"}
	ErrInvalidPrice      = &Error{Code: "INVALID_PRICE", Message: "price quote is not positive"}
	ErrInsufficientFunds = &Error{Code: "INSUFFICIENT_FUNDS", Message: "insufficient cash balance"}
	ErrOversold          = &Error{Code: "OVERSOLD", Message: "quantity exceeds held position"}
	ErrNoSuchPosition    = &Error{Code: "NO_SUCH_POSITION", Message: "no open position for symbol"}
	ErrPriceUnavailable  = &Error{Code: "PRICE_UNAVAILABLE", Message: "price is currently unavailable"}
	ErrInvalidRequest    = &Error{Code: "INVALID_REQUEST", Message: "invalid request"}
)

// CodeInternal is reported for errors outside the ledger taxonomy
// (persistence failures, cancelled contexts).
const CodeInternal = "INTERNAL"

// CodeOf returns the taxonomy code carried by err, or CodeInternal.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// MessageOf returns the stable message for err. Errors outside the
// taxonomy get a generic message so internals never leak to users.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// IsRecoverable reports whether the caller may retry or simply report err
// without treating the service as unhealthy.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrSymbolNotFound) || errors.Is(err, ErrPriceUnavailable)
}
