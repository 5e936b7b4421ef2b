package errors

import (
	"errors"
	"net/http"
)

// Settlement error taxonomy. Handlers map these to HTTP statuses with
// HTTPStatus; services wrap them with context via fmt.Errorf and %w.
var (
	// ErrVerificationFailed means the gateway rejected the transaction.
	// No local state changes on this path.
	ErrVerificationFailed = errors.New("transaction verification failed")

	// ErrNotFound covers missing transactions, tickets and wallets.
	ErrNotFound = errors.New("resource not found")

	// ErrConflict is returned when a transaction reference already exists.
	ErrConflict = errors.New("duplicate transaction reference")

	// ErrCapacityExceeded means a mint would overshoot a category's maxTickets.
	ErrCapacityExceeded = errors.New("ticket category capacity exceeded")

	// ErrInsufficientFunds means a debit would drive a wallet balance negative.
	ErrInsufficientFunds = errors.New("insufficient wallet balance")

	// ErrInvariantViolation covers broken settlement business rules, such as
	// tickets spanning more than one category in a purchase transaction.
	ErrInvariantViolation = errors.New("settlement invariant violated")

	// ErrPermission is returned when a ticket operation is not allowed for
	// the caller, e.g. transferring a ticket that is not listed for resale.
	ErrPermission = errors.New("operation is forbidden")

	// ErrGateway means an outbound gateway call failed or returned a
	// malformed response. Safe to retry: either no local state was mutated
	// before the call, or the call is idempotent by reference.
	ErrGateway = errors.New("payment gateway request failed")
)

// HTTPStatus maps a settlement error to the status code the API surface
// should return. Unknown errors map to 500.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrVerificationFailed),
		errors.Is(err, ErrCapacityExceeded),
		errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrInvariantViolation):
		return http.StatusBadRequest
	case errors.Is(err, ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, ErrGateway):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
