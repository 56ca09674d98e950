package usecase

import (
	"errors"
	"fmt"

	"mecanica_marketplace/internal/usecase/interfaces"
)

// ErrorKind is the stable failure category returned to API callers.
type ErrorKind string

const (
	KindNotFound          ErrorKind = "NOT_FOUND"
	KindInvalidState      ErrorKind = "INVALID_STATE"
	KindUnauthorized      ErrorKind = "UNAUTHORIZED"
	KindConflict          ErrorKind = "CONFLICT"
	KindAlreadyResolved   ErrorKind = "ALREADY_RESOLVED"
	KindDependencyFailure ErrorKind = "DEPENDENCY_FAILURE"
	KindInvalidInput      ErrorKind = "INVALID_INPUT"
	KindInternal          ErrorKind = "INTERNAL"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidState      = errors.New("invalid state")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrConflict          = errors.New("conflict")
	ErrAlreadyResolved   = errors.New("already resolved")
	ErrDependencyFailure = errors.New("dependency failure")
	ErrInvalidInput      = errors.New("invalid input")
)

var (
	ErrJobNotFound         = fmt.Errorf("job %w", ErrNotFound)
	ErrBidNotFound         = fmt.Errorf("bid %w", ErrNotFound)
	ErrChangeOrderNotFound = fmt.Errorf("change order %w", ErrNotFound)

	ErrInvalidJobID         = fmt.Errorf("%w: job id", ErrInvalidInput)
	ErrInvalidBidID         = fmt.Errorf("%w: bid id", ErrInvalidInput)
	ErrInvalidChangeOrderID = fmt.Errorf("%w: change order id", ErrInvalidInput)
	ErrInvalidCustomerID    = fmt.Errorf("%w: customer id", ErrInvalidInput)
	ErrInvalidMechanicID    = fmt.Errorf("%w: mechanic id", ErrInvalidInput)
	ErrInvalidActorID       = fmt.Errorf("%w: actor id", ErrInvalidInput)
	ErrInvalidPrice         = fmt.Errorf("%w: price", ErrInvalidInput)
	ErrInvalidTitle         = fmt.Errorf("%w: title", ErrInvalidInput)
	ErrInvalidSchedule      = fmt.Errorf("%w: scheduled date", ErrInvalidInput)
	ErrInvalidLineItems     = fmt.Errorf("%w: line items", ErrInvalidInput)
	ErrInvalidPaymentBody   = fmt.Errorf("%w: payment payload", ErrInvalidInput)
	ErrPaymentDeclined      = fmt.Errorf("%w: payment declined", ErrInvalidInput)

	ErrPaymentGatewayNotConfigured = fmt.Errorf("%w: payment gateway not configured", ErrDependencyFailure)
)

// kindOrder lists the sentinels from most to least specific. An error may wrap
// more than one: a finalized change order is both ALREADY_RESOLVED and INVALID_STATE.
var kindOrder = []struct {
	err  error
	kind ErrorKind
}{
	{ErrInvalidInput, KindInvalidInput},
	{ErrNotFound, KindNotFound},
	{ErrUnauthorized, KindUnauthorized},
	{ErrAlreadyResolved, KindAlreadyResolved},
	{ErrConflict, KindConflict},
	{ErrInvalidState, KindInvalidState},
	{ErrDependencyFailure, KindDependencyFailure},
}

// KindOf classifies err. Unknown errors are KindInternal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, k := range kindOrder {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

func invalidState(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

func unauthorized(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnauthorized, fmt.Sprintf(format, args...))
}

func alreadyResolved(format string, args ...any) error {
	return fmt.Errorf("%w: %w: %s", ErrAlreadyResolved, ErrInvalidState, fmt.Sprintf(format, args...))
}

// storeError wraps a repository failure. Version conflicts mean another writer
// won the race for the same record.
func storeError(op string, err error) error {
	if errors.Is(err, interfaces.ErrVersionConflict) {
		return fmt.Errorf("%w: %s: %w", ErrConflict, op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrDependencyFailure, op, err)
}
