package service

import "errors"

var (
	// ErrStoreUnavailable means the key-value store did not answer a
	// liveness probe after an operation failed.  Handlers should answer 503
	// so clients retry later.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrStoreOperation means the store is reachable but the operation
	// itself kept failing.
	ErrStoreOperation = errors.New("store operation failed")

	// ErrNothingToCall is returned by CallNext when every issued ticket has
	// already been called.
	ErrNothingToCall = errors.New("nothing to call")

	// ErrInvalidOperation is returned for an unknown queue action.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrInvalidPrizeConfig is returned when a prize configuration fails validation.
	ErrInvalidPrizeConfig = errors.New("invalid prize config")

	// ErrInvalidTicketNumber is returned for prize checks on non-positive numbers.
	ErrInvalidTicketNumber = errors.New("invalid ticket number")

	// ErrInvalidDate is returned when a date is not in YYYY-MM-DD form.
	ErrInvalidDate = errors.New("invalid date")
)
