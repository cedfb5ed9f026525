package models

import "errors"

var (
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrQuotaExceeded        = errors.New("claim quota exceeded")
	ErrEventUnavailable     = errors.New("event sold out or does not exist")
	ErrInsufficientCapacity = errors.New("not enough capacity to fulfil the request")
	ErrEventNotFound        = errors.New("event not found")
	ErrPoolNotFound         = errors.New("pool not found")
	ErrClaimNotFound        = errors.New("claim not found")
	ErrUnauthorized         = errors.New("not allowed to modify this claim")
	ErrAlreadyCancelled     = errors.New("claim already cancelled")
	ErrQuotaLockBusy        = errors.New("another booking for this user and event is in progress")
	ErrInvalidEvent         = errors.New("invalid event")

	// ErrStoreUnavailable marks failures of the backing stores. It is always
	// wrapped together with the underlying cause.
	ErrStoreUnavailable = errors.New("service unavailable")
)
