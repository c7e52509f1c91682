package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrLocked indicates another holder owns the lock.
	ErrLocked = errors.New("resource is locked")
	// ErrConflict reports a request that contradicts the resource's current state.
	ErrConflict = errors.New("conflict")
	// ErrInFlight reports work already being processed for the same resource.
	ErrInFlight = errors.New("request already in progress")
	// ErrTenantMissing occurs when a request carries no tenant header.
	ErrTenantMissing = errors.New("tenant header missing")
)
