package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrTransport          = errors.New("transport error")
	ErrRejectedByContract = errors.New("rejected by contract")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrLockHeld           = errors.New("lock already held")
	ErrContextDone        = errors.New("context cancelled")

	// Precondition violations. Submissions failing these are rejected before
	// any transaction is sent.
	ErrPrecondition   = errors.New("precondition violation")
	ErrNoAccount      = errors.New("no player account configured")
	ErrEmptyPrice     = errors.New("no price entered")
	ErrCooldownActive = errors.New("cooldown active")
	ErrWrongNetwork   = errors.New("connected chain does not match target chain")

	// Lifecycle failures. These terminate a tracking attempt but, except for
	// ErrRequestIDNotFound, do not invalidate the on-chain request itself.
	ErrLifecycleActive        = errors.New("a guess lifecycle is already running")
	ErrRequestIDNotFound      = errors.New("confirmation event missing from receipt")
	ErrResolutionEventMissing = errors.New("resolved on chain but resolution event not found")
	ErrResolutionTimeout      = errors.New("resolution deadline elapsed")
)
