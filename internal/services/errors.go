// internal/services/errors.go
package services

import "errors"

// Typed failures returned to the admin console or the affiliate dashboard.
// None of these are retried inside the engine; they are policy violations,
// not transient faults. A duplicate order id is deliberately absent: replayed
// webhooks resolve to the existing entry and report success.
var (
	ErrInvalidReferralCode    = errors.New("referral code does not resolve to an active affiliate")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrInsufficientBalance    = errors.New("amount exceeds available approved balance")
	ErrBelowMinimumPayout     = errors.New("amount is below the minimum payout")
	ErrInvalidPaymentDetails  = errors.New("payment details do not match the payment method")
	ErrValidation             = errors.New("validation failed")
	ErrNotFound               = errors.New("record not found")
)
