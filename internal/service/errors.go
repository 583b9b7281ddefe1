package service

import "errors"

var (
	// ErrInvalidInput marks requests rejected on validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrForbidden marks requests the actor is not allowed to make.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidState marks operations against a load in the wrong status.
	ErrInvalidState = errors.New("invalid state for operation")
	// ErrInvalidTransition marks status updates outside the legal graph.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrPaymentVerificationFailed marks confirmations whose gateway
	// signature did not check out.
	ErrPaymentVerificationFailed = errors.New("payment verification failed")
	// ErrOrderNotFound marks confirmations for unknown or expired orders.
	ErrOrderNotFound = errors.New("payment order not found or expired")
)
