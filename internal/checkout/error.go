package checkout

import "errors"

var (
	// -- Initiation --
	ErrUnauthorized    = errors.New("unauthorized")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidAddress  = errors.New("shipping address is incomplete")
	ErrInvalidCart     = errors.New("cart could not be validated")
	ErrGatewayRejected = errors.New("payment gateway rejected the request")

	// -- Reconciliation --
	ErrMissingAuthority    = errors.New("missing payment authority")
	ErrPaymentFailed       = errors.New("payment failed or was cancelled")
	ErrReservationNotFound = errors.New("payment session not found")
	ErrReservationExpired  = errors.New("payment session expired")
	ErrVerificationFailed  = errors.New("payment verification failed")
	ErrInternal            = errors.New("internal reconciliation error")
)
