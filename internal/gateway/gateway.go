package gateway

import (
	"context"
	"errors"
)

// Result codes returned by the gateway's request and verify endpoints.
const (
	CodeSuccess           = 100
	CodeAlreadyVerified   = 101
	CodeAmountMismatch    = -50
	CodeTransactionFailed = -51
)

// ErrUnavailable wraps transport-level failures (timeouts included) that
// exhausted the retry budget. Callers must not read it as a payment outcome.
var ErrUnavailable = errors.New("payment gateway unavailable")

// RequestResult is the gateway's answer to a payment request. Authority is
// the authorization handle the whole settlement workflow is keyed on.
type RequestResult struct {
	Code      int
	Authority string
	Message   string
}

func (r *RequestResult) OK() bool {
	return r.Code == CodeSuccess
}

// VerifyResult is the gateway's settlement confirmation.
type VerifyResult struct {
	Code    int
	RefID   int64
	CardPAN string
	Message string
}

func (r *VerifyResult) Settled() bool {
	return r.Code == CodeSuccess || r.Code == CodeAlreadyVerified
}

// Gateway is the outbound payment API. Amounts are already converted to the
// gateway's minor currency unit by the caller.
type Gateway interface {
	RequestPayment(ctx context.Context, amountMinor int64, description string) (*RequestResult, error)
	VerifyPayment(ctx context.Context, amountMinor int64, authority string) (*VerifyResult, error)
	StartPayURL(authority string) string
}
