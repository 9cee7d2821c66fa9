package reservation

import (
	"time"

	"vitrin-be/internal/order"
	"vitrin-be/internal/pricing"
)

// PendingReservation is a priced cart awaiting external payment completion,
// keyed by the gateway's authorization handle. It only ever exists in the
// awaiting-payment state; resolution deletes it.
type PendingReservation struct {
	Authority string
	UserID    uint
	StoreID   string

	Items           []pricing.ValidatedLineItem
	TotalAmount     int64
	ShippingAddress order.ShippingAddress

	CreatedAt time.Time
	ExpiresAt time.Time
}

func (r *PendingReservation) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
