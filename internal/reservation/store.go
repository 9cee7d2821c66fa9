package reservation

import "context"

// Store holds uncommitted reservations. ClaimAndDelete is the critical
// operation: it must atomically remove and return the reservation so that
// concurrent resolvers for the same authority cannot both commit. A claim
// on an absent authority returns (nil, nil).
type Store interface {
	Put(ctx context.Context, r *PendingReservation) error
	ClaimAndDelete(ctx context.Context, authority string) (*PendingReservation, error)
	// DeleteExpired reclaims storage; expiry is still enforced lazily by
	// the reconciler, so the sweep never changes observable behavior.
	DeleteExpired(ctx context.Context) (int64, error)
}
