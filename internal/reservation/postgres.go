package reservation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// postgresStore backs reservations with a table so callbacks can land on any
// server instance; the conditional DELETE ... RETURNING is the atomic claim.
type postgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) Put(ctx context.Context, r *PendingReservation) error {
	itemsJSON, err := json.Marshal(r.Items)
	if err != nil {
		return fmt.Errorf("marshal reservation items: %w", err)
	}
	addressJSON, err := json.Marshal(r.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshal shipping address: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO payment_reservations (
			authority, user_id, store_id, items, total_amount,
			shipping_address, created_at, expires_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		r.Authority,
		r.UserID,
		r.StoreID,
		itemsJSON,
		r.TotalAmount,
		addressJSON,
		r.CreatedAt,
		r.ExpiresAt,
	)
	return err
}

func (s *postgresStore) ClaimAndDelete(ctx context.Context, authority string) (*PendingReservation, error) {
	row := s.db.QueryRowContext(ctx, `
		DELETE FROM payment_reservations
		WHERE authority = $1
		RETURNING authority, user_id, store_id, items, total_amount,
		          shipping_address, created_at, expires_at
	`, authority)

	var (
		r           PendingReservation
		itemsJSON   []byte
		addressJSON []byte
	)

	err := row.Scan(
		&r.Authority,
		&r.UserID,
		&r.StoreID,
		&itemsJSON,
		&r.TotalAmount,
		&addressJSON,
		&r.CreatedAt,
		&r.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(itemsJSON, &r.Items); err != nil {
		return nil, fmt.Errorf("unmarshal reservation items: %w", err)
	}
	if err := json.Unmarshal(addressJSON, &r.ShippingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal shipping address: %w", err)
	}

	return &r, nil
}

func (s *postgresStore) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM payment_reservations
		WHERE expires_at < $1
	`, time.Now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
