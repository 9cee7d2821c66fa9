package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"vitrin-be/internal/pricing"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	// GetByAuthority returns (nil, nil) when no order exists for the
	// authority; callers use it as an idempotency probe.
	GetByAuthority(ctx context.Context, authority string) (*Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status PaymentStatus) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const orderColumns = `
	id, user_id, store_id, items, total_amount, shipping_address,
	status, payment_status, payment_authority, payment_ref_id,
	payment_card_pan, created_at, paid_at
`

func (r *repository) Create(ctx context.Context, o *Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal order items: %w", err)
	}
	addressJSON, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshal shipping address: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`,
		o.ID,
		o.UserID,
		o.StoreID,
		itemsJSON,
		o.TotalAmount,
		addressJSON,
		o.Status,
		o.PaymentStatus,
		o.PaymentAuthority,
		o.PaymentRefID,
		o.PaymentCardPAN,
		o.CreatedAt,
		o.PaidAt,
	)
	return err
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1
	`, id)

	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	return o, err
}

func (r *repository) GetByAuthority(ctx context.Context, authority string) (*Order, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE payment_authority = $1
	`, authority)

	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return o, err
}

// UpdateStatus only ever touches the status column; items and totals are
// frozen at creation, which keeps paid orders immutable by construction.
// Moving a failed order back into the fulfillment flow is rejected.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1
		WHERE id = $2 AND status <> $3
	`, status, id, StatusFailed)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// UpdatePaymentStatus never moves an order out of completed; settlement is
// final and only the reconciler produces it.
func (r *repository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status PaymentStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET payment_status = $1
		WHERE id = $2 AND payment_status <> $3
	`, status, id, PaymentStatusCompleted)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func scanOrder(row *sql.Row) (*Order, error) {
	var (
		o           Order
		itemsJSON   []byte
		addressJSON []byte
	)

	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.StoreID,
		&itemsJSON,
		&o.TotalAmount,
		&addressJSON,
		&o.Status,
		&o.PaymentStatus,
		&o.PaymentAuthority,
		&o.PaymentRefID,
		&o.PaymentCardPAN,
		&o.CreatedAt,
		&o.PaidAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	if err := json.Unmarshal(addressJSON, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal shipping address: %w", err)
	}

	if o.Items == nil {
		o.Items = []pricing.ValidatedLineItem{}
	}

	return &o, nil
}
