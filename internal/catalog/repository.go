package catalog

import (
	"context"
	"database/sql"
	"errors"
)

var ErrProductNotFound = errors.New("product not found")

// Repository is the read-only catalog surface the payment core depends on.
type Repository interface {
	GetProduct(ctx context.Context, productID, storeID string) (*Product, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetProduct(ctx context.Context, productID, storeID string) (*Product, error) {
	query := `
		SELECT id, store_id, name, price, discount_percent, status
		FROM products
		WHERE id = $1 AND store_id = $2 AND status = $3
	`

	var p Product
	err := r.db.QueryRowContext(ctx, query, productID, storeID, ProductStatusActive).
		Scan(&p.ID, &p.StoreID, &p.Name, &p.Price, &p.DiscountPercent, &p.Status)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}
