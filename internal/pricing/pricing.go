package pricing

import (
	"context"
	"errors"
	"fmt"
	"math"

	"vitrin-be/internal/catalog"
	"vitrin-be/internal/logger"

	"go.uber.org/zap"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	ErrItemNotFound    = errors.New("cart item does not resolve to a product")
	ErrInvalidPrice    = errors.New("computed price is invalid")
)

// Validator recomputes authoritative line-item prices from catalog data.
// It is run at session initiation and its output is what the reservation
// carries; client-submitted prices are never consulted.
type Validator struct {
	catalog catalog.Repository
}

func NewValidator(c catalog.Repository) *Validator {
	return &Validator{catalog: c}
}

// ValidateCart prices every line item against the catalog for the given
// store. The whole batch fails if any item does not resolve. The returned
// total is Σ(unitPrice × quantity) in integer display units.
func (v *Validator) ValidateCart(ctx context.Context, storeID string, items []CartLineItem) ([]ValidatedLineItem, int64, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("store_id", storeID),
		zap.Int("item_count", len(items)),
	)

	validated := make([]ValidatedLineItem, 0, len(items))
	var total int64

	for i, item := range items {
		if item.Quantity < 1 {
			log.Warn("invalid quantity", zap.Int("index", i), zap.Int("quantity", item.Quantity))
			return nil, 0, fmt.Errorf("item %q: %w", item.ProductID, ErrInvalidQuantity)
		}

		product, err := v.catalog.GetProduct(ctx, item.ProductID, storeID)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				log.Warn("cart item not in catalog", zap.String("product_id", item.ProductID))
				return nil, 0, fmt.Errorf("item %q: %w", item.ProductID, ErrItemNotFound)
			}
			return nil, 0, err
		}

		unitPrice, err := unitPriceOf(product)
		if err != nil {
			log.Error("catalog yielded an invalid price",
				zap.String("product_id", item.ProductID),
				zap.Int64("price", product.Price),
				zap.Float64("discount_percent", product.DiscountPercent),
			)
			return nil, 0, fmt.Errorf("item %q: %w", item.ProductID, err)
		}

		validated = append(validated, ValidatedLineItem{
			ProductID:  product.ID,
			Name:       product.Name,
			Quantity:   item.Quantity,
			UnitPrice:  unitPrice,
			ColorCode:  item.ColorCode,
			Properties: item.Properties,
		})
		total += unitPrice * int64(item.Quantity)
	}

	log.Debug("cart priced", zap.Int64("total_amount", total))

	return validated, total, nil
}

func unitPriceOf(p *catalog.Product) (int64, error) {
	price := float64(p.Price)
	if p.DiscountPercent > 0 {
		price = price * (1 - p.DiscountPercent/100)
	}

	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return 0, ErrInvalidPrice
	}

	return int64(math.Round(price)), nil
}
