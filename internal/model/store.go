package model

import "math"

// UnlimitedStock marks a store item that never runs out.
const UnlimitedStock int64 = -1

// StoreItem represents a purchasable catalog row.
type StoreItem struct {
	ID       int64  `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Price    int64  `db:"price" json:"price"`
	Stock    int64  `db:"stock" json:"stock"`
	Limit    *int64 `db:"limit" json:"limit,omitempty"` // per-order limit, nil or 0 means none
	ItemID   string `db:"item_id" json:"item_id"`
	ItemType string `db:"item_type" json:"item_type"`
}

// Unlimited reports whether the item has the unlimited stock sentinel.
func (s *StoreItem) Unlimited() bool {
	return s.Stock == UnlimitedStock
}

// HasStock reports whether qty units can be taken from the item.
func (s *StoreItem) HasStock(qty int64) bool {
	return s.Unlimited() || s.Stock >= qty
}

// ExceedsLimit reports whether qty is above the per-order limit.
func (s *StoreItem) ExceedsLimit(qty int64) bool {
	return s.Limit != nil && *s.Limit > 0 && qty > *s.Limit
}

// Total returns the price of qty units. ok is false when the product does
// not fit in an int64.
func (s *StoreItem) Total(qty int64) (total int64, ok bool) {
	if qty < 0 || s.Price < 0 {
		return 0, false
	}
	if s.Price != 0 && qty > math.MaxInt64/s.Price {
		return 0, false
	}
	return s.Price * qty, true
}
