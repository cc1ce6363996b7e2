package model

import (
	"github.com/shopspring/decimal"
)

// ProductID identifies a catalog product.
type ProductID int64

// ProductSnapshot is the product data the catalog hands to the cart.
type ProductSnapshot struct {
	ID    ProductID       `json:"id"`
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image"`
}

// CartItem is one line of the cart. Quantity is always at least 1.
type CartItem struct {
	ID        ProductID       `json:"id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
}

// CartState is a full cart snapshot. Version increments on every mutation.
type CartState struct {
	Items   []CartItem `json:"items"`
	Version int64      `json:"version"`
}

// CartTotals are derived from a CartState on every read.
type CartTotals struct {
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
}

// Totals computes item count and total price.
func (s CartState) Totals() CartTotals {
	totals := CartTotals{Total: decimal.Zero}
	for _, item := range s.Items {
		totals.ItemCount += item.Quantity
		totals.Total = totals.Total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return totals
}

// Find returns the item with the given id.
func (s CartState) Find(id ProductID) (CartItem, bool) {
	for _, item := range s.Items {
		if item.ID == id {
			return item, true
		}
	}
	return CartItem{}, false
}

// Clone returns a deep copy of the state.
func (s CartState) Clone() CartState {
	items := make([]CartItem, len(s.Items))
	copy(items, s.Items)
	return CartState{Items: items, Version: s.Version}
}

// Valid reports whether every quantity is positive and every id unique.
func (s CartState) Valid() bool {
	seen := make(map[ProductID]struct{}, len(s.Items))
	for _, item := range s.Items {
		if item.Quantity < 1 {
			return false
		}
		if _, dup := seen[item.ID]; dup {
			return false
		}
		seen[item.ID] = struct{}{}
	}
	return s.Version >= 0
}

// Normalize drops non-positive quantities and merges duplicate ids, keeping
// the first occurrence's position. Used on hydrated snapshots.
func (s CartState) Normalize() CartState {
	out := CartState{Items: make([]CartItem, 0, len(s.Items)), Version: s.Version}
	index := make(map[ProductID]int, len(s.Items))
	for _, item := range s.Items {
		if item.Quantity < 1 {
			continue
		}
		if i, ok := index[item.ID]; ok {
			out.Items[i].Quantity += item.Quantity
			continue
		}
		index[item.ID] = len(out.Items)
		out.Items = append(out.Items, item)
	}
	if out.Version < 0 {
		out.Version = 0
	}
	return out
}

// AddItem adds one unit of p, appending a new line when p is not in the cart.
func AddItem(s CartState, p ProductSnapshot) CartState {
	next := s.Clone()
	next.Version++
	for i := range next.Items {
		if next.Items[i].ID == p.ID {
			next.Items[i].Quantity++
			return next
		}
	}
	next.Items = append(next.Items, CartItem{
		ID:        p.ID,
		Title:     p.Title,
		UnitPrice: p.Price,
		Image:     p.Image,
		Quantity:  1,
	})
	return next
}

// RemoveItem deletes the line for id regardless of its quantity. Removing an
// absent id returns s unchanged.
func RemoveItem(s CartState, id ProductID) CartState {
	if _, ok := s.Find(id); !ok {
		return s
	}
	next := CartState{Items: make([]CartItem, 0, len(s.Items)), Version: s.Version + 1}
	for _, item := range s.Items {
		if item.ID != id {
			next.Items = append(next.Items, item)
		}
	}
	return next
}

// UpdateQuantity sets the quantity of id exactly. A quantity of zero or less
// removes the line. Updating an absent id returns s unchanged.
func UpdateQuantity(s CartState, id ProductID, quantity int) CartState {
	if quantity <= 0 {
		return RemoveItem(s, id)
	}
	if _, ok := s.Find(id); !ok {
		return s
	}
	next := s.Clone()
	next.Version++
	for i := range next.Items {
		if next.Items[i].ID == id {
			next.Items[i].Quantity = quantity
			break
		}
	}
	return next
}

// ClearCart empties the cart. The version still advances.
func ClearCart(s CartState) CartState {
	return CartState{Items: []CartItem{}, Version: s.Version + 1}
}
