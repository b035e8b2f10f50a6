package cart

import (
	"github.com/angelmondragon/cartsync/pkg/enums"
	"github.com/angelmondragon/cartsync/pkg/types"
	"github.com/shopspring/decimal"
)

// State is a point-in-time copy of a mirrored cart.
type State struct {
	Status     enums.SyncStatus
	Items      []types.CartItem
	CartLoaded bool
}

// ItemCount sums line quantities.
func (s State) ItemCount() int {
	total := 0
	for _, item := range s.Items {
		total += item.Quantity()
	}
	return total
}

// Subtotal sums line totals for items that carry a price.
func (s State) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

func cloneItems(items []types.CartItem) []types.CartItem {
	out := make([]types.CartItem, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return out
}

// indexOf returns the position of the first item with the given id, or -1.
func indexOf(items []types.CartItem, id string) int {
	if id == "" {
		return -1
	}
	for i, item := range items {
		if item.ID() == id {
			return i
		}
	}
	return -1
}
