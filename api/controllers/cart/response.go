package cart

import (
	cartsvc "github.com/angelmondragon/cartsync/internal/cart"
	"github.com/angelmondragon/cartsync/pkg/types"
	"github.com/shopspring/decimal"
)

// StateResponse is the read model rendered by the cart UI.
type StateResponse struct {
	Items      []types.CartItem `json:"items"`
	Status     string           `json:"status"`
	CartLoaded bool             `json:"cart_loaded"`
	ItemCount  int              `json:"item_count"`
	Subtotal   decimal.Decimal  `json:"subtotal"`
}

// MutationResponse pairs the service's echo with the state after it was applied.
type MutationResponse struct {
	Item types.CartItem `json:"item"`
	Cart StateResponse  `json:"cart"`
}

func newStateResponse(state cartsvc.State) StateResponse {
	items := state.Items
	if items == nil {
		items = []types.CartItem{}
	}
	return StateResponse{
		Items:      items,
		Status:     state.Status.String(),
		CartLoaded: state.CartLoaded,
		ItemCount:  state.ItemCount(),
		Subtotal:   state.Subtotal(),
	}
}
