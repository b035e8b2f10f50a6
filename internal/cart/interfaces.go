package cart

import (
	"context"
	"time"

	"github.com/angelmondragon/cartsync/pkg/types"
)

// Operation names, used as log fields and metric labels.
const (
	OpAddToCart          = "cart/addToCart"
	OpFetchItemsByUser   = "cart/fetchItemsByUser"
	OpUpdateCart         = "cart/updateCart"
	OpDeleteItemFromCart = "cart/deleteItemFromCart"
	OpResetCart          = "cart/resetCart"
)

// CartService is the remote cart REST service. pkg/cartapi.Client implements it.
type CartService interface {
	AddToCart(ctx context.Context, item types.CartItem) (types.CartItem, error)
	FetchItemsByUser(ctx context.Context, userID string) ([]types.CartItem, error)
	UpdateCart(ctx context.Context, update types.CartItem) (types.CartItem, error)
	DeleteItemFromCart(ctx context.Context, itemID string) (types.CartItem, error)
	ResetCart(ctx context.Context) error
}

// Snapshot is the persisted copy of a user's mirrored cart.
type Snapshot struct {
	Items      []types.CartItem `json:"items"`
	CartLoaded bool             `json:"cart_loaded"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// SnapshotStore persists snapshots between process restarts. Load reports false
// when the user has no snapshot.
type SnapshotStore interface {
	Load(ctx context.Context, userID string) (Snapshot, bool, error)
	Save(ctx context.Context, userID string, snap Snapshot) error
}

type operationMetrics interface {
	Begin()
	Finish(operation string, duration time.Duration, err error)
	IncUnmatched(operation string)
}
