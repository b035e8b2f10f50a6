package cart

import (
	"encoding/json"

	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
	"github.com/angelmondragon/cartsync/pkg/types"
)

const maxItemIDLength = 255

// AddItemRequest carries the opaque cart line forwarded to the cart service.
// The item is kept as raw JSON so numbers reach the service byte-for-byte.
type AddItemRequest struct {
	Item json.RawMessage `json:"item" validate:"required"`
}

// UpdateItemRequest carries the fields to patch on the item named in the path.
type UpdateItemRequest struct {
	Fields json.RawMessage `json:"fields" validate:"required"`
}

func (r AddItemRequest) toCartItem() (types.CartItem, error) {
	var item types.CartItem
	if err := item.UnmarshalJSON(r.Item); err != nil {
		return types.CartItem{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cart item")
	}
	return item, nil
}

func (r UpdateItemRequest) toCartItem(itemID string) (types.CartItem, error) {
	var item types.CartItem
	if err := item.UnmarshalJSON(r.Fields); err != nil {
		return types.CartItem{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cart item fields")
	}
	if item.HasID() && item.ID() != itemID {
		return types.CartItem{}, pkgerrors.New(pkgerrors.CodeValidation, "body id does not match path id").
			WithDetails(map[string]any{"path_id": itemID, "body_id": item.ID()})
	}
	if item.HasID() {
		return item, nil
	}
	return item.WithID(itemID), nil
}
