package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/cartsync/pkg/enums"
)

// MessageItemAdded is shown to the user after a cart line is created.
const MessageItemAdded = "Product added to cart successfully"

// Notification is a user-visible message raised by a cart operation.
type Notification struct {
	Level       enums.NotificationLevel `json:"level"`
	Message     string                  `json:"message"`
	UserID      string                  `json:"user_id"`
	Operation   string                  `json:"operation"`
	OperationID string                  `json:"operation_id"`
	ItemID      string                  `json:"item_id,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
}

// Notifier delivers notifications to whatever surface renders them.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

func encode(n Notification) ([]byte, error) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("encode notification: %w", err)
	}
	return payload, nil
}
