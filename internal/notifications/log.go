package notifications

import (
	"context"

	"github.com/angelmondragon/cartsync/pkg/logger"
)

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	logg *logger.Logger
}

func NewLogNotifier(logg *logger.Logger) *LogNotifier {
	if logg == nil {
		logg = logger.Nop()
	}
	return &LogNotifier{logg: logg}
}

func (n *LogNotifier) Notify(ctx context.Context, note Notification) error {
	fields := map[string]any{
		"notification_level": note.Level.String(),
		"operation":          note.Operation,
		"operation_id":       note.OperationID,
		"user_id":            note.UserID,
	}
	if note.ItemID != "" {
		fields["item_id"] = note.ItemID
	}
	n.logg.Info(n.logg.WithFields(ctx, fields), note.Message)
	return nil
}
