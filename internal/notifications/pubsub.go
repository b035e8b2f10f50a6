package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

const defaultPublishTimeout = 10 * time.Second

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// PubSubNotifier publishes notifications to a Pub/Sub topic, one message per notification.
type PubSubNotifier struct {
	publisher publisher
	timeout   time.Duration
}

// NewPubSubNotifier wraps a topic publisher such as pubsub.Client.NotificationPublisher().
func NewPubSubNotifier(p *gcppubsub.Publisher) (*PubSubNotifier, error) {
	if p == nil {
		return nil, errors.New("pubsub publisher required")
	}
	return newPubSubNotifier(&gcpPublisher{Publisher: p}), nil
}

func newPubSubNotifier(p publisher) *PubSubNotifier {
	return &PubSubNotifier{publisher: p, timeout: defaultPublishTimeout}
}

func (n *PubSubNotifier) Notify(ctx context.Context, note Notification) error {
	payload, err := encode(note)
	if err != nil {
		return err
	}
	msg := &gcppubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"level":        note.Level.String(),
			"operation":    note.Operation,
			"operation_id": note.OperationID,
			"user_id":      note.UserID,
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	result := n.publisher.Publish(publishCtx, msg)
	if result == nil {
		return errors.New("publisher returned nil result")
	}
	if _, err := result.Get(publishCtx); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return p.Publisher.Publish(ctx, msg)
}
