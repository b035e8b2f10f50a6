package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message any) (int64, error)
}

// RedisNotifier publishes JSON notifications on a redis pub/sub channel.
type RedisNotifier struct {
	client  redisPublisher
	channel string
}

func NewRedisNotifier(client redisPublisher, channel string) (*RedisNotifier, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return nil, errors.New("redis notification channel required")
	}
	return &RedisNotifier{client: client, channel: channel}, nil
}

func (n *RedisNotifier) Notify(ctx context.Context, note Notification) error {
	payload, err := encode(note)
	if err != nil {
		return err
	}
	if _, err := n.client.Publish(ctx, n.channel, string(payload)); err != nil {
		return fmt.Errorf("publish notification to %s: %w", n.channel, err)
	}
	return nil
}
