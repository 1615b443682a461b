package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const changedPayload = "changed"

// RedisNotifier carries change signals over Redis pub/sub so sessions in
// different processes converge on the same collection.
type RedisNotifier struct {
	rc  *redis.Client
	log *logrus.Entry
}

var _ Notifier = (*RedisNotifier)(nil)

// NewRedisNotifier wraps an existing client. The caller owns rc.
func NewRedisNotifier(rc *redis.Client, logger *logrus.Logger) *RedisNotifier {
	return &RedisNotifier{rc: rc, log: logger.WithField("component", "redis-notifier")}
}

func (n *RedisNotifier) Publish(ctx context.Context, topic string) error {
	if err := n.rc.Publish(ctx, topic, changedPayload).Err(); err != nil {
		return fmt.Errorf("publishing %s: %w", topic, err)
	}
	return nil
}

// Subscribe waits for the subscription to be confirmed so that a write
// published right after Subscribe returns is not missed.
func (n *RedisNotifier) Subscribe(ctx context.Context, topic string) (<-chan struct{}, func(), error) {
	ps := n.rc.Subscribe(ctx, topic)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("subscribing %s: %w", topic, err)
	}

	out := make(chan struct{}, 1)
	msgs := ps.Channel()
	go func() {
		for range msgs {
			signal(out)
		}
	}()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			if err := ps.Close(); err != nil {
				n.log.WithError(err).WithField("topic", topic).Warn("closing pubsub")
			}
		})
	}
	return out, unsubscribe, nil
}
