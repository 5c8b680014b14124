package docstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "planner:docs:"

// RedisNotifier publishes snapshots over Redis pub/sub so that every server
// instance sharing the database sees every change.
type RedisNotifier struct {
	rdb *redis.Client
}

func NewRedisNotifier(rdb *redis.Client) *RedisNotifier {
	return &RedisNotifier{rdb: rdb}
}

func (n *RedisNotifier) Publish(ctx context.Context, topic string, data []byte) error {
	if err := n.rdb.Publish(ctx, redisPrefix+topic, data).Err(); err != nil {
		return fmt.Errorf("publishing to redis: %w", err)
	}
	return nil
}

// Subscribe waits for Redis to confirm the subscription before returning.
func (n *RedisNotifier) Subscribe(ctx context.Context, topic string) (<-chan []byte, func(), error) {
	ps := n.rdb.Subscribe(ctx, redisPrefix+topic)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, nil, fmt.Errorf("subscribing to redis: %w", err)
	}

	out := make(chan []byte, 1)
	done := make(chan struct{})
	go func() {
		defer close(out)
		msgs := ps.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				deliverLatest(out, []byte(msg.Payload))
			}
		}
	}()

	var once sync.Once
	return out, func() {
		once.Do(func() {
			close(done)
			ps.Close()
		})
	}, nil
}
