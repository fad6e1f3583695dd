package fanout

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/doismellburning/samoyed/internal/config"
)

func newRedisFanout(ctx context.Context, cfg config.FanoutConfig) (Fanout, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("fanout: failed to connect to redis: %w", err)
	}
	return &redisFanout{client: client}, nil
}

type redisFanout struct {
	client *redis.Client
}

func (f *redisFanout) Publish(topic string, message []byte) error {
	if err := f.client.Publish(context.Background(), topic, message).Err(); err != nil {
		return fmt.Errorf("fanout: failed to publish to %s: %w", topic, err)
	}
	return nil
}

func (f *redisFanout) Subscribe(topic string) Subscription {
	sub := f.client.Subscribe(context.Background(), topic)
	return &redisSubscription{sub: sub, ch: sub.Channel()}
}

func (f *redisFanout) Close() error {
	if err := f.client.Close(); err != nil {
		return fmt.Errorf("fanout: failed to close redis client: %w", err)
	}
	return nil
}

type redisSubscription struct {
	sub *redis.PubSub
	ch  <-chan *redis.Message
}

func (s *redisSubscription) Close() error {
	if err := s.sub.Close(); err != nil {
		return fmt.Errorf("fanout: failed to close redis subscription: %w", err)
	}
	return nil
}

func (s *redisSubscription) Channel() <-chan []byte {
	out := make(chan []byte)
	go func() {
		defer close(out)
		for msg := range s.ch {
			out <- []byte(msg.Payload)
		}
	}()
	return out
}
