// Package fanout broadcasts dispatched frames to the monitor WebSocket
// endpoint, grounded on the teacher's internal/pubsub package (a small
// Publish/Subscribe interface with in-memory and Redis
// implementations) — repurposed from "broadcast DMR talkgroup audio
// across replicas" to "broadcast decoded frames to monitor clients",
// with the Redis implementation existing for the case where the
// monitor runs in a separate process or replica from the
// modem/digipeater core. KISS and AGW clients do not use it; the
// dispatch hub delivers to them directly.
package fanout

import (
	"context"

	"github.com/doismellburning/samoyed/internal/config"
)

// Fanout publishes byte-encoded frames on named topics (conventionally
// one topic per logical channel, e.g. "chan:0") and lets clients
// subscribe to receive them.
type Fanout interface {
	Publish(topic string, message []byte) error
	Subscribe(topic string) Subscription
	Close() error
}

// Subscription is a live subscription to one topic.
type Subscription interface {
	Close() error
	Channel() <-chan []byte
}

// New builds a Fanout backed by Redis pub/sub when configured,
// otherwise an in-memory implementation (only useful within a single
// process, since it does not cross process boundaries).
func New(ctx context.Context, cfg config.FanoutConfig) (Fanout, error) {
	if cfg.RedisAddr != "" {
		return newRedisFanout(ctx, cfg)
	}
	return newMemoryFanout(), nil
}
