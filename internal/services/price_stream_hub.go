/**
 * @description
 * Fan-out hub for latest-price refresh events.
 * The store publishes one message per projection rebuild on a Redis channel;
 * the hub holds a single Redis subscription and multiplexes it to every
 * connected SSE client, so client count never multiplies Redis connections.
 *
 * @dependencies
 * - github.com/redis/go-redis/v9
 *
 * @notes
 * - Slow clients get the oldest buffered message dropped rather than
 *   stalling the broadcast; refresh events are snapshots, not deltas, so
 *   losing one is harmless.
 */

package services

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	streamSubscriberBuffer = 256
	streamRedisBuffer      = 4096
	streamReconnectDelay   = time.Second
)

// PriceStreamHub multiplexes Redis refresh events to SSE listeners.
type PriceStreamHub struct {
	redis   *redis.Client
	channel string

	mu        sync.RWMutex
	listeners map[chan []byte]struct{}
}

func NewPriceStreamHub(rdb *redis.Client, channel string) *PriceStreamHub {
	hub := &PriceStreamHub{
		redis:     rdb,
		channel:   channel,
		listeners: make(map[chan []byte]struct{}),
	}
	go hub.run(context.Background())
	return hub
}

func (h *PriceStreamHub) run(ctx context.Context) {
	for {
		pubsub := h.redis.Subscribe(ctx, h.channel)
		for msg := range pubsub.Channel(redis.WithChannelSize(streamRedisBuffer)) {
			h.broadcast([]byte(msg.Payload))
		}
		_ = pubsub.Close()

		// Channel closed means the Redis connection dropped; back off before
		// resubscribing.
		select {
		case <-ctx.Done():
			return
		case <-time.After(streamReconnectDelay):
		}
	}
}

func (h *PriceStreamHub) broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for listener := range h.listeners {
		select {
		case listener <- payload:
			continue
		default:
		}
		// Buffer full: evict the oldest event, then retry once.
		select {
		case <-listener:
		default:
		}
		select {
		case listener <- payload:
		default:
		}
	}
}

// Listen registers a new SSE listener. The returned cancel func must be
// called when the client disconnects.
func (h *PriceStreamHub) Listen() (<-chan []byte, func()) {
	ch := make(chan []byte, streamSubscriberBuffer)

	h.mu.Lock()
	h.listeners[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.listeners[ch]; ok {
			delete(h.listeners, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}
