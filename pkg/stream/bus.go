// Package stream carries sequences of agent responses between in-process
// producers and consumers. It is the fan-out layer a producer uses to express
// a response stream; client-facing transport lives outside this module.
package stream

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/agentrelay/agentrelay/pkg/schema"
)

// DefaultBuffer is the per-subscriber channel capacity. Large enough to
// absorb bursts of cot_step responses without blocking the producer.
const DefaultBuffer = 100

type subscriber struct {
	id string
	ch chan schema.AgentResponse
}

// Bus routes agent responses to subscribers keyed by channel ID (one channel
// per response stream). Publishing never blocks: a subscriber that falls
// behind its buffer loses responses, with a warning logged.
type Bus struct {
	logger *slog.Logger
	mu     sync.RWMutex
	subs   map[string][]subscriber // Key: channel ID
}

func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		logger: logger,
		subs:   make(map[string][]subscriber),
	}
}

// Subscribe returns a channel receiving every response published on channelID
// and a function that tears the subscription down and closes the channel.
func (b *Bus) Subscribe(channelID string) (<-chan schema.AgentResponse, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := subscriber{
		id: uuid.New().String(),
		ch: make(chan schema.AgentResponse, DefaultBuffer),
	}
	b.subs[channelID] = append(b.subs[channelID], sub)

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subscribers := b.subs[channelID]
		for i, s := range subscribers {
			if s.id == sub.id {
				close(s.ch)
				b.subs[channelID] = append(subscribers[:i], subscribers[i+1:]...)
				break
			}
		}
		if len(b.subs[channelID]) == 0 {
			delete(b.subs, channelID)
		}
	}

	return sub.ch, unsub
}

// Publish delivers a response to all subscribers of the channel. Responses to
// channels without subscribers are dropped silently.
func (b *Bus) Publish(channelID string, resp schema.AgentResponse) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	subscribers, ok := b.subs[channelID]
	if !ok {
		return
	}

	for _, sub := range subscribers {
		select {
		case sub.ch <- resp:
		default:
			// Subscriber buffer full: drop rather than block the producer.
			b.logger.Warn("response channel full, dropping response",
				"channel_id", channelID, "typ", string(resp.Typ))
		}
	}
}
