package memory

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

const subscriberBuffer = 64

// PubSub is a process-local broker with the same contract as the Redis one.
type PubSub struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewPubSub() *PubSub {
	return &PubSub{subs: make(map[string]map[chan []byte]struct{})}
}

// Publish delivers payload to every subscriber of channel. Slow subscribers
// whose buffer is full miss the message.
func (ps *PubSub) Publish(_ context.Context, channel string, payload []byte) error {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for ch := range ps.subs[channel] {
		msg := make([]byte, len(payload))
		copy(msg, payload)
		select {
		case ch <- msg:
		default:
			log.Warn().Str("channel", channel).Msg("pubsub: subscriber buffer full, dropping message")
		}
	}
	return nil
}

func (ps *PubSub) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	ch := make(chan []byte, subscriberBuffer)

	ps.mu.Lock()
	if ps.subs[channel] == nil {
		ps.subs[channel] = make(map[chan []byte]struct{})
	}
	ps.subs[channel][ch] = struct{}{}
	ps.mu.Unlock()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			ps.mu.Lock()
			delete(ps.subs[channel], ch)
			if len(ps.subs[channel]) == 0 {
				delete(ps.subs, channel)
			}
			ps.mu.Unlock()
			close(ch)
		})
	}

	go func() {
		<-ctx.Done()
		cleanup()
	}()

	return ch, cleanup, nil
}

func (ps *PubSub) Ping(context.Context) error { return nil }

func (ps *PubSub) Close() error { return nil }
