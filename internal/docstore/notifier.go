package docstore

import (
	"context"
	"sync"
)

// Notifier fans out encoded snapshots by topic. Subscribers only care about
// the newest snapshot, so a slow subscriber may miss intermediate ones but
// always receives the latest.
type Notifier interface {
	Subscribe(ctx context.Context, topic string) (<-chan []byte, func(), error)
	Publish(ctx context.Context, topic string, data []byte) error
}

// Broker is an in-process Notifier for a single server instance.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel receiving snapshots published on topic. The
// returned func unsubscribes and closes the channel.
func (b *Broker) Subscribe(_ context.Context, topic string) (<-chan []byte, func(), error) {
	ch := make(chan []byte, 1)
	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[chan []byte]struct{})
	}
	b.subs[topic][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[topic], ch)
			if len(b.subs[topic]) == 0 {
				delete(b.subs, topic)
			}
			b.mu.Unlock()
			close(ch)
		})
	}, nil
}

// Publish hands data to every subscriber of topic without blocking. A
// snapshot still waiting in a subscriber's buffer is replaced.
func (b *Broker) Publish(_ context.Context, topic string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[topic] {
		deliverLatest(ch, data)
	}
	return nil
}

// Subscribers reports the number of live subscriptions on topic.
func (b *Broker) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

func deliverLatest(ch chan []byte, data []byte) {
	for {
		select {
		case ch <- data:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
