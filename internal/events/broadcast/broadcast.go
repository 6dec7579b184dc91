// Package broadcast is the in-process fan-out of ledger events, used for
// live UI totals when no broker is configured. Subscribers that fall
// behind lose messages rather than blocking the ledger's critical section.
package broadcast

import "sync"

// Message pairs a topic with its event payload.
type Message struct {
	Topic string
	Event any
}

// Broadcaster implements interfaces.EventPublisher over buffered channels.
type Broadcaster struct {
	mu   sync.Mutex
	subs []chan Message
	size int
}

func New(bufferSize int) *Broadcaster {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Broadcaster{size: bufferSize}
}

// Subscribe registers a new listener. The returned channel is closed by
// Close; callers must drain it promptly or accept drops.
func (b *Broadcaster) Subscribe() <-chan Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Message, b.size)
	b.subs = append(b.subs, ch)
	return ch
}

// Publish fans the event out to every subscriber, dropping on full buffers.
func (b *Broadcaster) Publish(topic string, event any) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- Message{Topic: topic, Event: event}:
		default:
		}
	}
	return nil
}

// Close closes every subscriber channel.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
