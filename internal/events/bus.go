package events

import (
	"sync"

	"go.uber.org/zap"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 64

// Bus fans events out to the subscribers of a topic. A topic is usually one
// client session.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Event
	buffer      int
	log         *zap.Logger
}

// NewBus creates a new event bus
func NewBus(log *zap.Logger, buffer int) *Bus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Bus{
		subscribers: make(map[string][]chan Event),
		buffer:      buffer,
		log:         log,
	}
}

// Subscribe subscribes to events for a topic
func (b *Bus) Subscribe(topic string) chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.buffer)
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	return ch
}

// Unsubscribe removes a subscription and closes its channel
func (b *Bus) Unsubscribe(topic string, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[topic]
	for i, sub := range subs {
		if sub == ch {
			b.subscribers[topic] = append(subs[:i], subs[i+1:]...)
			close(ch)
			break
		}
	}
	if len(b.subscribers[topic]) == 0 {
		delete(b.subscribers, topic)
	}
}

// Publish never blocks. A subscriber whose buffer is full misses the
// event, except for terminal events, which push out the oldest queued one.
func (b *Bus) Publish(topic string, ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers[topic] {
		if b.deliver(ch, ev) {
			continue
		}
		b.log.Warn("event dropped, subscriber is full",
			zap.String("topic", topic), zap.String("type", string(ev.Type)))
	}
}

func (b *Bus) deliver(ch chan Event, ev Event) bool {
	for attempt := 0; attempt <= b.buffer; attempt++ {
		select {
		case ch <- ev:
			return true
		default:
		}
		if !ev.Type.Terminal() {
			return false
		}
		select {
		case old := <-ch:
			lvl := zap.DebugLevel
			if old.Type.Terminal() {
				lvl = zap.WarnLevel
			}
			b.log.Log(lvl, "evicted queued event", zap.String("type", string(old.Type)))
		default:
		}
	}
	return false
}

// Topic binds the bus to one topic.
func (b *Bus) Topic(topic string) Publisher {
	return topicPublisher{bus: b, topic: topic}
}

type topicPublisher struct {
	bus   *Bus
	topic string
}

func (p topicPublisher) Publish(ev Event) { p.bus.Publish(p.topic, ev) }
