// Package hub is the fan-out broadcaster: named topics keyed by channel
// id, with live connections subscribing and unsubscribing explicitly.
// Delivery is at-most-once and best-effort; there is no queue for
// disconnected subscribers. Clients that reconnect recover missed history
// from the durable log store.
package hub

import (
	"sync"

	"github.com/saipul12c/my-portofolio-sub004/internal/metrics"
	"github.com/saipul12c/my-portofolio-sub004/pkg/logger"
)

// Event is the envelope pushed to subscribers.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Event types on the server-to-client surface.
const (
	EventMessage       = "message"
	EventReaction      = "reaction"
	EventTyping        = "typing"
	EventPresence      = "presence"
	EventJoined        = "joined"
	EventAuthenticated = "authenticated"
	EventError         = "error"
)

// Sink receives events for one live connection. Deliver must not block;
// returning false marks the sink dead and drops it from every topic.
type Sink interface {
	Deliver(ev Event) bool
}

// Broker owns the topic-to-subscriber registry.
type Broker struct {
	mu     sync.RWMutex
	topics map[string]map[Sink]struct{}
	sinks  map[Sink]map[string]struct{}
	log    *logger.Logger
}

// NewBroker creates an empty broker.
func NewBroker(log *logger.Logger) *Broker {
	return &Broker{
		topics: make(map[string]map[Sink]struct{}),
		sinks:  make(map[Sink]map[string]struct{}),
		log:    log,
	}
}

// Register adds a connection with no subscriptions yet. Registered sinks
// receive all-connection broadcasts (presence).
func (b *Broker) Register(sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.sinks[sink]; !ok {
		b.sinks[sink] = make(map[string]struct{})
	}
}

// Deregister removes a connection and all of its subscriptions.
func (b *Broker) Deregister(sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dropLocked(sink)
}

// Subscribe binds sink to a topic. Subscriptions live in memory only and
// are re-established explicitly after reconnect.
func (b *Broker) Subscribe(topic string, sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.sinks[sink]; !ok {
		b.sinks[sink] = make(map[string]struct{})
	}
	b.sinks[sink][topic] = struct{}{}

	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[Sink]struct{})
		b.topics[topic] = subs
	}
	subs[sink] = struct{}{}
}

// Unsubscribe unbinds sink from a topic.
func (b *Broker) Unsubscribe(topic string, sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, ok := b.topics[topic]; ok {
		delete(subs, sink)
		if len(subs) == 0 {
			delete(b.topics, topic)
		}
	}
	if topics, ok := b.sinks[sink]; ok {
		delete(topics, topic)
	}
}

// Publish delivers ev to every sink currently subscribed to topic,
// exactly once per subscriber. Delivery failures never reach the caller.
func (b *Broker) Publish(topic string, ev Event) {
	b.mu.RLock()
	targets := make([]Sink, 0, len(b.topics[topic]))
	for sink := range b.topics[topic] {
		targets = append(targets, sink)
	}
	b.mu.RUnlock()

	b.deliver(targets, ev)
}

// PublishAll delivers ev to every registered connection regardless of
// subscriptions. Used for presence updates.
func (b *Broker) PublishAll(ev Event) {
	b.mu.RLock()
	targets := make([]Sink, 0, len(b.sinks))
	for sink := range b.sinks {
		targets = append(targets, sink)
	}
	b.mu.RUnlock()

	b.deliver(targets, ev)
}

// SubscriberCount reports how many sinks are bound to a topic.
func (b *Broker) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

func (b *Broker) deliver(targets []Sink, ev Event) {
	var dead []Sink
	for _, sink := range targets {
		if sink.Deliver(ev) {
			metrics.BroadcastsDelivered.Inc()
			continue
		}
		metrics.BroadcastsDropped.Inc()
		dead = append(dead, sink)
	}

	if len(dead) == 0 {
		return
	}
	b.mu.Lock()
	for _, sink := range dead {
		b.dropLocked(sink)
	}
	b.mu.Unlock()
	b.log.Warn("dropped subscribers with blocked sinks", "count", len(dead), "event_type", ev.Type)
}

func (b *Broker) dropLocked(sink Sink) {
	for topic := range b.sinks[sink] {
		if subs, ok := b.topics[topic]; ok {
			delete(subs, sink)
			if len(subs) == 0 {
				delete(b.topics, topic)
			}
		}
	}
	delete(b.sinks, sink)
}
