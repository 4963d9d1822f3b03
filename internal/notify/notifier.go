// Package notify provides the in-process publish/subscribe registry used by the indexer and replay engine.
package notify

import (
	"sync"
	"time"

	"github.com/goran-ethernal/ChainReplay/internal/logger"
	"github.com/goran-ethernal/ChainReplay/pkg/events"
)

// Handler receives notifications. Handlers run synchronously on the publisher's goroutine
// and must not block.
type Handler func(events.Notification)

type subscription struct {
	id     uint64
	topics map[events.Topic]struct{} // empty = every topic
	fn     Handler
}

// Notifier is a callback registry. The zero value is not usable; use New.
type Notifier struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscription
	nextID uint64

	log *logger.Logger
	now func() time.Time
}

// New creates a notifier.
func New(log *logger.Logger) *Notifier {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Notifier{
		subs: make(map[uint64]*subscription),
		log:  log,
		now:  time.Now,
	}
}

// Subscribe registers fn for the given topics (all topics when none are given)
// and returns a function that removes the subscription.
func (n *Notifier) Subscribe(fn Handler, topics ...events.Topic) (unsubscribe func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	sub := &subscription{
		id:     n.nextID,
		topics: make(map[events.Topic]struct{}, len(topics)),
		fn:     fn,
	}
	for _, t := range topics {
		sub.topics[t] = struct{}{}
	}
	n.subs[sub.id] = sub

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, sub.id)
			n.mu.Unlock()
		})
	}
}

// Publish delivers a notification to every matching subscriber.
// A panicking handler is logged and does not affect other subscribers.
func (n *Notifier) Publish(topic events.Topic, payload any) {
	if n == nil {
		return
	}

	n.mu.RLock()
	handlers := make([]Handler, 0, len(n.subs))
	for _, sub := range n.subs {
		if len(sub.topics) > 0 {
			if _, ok := sub.topics[topic]; !ok {
				continue
			}
		}
		handlers = append(handlers, sub.fn)
	}
	n.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	msg := events.Notification{Topic: topic, Timestamp: n.now(), Payload: payload}
	for _, h := range handlers {
		n.deliver(h, msg)
	}

	notificationsPublishedInc(topic)
}

func (n *Notifier) deliver(h Handler, msg events.Notification) {
	defer func() {
		if r := recover(); r != nil {
			n.log.Errorw("notification handler panicked", "topic", msg.Topic, "panic", r)
			handlerPanicsInc()
		}
	}()

	h(msg)
}

// Subscribers returns the number of active subscriptions.
func (n *Notifier) Subscribers() int {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return len(n.subs)
}
