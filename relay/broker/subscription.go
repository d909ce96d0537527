package broker

import (
	"sync/atomic"

	"github.com/openlifting/liftcast/config/params"
	"github.com/pkg/errors"
)

// SubscribeOptions narrow what a subscriber receives. A zero value receives
// everything. Competition-wide notifications pass every FOP filter.
type SubscribeOptions struct {
	FOP   string
	Kinds []string
}

type subscriber struct {
	id      uint64
	fop     string
	kinds   map[string]bool
	ch      chan *Notification
	dropped uint64
	closed  bool
}

// Subscription is a registered subscriber's receiving end. C is closed when
// the subscription ends, either by Unsubscribe or broker shutdown.
type Subscription struct {
	ID uint64
	C  <-chan *Notification

	b   *Broker
	sub *subscriber
}

// Subscribe registers a subscriber with a bounded queue. When the queue is
// full the oldest notification is dropped so slow consumers fall behind on
// history, never on liveness.
func (b *Broker) Subscribe(opts SubscribeOptions) *Subscription {
	depth := params.Relay().SubscriberQueueDepth
	if depth < 1 {
		depth = 1
	}
	sub := &subscriber{
		fop: opts.FOP,
		ch:  make(chan *Notification, depth),
	}
	if len(opts.Kinds) > 0 {
		sub.kinds = make(map[string]bool, len(opts.Kinds))
		for _, k := range opts.Kinds {
			sub.kinds[k] = true
		}
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	b.nextID++
	sub.id = b.nextID
	b.subs[sub.id] = sub
	activeSubscribersGauge.Inc()
	return &Subscription{ID: sub.id, C: sub.ch, b: b, sub: sub}
}

// SubscribeFunc registers a callback subscriber. The callback runs on its
// own goroutine; an error or panic is isolated, and a subscriber that fails
// repeatedly is unsubscribed.
func (b *Broker) SubscribeFunc(opts SubscribeOptions, fn func(*Notification) error) *Subscription {
	sub := b.Subscribe(opts)
	go b.runCallback(sub, fn)
	return sub
}

// Unsubscribe removes the subscriber and closes its channel.
func (s *Subscription) Unsubscribe() {
	s.b.lock.Lock()
	defer s.b.lock.Unlock()
	if _, ok := s.b.subs[s.ID]; !ok {
		return
	}
	delete(s.b.subs, s.ID)
	s.sub.closeLocked()
	activeSubscribersGauge.Dec()
}

// Dropped reports how many notifications were discarded because this
// subscriber's queue was full.
func (s *Subscription) Dropped() uint64 {
	return atomic.LoadUint64(&s.sub.dropped)
}

func (s *subscriber) matches(n *Notification) bool {
	if s.fop != "" && n.FOPName != "" && s.fop != n.FOPName {
		return false
	}
	if s.kinds != nil && !s.kinds[n.EventKind] {
		return false
	}
	return true
}

// offer enqueues without blocking. Callers hold the broker lock, so there is
// a single producer and eviction cannot race another send.
func (s *subscriber) offer(n *Notification) {
	if s.closed {
		return
	}
	for {
		select {
		case s.ch <- n:
			return
		default:
		}
		select {
		case <-s.ch:
			atomic.AddUint64(&s.dropped, 1)
			notificationsDroppedCount.Inc()
		default:
		}
	}
}

// closeLocked marks the subscriber finished. Callers hold the broker lock.
func (s *subscriber) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

func (b *Broker) runCallback(sub *Subscription, fn func(*Notification) error) {
	var failures int
	threshold := params.Relay().SubscriberFailureThreshold
	for n := range sub.C {
		if err := invoke(fn, n); err != nil {
			failures++
			subscriberFailuresCount.Inc()
			log.WithError(err).WithField("subscriber", sub.ID).Warn("Subscriber callback failed")
			if threshold > 0 && failures >= threshold {
				log.WithField("subscriber", sub.ID).Warn("Unsubscribing repeatedly failing subscriber")
				sub.Unsubscribe()
				return
			}
			continue
		}
		failures = 0
	}
}

// invoke shields the delivery loop from a panicking callback.
func invoke(fn func(*Notification) error, n *Notification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("subscriber panicked: %v", r)
		}
	}()
	return fn(n)
}
