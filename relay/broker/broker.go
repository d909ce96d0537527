// Package broker fans hub events out to downstream scoreboard clients. It
// never ships competition payloads, only light notifications naming what
// changed and where; clients pull the processed view they care about. Bursts
// of events for one platform and kind are coalesced inside a short window,
// and the latest notification wins.
package broker

import (
	"context"
	"sync"
	"time"

	"github.com/openlifting/liftcast/config/params"
	"github.com/openlifting/liftcast/relay/core/feed"
	"github.com/openlifting/liftcast/relay/core/feed/hub"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "broker")

// Notification kinds carried on the push channel.
const (
	KindUpdate          = "update"
	KindTimer           = "timer"
	KindDecision        = "decision"
	KindDatabase        = "database"
	KindTranslations    = "translations"
	KindAssets          = "assets"
	KindSessionDone     = "sessionDone"
	KindSessionReopened = "sessionReopened"
	KindReady           = "ready"
)

// Notification is the light trigger delivered to subscribers. FOPName is
// empty for competition-wide events such as a database reload.
type Notification struct {
	EventKind string    `json:"eventKind"`
	FOPName   string    `json:"fopName,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type pendingKey struct {
	fop  string
	kind string
}

// Config options for the fan-out broker.
type Config struct {
	Notifier hub.Notifier
}

// Broker subscribes to the hub feed and delivers debounced notifications to
// registered subscribers. Delivery to one subscriber never blocks delivery
// to another.
type Broker struct {
	cfg     *Config
	ctx     context.Context
	cancel  context.CancelFunc
	lock    sync.Mutex
	subs    map[uint64]*subscriber
	nextID  uint64
	pending map[pendingKey]*Notification
}

// New initializes the broker from its configuration.
func New(ctx context.Context, cfg *Config) *Broker {
	ctx, cancel := context.WithCancel(ctx)
	return &Broker{
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
		subs:    make(map[uint64]*subscriber),
		pending: make(map[pendingKey]*Notification),
	}
}

// Start begins consuming the hub feed.
func (b *Broker) Start() {
	log.WithField("coalesceWindow", params.Relay().CoalesceWindow).Info("Starting fan-out broker")
	go b.run()
}

// Stop detaches all subscribers and stops consuming the hub feed.
func (b *Broker) Stop() error {
	b.cancel()
	b.lock.Lock()
	defer b.lock.Unlock()
	for id, sub := range b.subs {
		sub.closeLocked()
		delete(b.subs, id)
	}
	activeSubscribersGauge.Set(0)
	return nil
}

// Status always returns nil; a broker with no subscribers is healthy.
func (b *Broker) Status() error {
	return nil
}

func (b *Broker) run() {
	ch := make(chan *feed.Event, 128)
	sub := b.cfg.Notifier.HubFeed().Subscribe(ch)
	defer sub.Unsubscribe()
	for {
		select {
		case evt := <-ch:
			b.handleEvent(evt)
		case err := <-sub.Err():
			log.WithError(err).Error("Hub feed subscription failed")
			return
		case <-b.ctx.Done():
			return
		}
	}
}

func (b *Broker) handleEvent(evt *feed.Event) {
	kind, fop, ok := classify(evt)
	if !ok {
		return
	}
	n := &Notification{EventKind: kind, FOPName: fop, Timestamp: time.Now()}
	key := pendingKey{fop: fop, kind: kind}

	b.lock.Lock()
	defer b.lock.Unlock()
	if _, waiting := b.pending[key]; waiting {
		// A flush is already scheduled for this key; the newer notification
		// replaces the queued one.
		b.pending[key] = n
		notificationsCoalescedCount.Inc()
		return
	}
	b.pending[key] = n
	window := params.Relay().CoalesceWindow
	if window <= 0 {
		b.flushLocked(key)
		return
	}
	time.AfterFunc(window, func() {
		b.lock.Lock()
		defer b.lock.Unlock()
		b.flushLocked(key)
	})
}

// flushLocked delivers the pending notification for key to every matching
// subscriber. Callers hold the broker lock; per-subscriber queues make the
// sends non-blocking.
func (b *Broker) flushLocked(key pendingKey) {
	n, ok := b.pending[key]
	if !ok {
		return
	}
	delete(b.pending, key)
	if b.ctx.Err() != nil {
		return
	}
	for _, sub := range b.subs {
		if sub.matches(n) {
			sub.offer(n)
		}
	}
	notificationsDeliveredCount.WithLabelValues(n.EventKind).Inc()
}

// classify maps a hub event to its notification kind and platform. Events
// that only matter inside the hub report ok false.
func classify(evt *feed.Event) (string, string, bool) {
	switch evt.Type {
	case hub.UpdateReceived:
		if d, ok := evt.Data.(*hub.UpdateReceivedData); ok {
			return KindUpdate, d.FOP, true
		}
	case hub.TimerReceived:
		if d, ok := evt.Data.(*hub.TimerReceivedData); ok {
			return KindTimer, d.FOP, true
		}
	case hub.DecisionReceived:
		if d, ok := evt.Data.(*hub.DecisionReceivedData); ok {
			return KindDecision, d.FOP, true
		}
	case hub.SessionDone:
		if d, ok := evt.Data.(*hub.SessionDoneData); ok {
			return KindSessionDone, d.FOP, true
		}
	case hub.SessionReopened:
		if d, ok := evt.Data.(*hub.SessionReopenedData); ok {
			return KindSessionReopened, d.FOP, true
		}
	case hub.DatabaseReady:
		// DatabaseLoaded fires before indexes are rebuilt; clients are only
		// told once the data is safe to pull.
		return KindDatabase, "", true
	case hub.TranslationsLoaded:
		return KindTranslations, "", true
	case hub.FlagsLoaded, hub.LogosLoaded, hub.PicturesLoaded, hub.StylesLoaded:
		return KindAssets, "", true
	case hub.HubReady:
		return KindReady, "", true
	}
	return "", "", false
}
