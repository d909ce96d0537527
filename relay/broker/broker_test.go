package broker

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/openlifting/liftcast/config/params"
	"github.com/openlifting/liftcast/relay/core/feed"
	"github.com/openlifting/liftcast/relay/core/feed/hub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testNotifier struct {
	feed *event.Feed
}

func (n *testNotifier) HubFeed() *event.Feed {
	return n.feed
}

func newTestBroker(t *testing.T, window time.Duration, queueDepth int) (*Broker, *event.Feed) {
	t.Helper()
	params.SetupTestConfigCleanup(t)
	cfg := params.Relay().Copy()
	cfg.CoalesceWindow = window
	if queueDepth > 0 {
		cfg.SubscriberQueueDepth = queueDepth
	}
	params.OverrideRelayConfig(cfg)
	f := new(event.Feed)
	b := New(context.Background(), &Config{Notifier: &testNotifier{feed: f}})
	b.Start()
	t.Cleanup(func() {
		require.NoError(t, b.Stop())
	})
	return b, f
}

// sendEvent retries until the broker's feed subscription is registered and
// the event has been handed off.
func sendEvent(t *testing.T, f *event.Feed, evt *feed.Event) {
	t.Helper()
	require.Eventually(t, func() bool {
		return f.Send(evt) > 0
	}, 2*time.Second, 5*time.Millisecond)
}

func updateEvent(fop string) *feed.Event {
	return &feed.Event{
		Type: hub.UpdateReceived,
		Data: &hub.UpdateReceivedData{FOP: fop, UIEvent: "LiftingOrderUpdated", Version: 1},
	}
}

func waitNotification(t *testing.T, sub *Subscription) *Notification {
	t.Helper()
	select {
	case n, open := <-sub.C:
		require.True(t, open, "subscription closed early")
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
	return nil
}

func assertNoNotification(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case n := <-sub.C:
		t.Fatalf("unexpected notification %+v", n)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNotificationDelivery(t *testing.T) {
	b, f := newTestBroker(t, 0, 0)
	sub := b.Subscribe(SubscribeOptions{})
	defer sub.Unsubscribe()

	sendEvent(t, f, updateEvent("A"))
	n := waitNotification(t, sub)
	assert.Equal(t, KindUpdate, n.EventKind)
	assert.Equal(t, "A", n.FOPName)
	assert.False(t, n.Timestamp.IsZero())

	sendEvent(t, f, &feed.Event{
		Type: hub.DecisionReceived,
		Data: &hub.DecisionReceivedData{FOP: "A", EventType: "FullDecision", Version: 2},
	})
	n = waitNotification(t, sub)
	assert.Equal(t, KindDecision, n.EventKind)

	// Payload-free hub events carry no platform name.
	sendEvent(t, f, &feed.Event{Type: hub.DatabaseReady, Data: &hub.DatabaseReadyData{}})
	n = waitNotification(t, sub)
	assert.Equal(t, KindDatabase, n.EventKind)
	assert.Equal(t, "", n.FOPName)
}

func TestCoalescing(t *testing.T) {
	b, f := newTestBroker(t, 50*time.Millisecond, 0)
	sub := b.Subscribe(SubscribeOptions{})
	defer sub.Unsubscribe()

	for i := 0; i < 5; i++ {
		sendEvent(t, f, updateEvent("A"))
	}
	n := waitNotification(t, sub)
	assert.Equal(t, KindUpdate, n.EventKind)
	assert.Equal(t, "A", n.FOPName)

	// The burst collapsed into a single delivery.
	assertNoNotification(t, sub)
}

func TestCoalescingIsPerKeyNotGlobal(t *testing.T) {
	b, f := newTestBroker(t, 50*time.Millisecond, 0)
	sub := b.Subscribe(SubscribeOptions{})
	defer sub.Unsubscribe()

	sendEvent(t, f, updateEvent("A"))
	sendEvent(t, f, updateEvent("B"))
	sendEvent(t, f, &feed.Event{
		Type: hub.TimerReceived,
		Data: &hub.TimerReceivedData{FOP: "A", Version: 2},
	})

	got := map[string]int{}
	for i := 0; i < 3; i++ {
		n := waitNotification(t, sub)
		got[n.EventKind+"/"+n.FOPName]++
	}
	assert.Equal(t, map[string]int{"update/A": 1, "update/B": 1, "timer/A": 1}, got)
}

func TestSubscriberFilters(t *testing.T) {
	b, f := newTestBroker(t, 0, 0)
	byFOP := b.Subscribe(SubscribeOptions{FOP: "A"})
	defer byFOP.Unsubscribe()
	byKind := b.Subscribe(SubscribeOptions{Kinds: []string{KindTimer}})
	defer byKind.Unsubscribe()

	sendEvent(t, f, updateEvent("B"))
	sendEvent(t, f, updateEvent("A"))
	sendEvent(t, f, &feed.Event{
		Type: hub.TimerReceived,
		Data: &hub.TimerReceivedData{FOP: "B", Version: 1},
	})
	// Competition-wide events pass the FOP filter.
	sendEvent(t, f, &feed.Event{Type: hub.DatabaseReady, Data: &hub.DatabaseReadyData{}})

	n := waitNotification(t, byFOP)
	assert.Equal(t, KindUpdate, n.EventKind)
	assert.Equal(t, "A", n.FOPName)
	n = waitNotification(t, byFOP)
	assert.Equal(t, KindDatabase, n.EventKind)
	assertNoNotification(t, byFOP)

	n = waitNotification(t, byKind)
	assert.Equal(t, KindTimer, n.EventKind)
	assert.Equal(t, "B", n.FOPName)
	assertNoNotification(t, byKind)
}

func TestQueueOverflowDropsOldest(t *testing.T) {
	b, f := newTestBroker(t, 0, 2)
	sub := b.Subscribe(SubscribeOptions{})
	defer sub.Unsubscribe()

	// Distinct platforms so nothing coalesces.
	sendEvent(t, f, updateEvent("A"))
	sendEvent(t, f, updateEvent("B"))
	sendEvent(t, f, updateEvent("C"))

	require.Eventually(t, func() bool {
		return sub.Dropped() == 1
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, "B", waitNotification(t, sub).FOPName)
	assert.Equal(t, "C", waitNotification(t, sub).FOPName)
}

func TestCallbackSubscriberPanicsAreIsolated(t *testing.T) {
	b, f := newTestBroker(t, 0, 0)

	received := make(chan *Notification, 16)
	healthy := b.SubscribeFunc(SubscribeOptions{}, func(n *Notification) error {
		received <- n
		return nil
	})
	defer healthy.Unsubscribe()
	b.SubscribeFunc(SubscribeOptions{}, func(*Notification) error {
		panic("boom")
	})

	for _, fop := range []string{"A", "B", "C"} {
		sendEvent(t, f, updateEvent(fop))
	}

	// The panicking subscriber crosses the failure threshold and is removed;
	// the healthy one keeps receiving.
	require.Eventually(t, func() bool {
		b.lock.Lock()
		defer b.lock.Unlock()
		return len(b.subs) == 1
	}, 2*time.Second, 10*time.Millisecond)

	for i := 0; i < 3; i++ {
		select {
		case <-received:
		case <-time.After(2 * time.Second):
			t.Fatal("healthy subscriber missed a notification")
		}
	}

	sendEvent(t, f, updateEvent("D"))
	select {
	case n := <-received:
		assert.Equal(t, "D", n.FOPName)
	case <-time.After(2 * time.Second):
		t.Fatal("healthy subscriber stopped receiving")
	}
}

func TestPushHandler(t *testing.T) {
	b, f := newTestBroker(t, 0, 0)
	server := httptest.NewServer(http.HandlerFunc(b.PushHandler))
	defer server.Close()

	resp, err := http.Get(server.URL + "?fop=A")
	require.NoError(t, err)
	defer func() {
		require.NoError(t, resp.Body.Close())
	}()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// Wait for the handler's subscription to register before emitting.
	require.Eventually(t, func() bool {
		b.lock.Lock()
		defer b.lock.Unlock()
		return len(b.subs) == 1
	}, 2*time.Second, 5*time.Millisecond)

	sendEvent(t, f, updateEvent("A"))

	scanner := bufio.NewScanner(resp.Body)
	var eventLine, dataLine string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			eventLine = line
		}
		if strings.HasPrefix(line, "data: ") {
			dataLine = line
			break
		}
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, "event: update", eventLine)

	var n Notification
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(dataLine, "data: ")), &n))
	assert.Equal(t, KindUpdate, n.EventKind)
	assert.Equal(t, "A", n.FOPName)
}
