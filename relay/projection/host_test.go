package projection

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/openlifting/liftcast/competition"
	"github.com/openlifting/liftcast/relay/core/feed"
	"github.com/openlifting/liftcast/relay/core/feed/hub"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReader struct {
	ready   bool
	version uint64
	snap    *competition.FOPUpdate
	db      *competition.Database
	table   map[string]string
}

func (m *mockReader) IsReady() bool                          { return m.ready }
func (m *mockReader) ContentVersion(string) uint64           { return m.version }
func (m *mockReader) Snapshot(string) *competition.FOPUpdate { return m.snap }
func (m *mockReader) Database() *competition.Database        { return m.db }

func (m *mockReader) Competition() *competition.Competition {
	if m.db == nil {
		return nil
	}
	return &m.db.Competition
}

func (m *mockReader) ListFOPs() []string                    { return []string{"A"} }
func (m *mockReader) Records() []competition.Record         { return nil }
func (m *mockReader) NewRecords() []competition.Record      { return nil }
func (m *mockReader) Translations(string) map[string]string { return m.table }

func (m *mockReader) SessionAthlete(string, competition.FlexString) *competition.SessionAthlete {
	return nil
}

func (m *mockReader) AthleteByKey(competition.FlexString) *competition.Athlete { return nil }
func (m *mockReader) TeamName(id competition.FlexString) string                { return id.String() }
func (m *mockReader) AgeGroupFor(string) string                                { return "" }

type testNotifier struct {
	feed *event.Feed
}

func (n *testNotifier) HubFeed() *event.Feed {
	return n.feed
}

func newTestHost(t *testing.T, reader *mockReader) (*Host, *event.Feed) {
	t.Helper()
	f := new(event.Feed)
	h := NewHost(context.Background(), &Config{
		Reader:   reader,
		Notifier: &testNotifier{feed: f},
	})
	t.Cleanup(func() {
		require.NoError(t, h.Stop())
	})
	return h, f
}

// countingProjection computes a fresh slice and counts invocations.
func countingProjection(name string, computes *int64) *Projection {
	return &Projection{
		Name: name,
		Schema: Schema{
			{Key: "limit", Type: OptionNumber, Default: float64(0), Min: f64(0), Max: f64(10)},
		},
		Compute: func(_ context.Context, req *Request) (interface{}, error) {
			atomic.AddInt64(computes, 1)
			return []string{req.FOP, req.Locale}, nil
		},
	}
}

func TestRegister_RejectsDuplicates(t *testing.T) {
	h, _ := newTestHost(t, &mockReader{ready: true})
	var n int64
	require.NoError(t, h.Register(countingProjection("dup", &n)))
	err := h.Register(countingProjection("dup", &n))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestList_SortsByName(t *testing.T) {
	h, _ := newTestHost(t, &mockReader{ready: true})
	var n int64
	require.NoError(t, h.Register(countingProjection("zebra", &n)))
	require.NoError(t, h.Register(countingProjection("alpha", &n)))
	require.NoError(t, h.Register(countingProjection("middle", &n)))
	names := make([]string, 0, 3)
	for _, p := range h.List() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"alpha", "middle", "zebra"}, names)
}

func TestQuery_UnknownProjection(t *testing.T) {
	h, _ := newTestHost(t, &mockReader{ready: true})
	_, err := h.Query(context.Background(), "nope", "A", nil, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownProjection))
}

func TestQuery_NotReady(t *testing.T) {
	h, _ := newTestHost(t, &mockReader{ready: false})
	var n int64
	require.NoError(t, h.Register(countingProjection("view", &n)))
	_, err := h.Query(context.Background(), "view", "A", nil, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotReady))
	assert.Equal(t, int64(0), atomic.LoadInt64(&n))
}

func TestQuery_InvalidOptions(t *testing.T) {
	h, _ := newTestHost(t, &mockReader{ready: true})
	var n int64
	require.NoError(t, h.Register(countingProjection("view", &n)))
	_, err := h.Query(context.Background(), "view", "A", map[string]string{"limit": "11"}, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOptionInvalid))
}

func TestQuery_CachesPerContentVersion(t *testing.T) {
	reader := &mockReader{ready: true, version: 1}
	h, _ := newTestHost(t, reader)
	var n int64
	require.NoError(t, h.Register(countingProjection("view", &n)))

	first, err := h.Query(context.Background(), "view", "A", nil, "")
	require.NoError(t, err)
	second, err := h.Query(context.Background(), "view", "A", nil, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), atomic.LoadInt64(&n), "second query should hit the cache")
	assert.Equal(t, first.Data, second.Data)
	assert.Equal(t, uint64(1), second.Version)

	// New content means a new cache entry.
	reader.version = 2
	third, err := h.Query(context.Background(), "view", "A", nil, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), atomic.LoadInt64(&n))
	assert.Equal(t, uint64(2), third.Version)
}

func TestQuery_DistinctOptionsComputeSeparately(t *testing.T) {
	h, _ := newTestHost(t, &mockReader{ready: true, version: 1})
	var n int64
	require.NoError(t, h.Register(countingProjection("view", &n)))

	_, err := h.Query(context.Background(), "view", "A", map[string]string{"limit": "1"}, "")
	require.NoError(t, err)
	_, err = h.Query(context.Background(), "view", "A", map[string]string{"limit": "2"}, "")
	require.NoError(t, err)
	_, err = h.Query(context.Background(), "view", "A", map[string]string{"limit": "1"}, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), atomic.LoadInt64(&n))
}

func TestQuery_ComputeErrorsAreNotCached(t *testing.T) {
	h, _ := newTestHost(t, &mockReader{ready: true, version: 1})
	var n int64
	boom := errors.New("boom")
	require.NoError(t, h.Register(&Projection{
		Name: "flaky",
		Compute: func(context.Context, *Request) (interface{}, error) {
			if atomic.AddInt64(&n, 1) == 1 {
				return nil, boom
			}
			return "ok", nil
		},
	}))

	_, err := h.Query(context.Background(), "flaky", "A", nil, "")
	require.Error(t, err)
	res, err := h.Query(context.Background(), "flaky", "A", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Data)
	assert.Equal(t, int64(2), atomic.LoadInt64(&n))
}

func TestQuery_OverlaysLiveTimer(t *testing.T) {
	snap := &competition.FOPUpdate{
		FOPName: "A",
		AthleteTimer: competition.TimerState{
			EventType:       competition.TimerStart,
			MillisRemaining: 60000,
			Duration:        60000,
		},
	}
	reader := &mockReader{ready: true, version: 7, snap: snap}
	h, _ := newTestHost(t, reader)
	var n int64
	require.NoError(t, h.Register(countingProjection("view", &n)))

	first, err := h.Query(context.Background(), "view", "A", nil, "")
	require.NoError(t, err)
	require.NotNil(t, first.Timer)
	assert.Equal(t, "running", first.Timer.State)
	assert.Equal(t, int64(60000), first.Timer.TimeRemaining)

	// A stop frame only touches the clock substate; the cached view is
	// reused but the overlay must be fresh.
	snap.AthleteTimer.EventType = competition.TimerStop
	snap.AthleteTimer.MillisRemaining = 23450
	second, err := h.Query(context.Background(), "view", "A", nil, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), atomic.LoadInt64(&n), "timer change must not recompute the view")
	require.NotNil(t, second.Timer)
	assert.Equal(t, "stopped", second.Timer.State)
	assert.Equal(t, int64(23450), second.Timer.TimeRemaining)
	assert.Equal(t, first.Version, second.Version)
}

func TestQuery_OverlaysDecision(t *testing.T) {
	white, red := true, false
	snap := &competition.FOPUpdate{
		FOPName: "A",
		Decision: competition.DecisionState{
			EventType: competition.DecisionFull,
			Votes:     [3]*bool{&white, &white, &red},
			Visible:   true,
		},
	}
	h, _ := newTestHost(t, &mockReader{ready: true, version: 1, snap: snap})
	var n int64
	require.NoError(t, h.Register(countingProjection("view", &n)))

	res, err := h.Query(context.Background(), "view", "A", nil, "")
	require.NoError(t, err)
	require.NotNil(t, res.Decision)
	require.NotNil(t, res.Decision.GoodLift)
	assert.True(t, *res.Decision.GoodLift)
	assert.True(t, res.Decision.Visible)
}

func TestReloadEventsClearCaches(t *testing.T) {
	reader := &mockReader{ready: true, version: 1}
	h, f := newTestHost(t, reader)
	var n int64
	require.NoError(t, h.Register(countingProjection("view", &n)))
	h.Start()

	_, err := h.Query(context.Background(), "view", "A", nil, "")
	require.NoError(t, err)
	require.Equal(t, int64(1), atomic.LoadInt64(&n))

	// Translation reloads change rendered output without touching any
	// content version, so every cache is flushed.
	for f.Send(&feed.Event{Type: hub.TranslationsLoaded, Data: &hub.TranslationsLoadedData{}}) == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	require.Eventually(t, func() bool {
		res, err := h.Query(context.Background(), "view", "A", nil, "")
		return err == nil && res != nil && atomic.LoadInt64(&n) > 1
	}, 2*time.Second, 10*time.Millisecond)
}
