package store

import (
	"testing"

	"github.com/ethereum/go-ethereum/event"
	"github.com/openlifting/liftcast/competition"
	"github.com/openlifting/liftcast/relay/core/feed"
	"github.com/openlifting/liftcast/relay/core/feed/hub"
	"github.com/openlifting/liftcast/relay/i18n"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const databasePayload = `{
	"formatVersion": "2.0",
	"competition": {"competitionName": "Nordic Open", "federation": "NVF", "fops": ["A", "B"]},
	"teams": [{"id": 1, "name": "Oslo AK"}, {"id": 2, "name": "Bergen KK"}],
	"ageGroups": [{"code": "SR", "categories": ["SR_M89", "SR_F64"]}],
	"athletes": [
		{"key": 11, "lastName": "Berg", "firstName": "Anna", "gender": "F",
		 "bodyWeight": 63.4, "yearOfBirth": 1999, "team": 1, "category": "SR_F64",
		 "group": "F1", "startNumber": 1, "lotNumber": 4},
		{"key": -3, "lastName": "Haug", "firstName": "Olav", "gender": "M",
		 "bodyWeight": 88.1, "yearOfBirth": 1995, "team": 2, "category": "SR_M89",
		 "group": "M1", "startNumber": 2, "lotNumber": "9"}
	],
	"records": [
		{"federation": "NVF", "kind": "TOTAL", "gender": "M", "bwLower": 81,
		 "bwUpper": 89, "ageLower": 15, "ageUpper": 999, "value": 350,
		 "holder": "HAUG, Olav"},
		{"federation": "NVF", "kind": "SNATCH", "gender": "F", "bwLower": 59,
		 "bwUpper": 64, "ageLower": 15, "ageUpper": 999, "value": 95,
		 "holder": "BERG, Anna", "session": "F1"}
	]
}`

const updatePayload = `{
	"fopName": "A",
	"groupName": "F1",
	"competitionName": "Nordic Open",
	"uiEvent": "LiftingOrderUpdated",
	"fopState": "CURRENT_ATHLETE_DISPLAYED",
	"sessionAthletes": [
		{"key": 11, "fullName": "BERG, Anna", "teamName": "Oslo AK",
		 "category": "SR_F64", "startNumber": 1, "lotNumber": 4,
		 "snatchAttempts": [
			{"status": "good", "displayValue": "80"},
			{"status": "fail", "displayValue": "(85)"},
			{"status": "empty", "displayValue": ""}],
		 "cleanJerkAttempts": [
			{"status": "request", "displayValue": "100"},
			{"status": "empty", "displayValue": ""},
			{"status": "empty", "displayValue": ""}],
		 "bestSnatch": "80", "bestCleanJerk": "", "total": "",
		 "snatchRank": "1", "classname": "current"},
		{"key": -3, "fullName": "HAUG, Olav", "teamName": "Bergen KK",
		 "category": "SR_M89", "startNumber": 2, "lotNumber": "9",
		 "snatchAttempts": [
			{"status": "request", "displayValue": "120"},
			{"status": "empty", "displayValue": ""},
			{"status": "empty", "displayValue": ""}],
		 "cleanJerkAttempts": [
			{"status": "empty", "displayValue": ""},
			{"status": "empty", "displayValue": ""},
			{"status": "empty", "displayValue": ""}],
		 "bestSnatch": "", "bestCleanJerk": "", "total": ""}
	],
	"liftingOrderKeys": [11, {"isSpacer": true, "title": "Clean & Jerk"}, -3],
	"startOrderKeys": [11, -3]
}`

const timerPayload = `{"fopName":"A","athleteTimerEventType":"StartTime","athleteMillisRemaining":60000,"timeAllowed":60000}`

const decisionPayload = `{"fopName":"A","decisionEventType":"FullDecision","refereeVotes":[true,true,false],"decisionsVisible":true,"down":true}`

const groupDonePayload = `{"fopName":"A","groupName":"F1","uiEvent":"GroupDone","breakType":"GROUP_DONE"}`

type testNotifier struct {
	feed *event.Feed
}

func (n *testNotifier) HubFeed() *event.Feed {
	return n.feed
}

func newTestStore(t *testing.T) (*Store, chan *feed.Event) {
	t.Helper()
	f := new(event.Feed)
	ch := make(chan *feed.Event, 64)
	sub := f.Subscribe(ch)
	t.Cleanup(sub.Unsubscribe)
	s := New(&Config{
		Notifier: &testNotifier{feed: f},
		Merger:   i18n.NewMerger("en"),
	})
	return s, ch
}

func drainEventTypes(ch chan *feed.Event) []feed.EventType {
	var types []feed.EventType
	for {
		select {
		case evt := <-ch:
			types = append(types, evt.Type)
		default:
			return types
		}
	}
}

func TestMissingPreconditions(t *testing.T) {
	s, ch := newTestStore(t)

	assert.Equal(t, []string{"database", "translations"}, s.MissingPreconditions())
	assert.False(t, s.IsReady())

	require.NoError(t, s.ProcessDatabase([]byte(databasePayload)))
	assert.Equal(t, []string{"translations"}, s.MissingPreconditions())
	assert.False(t, s.IsReady())

	s.ProcessTranslations(map[string]map[string]string{"en": {"Start": "Start"}}, "")
	assert.Empty(t, s.MissingPreconditions())
	assert.True(t, s.IsReady())

	types := drainEventTypes(ch)
	assert.Contains(t, types, feed.EventType(hub.DatabaseLoaded))
	assert.Contains(t, types, feed.EventType(hub.DatabaseReady))
	assert.Contains(t, types, feed.EventType(hub.TranslationsLoaded))
	assert.Contains(t, types, feed.EventType(hub.HubReady))

	// Ready fires only once.
	s.ProcessTranslations(map[string]map[string]string{"fr": {"Start": "Commencer"}}, "")
	assert.NotContains(t, drainEventTypes(ch), feed.EventType(hub.HubReady))
}

func TestProcessDatabase_BumpsAllPlatforms(t *testing.T) {
	s, ch := newTestStore(t)

	require.NoError(t, s.ProcessDatabase([]byte(databasePayload)))
	assert.Equal(t, uint64(1), s.Version("A"))
	assert.Equal(t, uint64(1), s.Version("B"))
	assert.Equal(t, uint64(1), s.ContentVersion("A"))

	require.NoError(t, s.ProcessDatabase([]byte(databasePayload)))
	assert.Equal(t, uint64(2), s.Version("A"))
	assert.Equal(t, uint64(2), s.Version("B"))

	db := s.Database()
	require.NotNil(t, db)
	assert.Equal(t, "Nordic Open", db.Competition.Name)
	assert.Len(t, db.Athletes, 2)
	assert.Equal(t, "Oslo AK", s.TeamName("1"))
	assert.Equal(t, "SR", s.AgeGroupFor("SR_M89"))

	drainEventTypes(ch)
}

func TestProcessDatabase_Idempotent(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.ProcessDatabase([]byte(databasePayload)))
	first := s.Database()
	require.NoError(t, s.ProcessDatabase([]byte(databasePayload)))
	second := s.Database()
	assert.Equal(t, first, second)
}

func TestProcessUpdate_AbsentKeysDoNotClear(t *testing.T) {
	s, ch := newTestStore(t)

	require.NoError(t, s.ProcessUpdate([]byte(updatePayload)))
	u := s.Snapshot("A")
	require.NotNil(t, u)
	assert.Len(t, u.SessionAthletes, 2)
	assert.Equal(t, "F1", u.SessionName)
	assert.Equal(t, uint64(1), s.Version("A"))

	// A pure uiEvent change must not clear athletes or ordering.
	require.NoError(t, s.ProcessUpdate([]byte(`{"fopName":"A","uiEvent":"StartLifting"}`)))
	u = s.Snapshot("A")
	assert.Len(t, u.SessionAthletes, 2)
	assert.Len(t, u.LiftingOrderKeys, 3)
	assert.Equal(t, "StartLifting", u.UIEvent)
	assert.Equal(t, uint64(2), s.Version("A"))
	assert.Equal(t, uint64(2), s.ContentVersion("A"))

	events := drainEventTypes(ch)
	assert.Equal(t, []feed.EventType{hub.UpdateReceived, hub.UpdateReceived}, events)
}

func TestProcessUpdate_ResolvesOrderReferences(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.ProcessUpdate([]byte(updatePayload)))
	u := s.Snapshot("A")

	// No explicit current/next in the payload: derived from lifting order.
	assert.Equal(t, competition.FlexString("11"), u.CurrentAthleteKey)
	assert.Equal(t, competition.FlexString("-3"), u.NextAthleteKey)
	assert.True(t, u.PreviousAthleteKey.IsZero())

	require.NotNil(t, s.SessionAthlete("A", "11"))
	require.NotNil(t, s.SessionAthlete("A", "-3"))
	assert.Nil(t, s.SessionAthlete("A", "99"))

	// Order flips: previous follows the old current.
	require.NoError(t, s.ProcessUpdate([]byte(`{"fopName":"A","liftingOrderKeys":[-3, 11]}`)))
	u = s.Snapshot("A")
	assert.Equal(t, competition.FlexString("-3"), u.CurrentAthleteKey)
	assert.Equal(t, competition.FlexString("11"), u.NextAthleteKey)
	assert.Equal(t, competition.FlexString("11"), u.PreviousAthleteKey)
}

func TestProcessTimer_MergesClockOnly(t *testing.T) {
	s, ch := newTestStore(t)

	require.NoError(t, s.ProcessUpdate([]byte(updatePayload)))
	version := s.Version("A")
	content := s.ContentVersion("A")
	drainEventTypes(ch)

	require.NoError(t, s.ProcessTimer([]byte(timerPayload)))

	u := s.Snapshot("A")
	assert.Equal(t, "running", u.AthleteTimer.State())
	assert.Equal(t, int64(60000), u.AthleteTimer.MillisRemaining)
	assert.Equal(t, int64(60000), u.AthleteTimer.Duration)
	// Ordering and athletes untouched.
	assert.Len(t, u.SessionAthletes, 2)
	assert.Len(t, u.LiftingOrderKeys, 3)

	assert.Equal(t, version+1, s.Version("A"))
	assert.Equal(t, content, s.ContentVersion("A"))

	events := drainEventTypes(ch)
	assert.Equal(t, []feed.EventType{hub.TimerReceived}, events)
}

func TestProcessTimer_CannotSmuggleOrderingChange(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.ProcessUpdate([]byte(updatePayload)))
	payload := `{"fopName":"A","athleteTimerEventType":"StopTime","sessionAthletes":[],"liftingOrderKeys":[]}`
	require.NoError(t, s.ProcessTimer([]byte(payload)))

	u := s.Snapshot("A")
	assert.Equal(t, "stopped", u.AthleteTimer.State())
	assert.Len(t, u.SessionAthletes, 2)
	assert.Len(t, u.LiftingOrderKeys, 3)
}

func TestProcessDecision(t *testing.T) {
	s, ch := newTestStore(t)

	require.NoError(t, s.ProcessUpdate([]byte(updatePayload)))
	content := s.ContentVersion("A")
	drainEventTypes(ch)

	require.NoError(t, s.ProcessDecision([]byte(decisionPayload)))

	u := s.Snapshot("A")
	assert.Equal(t, competition.DecisionFull, u.Decision.EventType)
	assert.True(t, u.Decision.Visible)
	assert.True(t, u.Decision.Down)
	require.NotNil(t, u.Decision.Votes[0])
	assert.True(t, *u.Decision.Votes[0])
	require.NotNil(t, u.Decision.Votes[2])
	assert.False(t, *u.Decision.Votes[2])
	assert.True(t, u.Decision.GoodLift())
	assert.Equal(t, content, s.ContentVersion("A"))

	events := drainEventTypes(ch)
	require.Len(t, events, 1)
	assert.Equal(t, feed.EventType(hub.DecisionReceived), events[0])
}

func TestSessionLifecycle_GroupDoneThenTimerReopens(t *testing.T) {
	s, ch := newTestStore(t)

	require.NoError(t, s.ProcessUpdate([]byte(updatePayload)))
	assert.Equal(t, competition.SessionActive, s.Lifecycle("A"))
	drainEventTypes(ch)

	require.NoError(t, s.ProcessUpdate([]byte(groupDonePayload)))
	assert.Equal(t, competition.SessionDone, s.Lifecycle("A"))

	events := drainEventTypes(ch)
	require.Len(t, events, 2)
	assert.Equal(t, feed.EventType(hub.SessionDone), events[0])
	assert.Equal(t, feed.EventType(hub.UpdateReceived), events[1])

	require.NoError(t, s.ProcessTimer([]byte(timerPayload)))
	assert.Equal(t, competition.SessionActive, s.Lifecycle("A"))

	events = drainEventTypes(ch)
	require.Len(t, events, 2)
	assert.Equal(t, feed.EventType(hub.TimerReceived), events[0])
	assert.Equal(t, feed.EventType(hub.SessionReopened), events[1])
}

func TestSessionLifecycle_UpdateWithoutUIEventReopens(t *testing.T) {
	s, ch := newTestStore(t)

	require.NoError(t, s.ProcessUpdate([]byte(groupDonePayload)))
	assert.Equal(t, competition.SessionDone, s.Lifecycle("A"))
	drainEventTypes(ch)

	// The merged state still holds GroupDone, but this frame does not
	// declare it, so the session resumes.
	require.NoError(t, s.ProcessUpdate([]byte(`{"fopName":"A","liftingOrderKeys":[11]}`)))
	assert.Equal(t, competition.SessionActive, s.Lifecycle("A"))

	events := drainEventTypes(ch)
	require.Len(t, events, 2)
	assert.Equal(t, feed.EventType(hub.SessionReopened), events[0])
	assert.Equal(t, feed.EventType(hub.UpdateReceived), events[1])
}

func TestPatchRoster(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.ProcessDatabase([]byte(databasePayload)))
	before := s.Database()
	assert.Equal(t, "", before.Athletes[0].Snatch1ActualLift)

	require.NoError(t, s.ProcessUpdate([]byte(updatePayload)))

	after := s.Database()
	a := after.Athletes[0]
	assert.Equal(t, competition.FlexString("11"), a.Key)
	assert.Equal(t, "80", a.Snatch1ActualLift)
	assert.Equal(t, "-85", a.Snatch2ActualLift)
	// Requests and empties are not patched back.
	assert.Equal(t, "", a.Snatch3ActualLift)
	assert.Equal(t, "", a.CleanJerk1ActualLift)
	assert.Equal(t, 1, a.SnatchRank)
	// Identity fields stay as delivered.
	assert.Equal(t, "Berg", a.LastName)
	assert.Equal(t, 63.4, a.BodyWeight)

	// Snapshots handed out before the update are immutable.
	assert.Equal(t, "", before.Athletes[0].Snatch1ActualLift)
}

func TestListFOPs_Union(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.ProcessDatabase([]byte(databasePayload)))
	require.NoError(t, s.ProcessUpdate([]byte(`{"fopName":"C","uiEvent":"StartLifting"}`)))

	assert.Equal(t, []string{"A", "B", "C"}, s.ListFOPs())
}

func TestRecords(t *testing.T) {
	s, _ := newTestStore(t)
	assert.Nil(t, s.Records())

	require.NoError(t, s.ProcessDatabase([]byte(databasePayload)))
	assert.Len(t, s.Records(), 2)

	fresh := s.NewRecords()
	require.Len(t, fresh, 1)
	assert.Equal(t, "F1", fresh[0].SessionTag)
	assert.Equal(t, competition.RecordSnatch, fresh[0].Kind)
}

func TestArchiveExtracted(t *testing.T) {
	s, ch := newTestStore(t)

	s.ArchiveExtracted("flags", 12)
	events := drainEventTypes(ch)
	require.Len(t, events, 1)
	assert.Equal(t, feed.EventType(hub.FlagsLoaded), events[0])

	s.ArchiveExtracted("bogus", 1)
	assert.Empty(t, drainEventTypes(ch))
}

func TestProcessUpdate_MalformedPayloads(t *testing.T) {
	s, _ := newTestStore(t)

	assert.Error(t, s.ProcessUpdate([]byte(`not json`)))
	assert.Error(t, s.ProcessUpdate([]byte(`{"uiEvent":"StartLifting"}`)))
	assert.Error(t, s.ProcessUpdate([]byte(`{"fopName":""}`)))
	assert.Equal(t, uint64(0), s.Version("A"))
}

func TestAccessorsBeforeReady(t *testing.T) {
	s, _ := newTestStore(t)

	assert.Nil(t, s.Snapshot("A"))
	assert.Nil(t, s.Database())
	assert.Nil(t, s.Competition())
	assert.Nil(t, s.AthleteByKey("11"))
	assert.Equal(t, uint64(0), s.Version("A"))
	assert.Empty(t, s.ListFOPs())
	assert.Equal(t, "7", s.TeamName("7"))
}
