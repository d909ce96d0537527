package competition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFOPUpdate_Update(t *testing.T) {
	payload := `{
		"fopName": "A",
		"competitionName": "Nordic Open",
		"groupName": "M1",
		"fopState": "CURRENT_ATHLETE_DISPLAYED",
		"uiEvent": "LiftingOrderUpdated",
		"currentAthleteKey": 11,
		"nextAthleteKey": "-3",
		"sessionAthletes": [
			{"key": 11, "fullName": "BERG, Anna", "teamName": "Oslo AK",
			 "category": "SR_F64", "startNumber": 1, "lotNumber": 4,
			 "snatchAttempts": [
				{"status": "good", "displayValue": "80", "highlightClass": "good-lift"},
				{"status": "request", "displayValue": "84"},
				{"status": "empty", "displayValue": ""}
			 ],
			 "cleanJerkAttempts": [
				{"status": "empty", "displayValue": ""},
				{"status": "empty", "displayValue": ""},
				{"status": "empty", "displayValue": ""}
			 ],
			 "bestSnatch": "80", "bestCleanJerk": "", "total": "",
			 "classname": "current"}
		],
		"liftingOrderKeys": [11, {"isSpacer": true}, "-3"]
	}`
	u, err := DecodeFOPUpdate([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, "A", u.FOPName)
	assert.Equal(t, "M1", u.SessionName)
	assert.Equal(t, FlexString("11"), u.CurrentAthleteKey)
	assert.Equal(t, FlexString("-3"), u.NextAthleteKey)
	require.Len(t, u.SessionAthletes, 1)
	assert.Equal(t, "current", u.SessionAthletes[0].Classname)
	assert.Equal(t, "good-lift", u.SessionAthletes[0].SnatchAttempts[0].HighlightClass)
	assert.Equal(t, []FlexString{"11", "-3"}, Keys(u.LiftingOrderKeys))

	found := u.SessionAthlete("11")
	require.NotNil(t, found)
	assert.Equal(t, "BERG, Anna", found.FullName)
	assert.Nil(t, u.SessionAthlete("99"))
}

func TestDecodeFOPUpdate_Timer(t *testing.T) {
	payload := `{"fopName":"A","athleteTimerEventType":"StartTime","athleteMillisRemaining":60000,"timeAllowed":60000}`
	u, err := DecodeFOPUpdate([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, TimerStart, u.AthleteTimer.EventType)
	assert.Equal(t, "running", u.AthleteTimer.State())
	assert.Equal(t, int64(60000), u.AthleteTimer.MillisRemaining)
	assert.Equal(t, int64(60000), u.AthleteTimer.Duration)
	assert.Equal(t, "", u.BreakTimer.State())
}

func TestDecodeFOPUpdate_Decision(t *testing.T) {
	payload := `{"fopName":"A","decisionEventType":"FullDecision","refereeVotes":[true,false,true],"decisionsVisible":true,"down":true}`
	u, err := DecodeFOPUpdate([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, DecisionFull, u.Decision.EventType)
	assert.True(t, u.Decision.Visible)
	assert.True(t, u.Decision.Down)
	assert.True(t, u.Decision.GoodLift())
	require.NotNil(t, u.Decision.Votes[1])
	assert.False(t, *u.Decision.Votes[1])
}

func TestDecisionState_GoodLift(t *testing.T) {
	yes, no := true, false
	assert.True(t, DecisionState{Votes: [3]*bool{&yes, &yes, nil}}.GoodLift())
	assert.False(t, DecisionState{Votes: [3]*bool{&yes, &no, nil}}.GoodLift())
	assert.False(t, DecisionState{Votes: [3]*bool{nil, nil, nil}}.GoodLift())
	assert.False(t, DecisionState{Votes: [3]*bool{&yes, &no, &no}}.GoodLift())
}

func TestTimerState_State(t *testing.T) {
	assert.Equal(t, "running", TimerState{EventType: TimerStart}.State())
	assert.Equal(t, "stopped", TimerState{EventType: TimerStop}.State())
	assert.Equal(t, "set", TimerState{EventType: TimerSet}.State())
	assert.Equal(t, "", TimerState{}.State())
}

func TestSessionLifecycle_String(t *testing.T) {
	assert.Equal(t, "ACTIVE", SessionActive.String())
	assert.Equal(t, "DONE", SessionDone.String())
}
