package competition

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// AttemptStatus is the display state of one attempt cell.
type AttemptStatus string

const (
	AttemptEmpty   AttemptStatus = "empty"
	AttemptRequest AttemptStatus = "request"
	AttemptGood    AttemptStatus = "good"
	AttemptFail    AttemptStatus = "fail"
)

// Attempt is one display-ready attempt cell.
type Attempt struct {
	Status         AttemptStatus `json:"status"`
	DisplayValue   string        `json:"displayValue"`
	HighlightClass string        `json:"highlightClass,omitempty"`
}

// SessionAthlete is the display-ready projection of an athlete within the
// running session, computed upstream. Highlight classes and the row-level
// classname come exclusively from the competition software: the relay never
// invents them.
type SessionAthlete struct {
	Key               FlexString `json:"key"`
	FullName          string     `json:"fullName"`
	TeamName          string     `json:"teamName"`
	FlagURL           string     `json:"flagURL,omitempty"`
	Gender            string     `json:"gender,omitempty"`
	Category          string     `json:"category"`
	StartNumber       int        `json:"startNumber"`
	LotNumber         FlexString `json:"lotNumber"`
	SnatchAttempts    []Attempt  `json:"snatchAttempts"`
	CleanJerkAttempts []Attempt  `json:"cleanJerkAttempts"`
	BestSnatch        string     `json:"bestSnatch"`
	BestCleanJerk     string     `json:"bestCleanJerk"`
	Total             string     `json:"total"`
	Sinclair          string     `json:"sinclair,omitempty"`
	SnatchRank        string     `json:"snatchRank,omitempty"`
	CleanJerkRank     string     `json:"cleanJerkRank,omitempty"`
	TotalRank         string     `json:"totalRank,omitempty"`
	SinclairRank      string     `json:"sinclairRank,omitempty"`
	Classname         string     `json:"classname,omitempty"`
}

// TimerEventType is the last command applied to a clock.
type TimerEventType string

const (
	TimerStart TimerEventType = "StartTime"
	TimerStop  TimerEventType = "StopTime"
	TimerSet   TimerEventType = "SetTime"
)

// TimerState is the substate of the athlete or break clock.
type TimerState struct {
	EventType       TimerEventType `json:"eventType,omitempty"`
	MillisRemaining int64          `json:"millisRemaining"`
	StartMillis     int64          `json:"startMillis,omitempty"`
	Duration        int64          `json:"duration"`
}

// State maps the last timer command onto the display tag scoreboards render.
func (t TimerState) State() string {
	switch t.EventType {
	case TimerStart:
		return "running"
	case TimerStop:
		return "stopped"
	case TimerSet:
		return "set"
	}
	return ""
}

// DecisionEventType is the kind of referee decision event.
type DecisionEventType string

const (
	DecisionFull  DecisionEventType = "FullDecision"
	DecisionReset DecisionEventType = "Reset"
	DecisionDown  DecisionEventType = "DownSignal"
)

// DecisionState is the referee decision substate. Votes are in referee order;
// nil means the referee has not voted.
type DecisionState struct {
	EventType DecisionEventType `json:"eventType,omitempty"`
	Votes     [3]*bool          `json:"refereeVotes"`
	Visible   bool              `json:"visible"`
	Down      bool              `json:"down"`
}

// GoodLift reports whether a majority of entered votes is white.
func (d DecisionState) GoodLift() bool {
	white := 0
	for _, v := range d.Votes {
		if v != nil && *v {
			white++
		}
	}
	return white >= 2
}

// UI events and break types with protocol meaning.
const (
	UIEventGroupDone     = "GroupDone"
	BreakTypeGroupDone   = "GROUP_DONE"
	UIEventLiftingOrder  = "LiftingOrderUpdated"
	UIEventStartLifting  = "StartLifting"
	UIEventSwitchGroup   = "SwitchGroup"
	UIEventCeremony      = "CeremonyStarted"
	UIEventBreakStarted  = "BreakStarted"
	UIEventBreakDone     = "BreakDone"
	UIEventDecisionReset = "DecisionReset"
)

// SessionLifecycle is the per-platform session machine state.
type SessionLifecycle int

const (
	// SessionActive is the normal lifting state.
	SessionActive SessionLifecycle = iota
	// SessionDone is entered when the session has been declared over.
	SessionDone
)

func (s SessionLifecycle) String() string {
	if s == SessionDone {
		return "DONE"
	}
	return "ACTIVE"
}

// FOPUpdate is the merged per-platform state: the latest value of every field
// any update, timer or decision frame has carried for this platform.
type FOPUpdate struct {
	FOPName            string           `json:"fopName"`
	CompetitionName    string           `json:"competitionName,omitempty"`
	SessionName        string           `json:"groupName,omitempty"`
	SessionInfo        string           `json:"groupInfo,omitempty"`
	FOPState           string           `json:"fopState,omitempty"`
	BreakType          string           `json:"breakType,omitempty"`
	UIEvent            string           `json:"uiEvent,omitempty"`
	LiftsDone          string           `json:"liftsDone,omitempty"`
	CurrentAthleteKey  FlexString       `json:"currentAthleteKey,omitempty"`
	NextAthleteKey     FlexString       `json:"nextAthleteKey,omitempty"`
	PreviousAthleteKey FlexString       `json:"previousAthleteKey,omitempty"`
	SessionAthletes    []SessionAthlete `json:"sessionAthletes,omitempty"`
	StartOrderKeys     []OrderEntry     `json:"startOrderKeys,omitempty"`
	LiftingOrderKeys   []OrderEntry     `json:"liftingOrderKeys,omitempty"`

	AthleteTimer TimerState    `json:"-"`
	BreakTimer   TimerState    `json:"-"`
	Decision     DecisionState `json:"-"`
}

// SessionAthlete returns the display record for a key, or nil when the key is
// not part of the running session.
func (u *FOPUpdate) SessionAthlete(key FlexString) *SessionAthlete {
	for i := range u.SessionAthletes {
		if u.SessionAthletes[i].Key == key {
			return &u.SessionAthletes[i]
		}
	}
	return nil
}

// fopWire is the flat on-wire form shared by update, timer and decision
// payloads. Timer and decision fields arrive as flat keys, not nested
// objects, so that a timer-only frame can carry just its own keys.
type fopWire struct {
	FOPName            string           `json:"fopName"`
	CompetitionName    string           `json:"competitionName"`
	GroupName          string           `json:"groupName"`
	SessionName        string           `json:"sessionName"`
	GroupInfo          string           `json:"groupInfo"`
	FOPState           string           `json:"fopState"`
	BreakType          string           `json:"breakType"`
	UIEvent            string           `json:"uiEvent"`
	LiftsDone          string           `json:"liftsDone"`
	CurrentAthleteKey  FlexString       `json:"currentAthleteKey"`
	NextAthleteKey     FlexString       `json:"nextAthleteKey"`
	PreviousAthleteKey FlexString       `json:"previousAthleteKey"`
	SessionAthletes    []SessionAthlete `json:"sessionAthletes"`
	StartOrderKeys     []OrderEntry     `json:"startOrderKeys"`
	LiftingOrderKeys   []OrderEntry     `json:"liftingOrderKeys"`

	AthleteTimerEventType  string `json:"athleteTimerEventType"`
	AthleteMillisRemaining int64  `json:"athleteMillisRemaining"`
	AthleteStartMillis     int64  `json:"athleteStartMillis"`
	TimeAllowed            int64  `json:"timeAllowed"`

	BreakTimerEventType  string `json:"breakTimerEventType"`
	BreakMillisRemaining int64  `json:"breakMillisRemaining"`
	BreakStartMillis     int64  `json:"breakStartMillis"`
	BreakTimeAllowed     int64  `json:"breakTimeAllowed"`

	DecisionEventType string  `json:"decisionEventType"`
	RefereeVotes      []*bool `json:"refereeVotes"`
	DecisionsVisible  bool    `json:"decisionsVisible"`
	Down              bool    `json:"down"`
}

// DecodeFOPUpdate materializes a merged per-platform payload into a typed
// snapshot.
func DecodeFOPUpdate(payload []byte) (*FOPUpdate, error) {
	var w fopWire
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, errors.Wrap(err, "could not decode platform payload")
	}
	sessionName := w.GroupName
	if sessionName == "" {
		sessionName = w.SessionName
	}
	u := &FOPUpdate{
		FOPName:            w.FOPName,
		CompetitionName:    w.CompetitionName,
		SessionName:        sessionName,
		SessionInfo:        w.GroupInfo,
		FOPState:           w.FOPState,
		BreakType:          w.BreakType,
		UIEvent:            w.UIEvent,
		LiftsDone:          w.LiftsDone,
		CurrentAthleteKey:  w.CurrentAthleteKey,
		NextAthleteKey:     w.NextAthleteKey,
		PreviousAthleteKey: w.PreviousAthleteKey,
		SessionAthletes:    w.SessionAthletes,
		StartOrderKeys:     w.StartOrderKeys,
		LiftingOrderKeys:   w.LiftingOrderKeys,
		AthleteTimer: TimerState{
			EventType:       TimerEventType(w.AthleteTimerEventType),
			MillisRemaining: w.AthleteMillisRemaining,
			StartMillis:     w.AthleteStartMillis,
			Duration:        w.TimeAllowed,
		},
		BreakTimer: TimerState{
			EventType:       TimerEventType(w.BreakTimerEventType),
			MillisRemaining: w.BreakMillisRemaining,
			StartMillis:     w.BreakStartMillis,
			Duration:        w.BreakTimeAllowed,
		},
		Decision: DecisionState{
			EventType: DecisionEventType(w.DecisionEventType),
			Visible:   w.DecisionsVisible,
			Down:      w.Down,
		},
	}
	for i := 0; i < len(w.RefereeVotes) && i < 3; i++ {
		u.Decision.Votes[i] = w.RefereeVotes[i]
	}
	return u, nil
}
