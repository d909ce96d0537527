package projection

import (
	"github.com/openlifting/liftcast/competition"
)

// TimerView is the clock substate attached to every query result.
type TimerView struct {
	State         string `json:"state"`
	TimeRemaining int64  `json:"timeRemaining"`
	Duration      int64  `json:"duration,omitempty"`
}

func timerView(t competition.TimerState) *TimerView {
	if t.EventType == "" {
		return nil
	}
	return &TimerView{
		State:         t.State(),
		TimeRemaining: t.MillisRemaining,
		Duration:      t.Duration,
	}
}

// DecisionView is the referee substate attached to every query result.
type DecisionView struct {
	EventType string   `json:"eventType"`
	Votes     [3]*bool `json:"votes"`
	Visible   bool     `json:"visible"`
	Down      bool     `json:"down"`
	GoodLift  *bool    `json:"goodLift,omitempty"`
}

func decisionView(d competition.DecisionState) *DecisionView {
	if d.EventType == "" && !d.Visible && !d.Down {
		return nil
	}
	v := &DecisionView{
		EventType: string(d.EventType),
		Votes:     d.Votes,
		Visible:   d.Visible,
		Down:      d.Down,
	}
	if d.EventType == competition.DecisionFull {
		good := d.GoodLift()
		v.GoodLift = &good
	}
	return v
}
