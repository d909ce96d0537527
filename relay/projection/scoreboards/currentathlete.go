package scoreboards

import (
	"context"

	"github.com/openlifting/liftcast/competition"
	"github.com/openlifting/liftcast/relay/projection"
)

// CurrentAthleteView is the single-athlete attempt card shown between
// attempts: the lifter on the platform and the weight loaded on the bar.
// Officials are the session's technical officials in protocol order, for the
// announcer variant of the card.
type CurrentAthleteView struct {
	FOP             string                      `json:"fop"`
	SessionName     string                      `json:"groupName,omitempty"`
	Athlete         *competition.SessionAthlete `json:"athlete,omitempty"`
	AttemptNumber   int                         `json:"attemptNumber,omitempty"`
	RequestedWeight string                      `json:"requestedWeight,omitempty"`
	Officials       []competition.Official      `json:"officials,omitempty"`
	Labels          map[string]string           `json:"labels,omitempty"`
}

func currentAthleteProjection() *projection.Projection {
	return &projection.Projection{
		Name:        "current-athlete",
		Description: "The athlete called to the platform with the requested weight.",
		Compute:     computeCurrentAthlete,
	}
}

func computeCurrentAthlete(_ context.Context, req *projection.Request) (interface{}, error) {
	view := &CurrentAthleteView{
		FOP: req.FOP,
		Labels: labels(req, map[string]string{
			"Attempt": "Attempt",
			"Weight":  "Weight",
		}),
	}
	snap := req.Reader.Snapshot(req.FOP)
	if snap == nil {
		return view, nil
	}
	view.SessionName = snap.SessionName
	if db := req.Reader.Database(); db != nil {
		if s := db.SessionNamed(snap.SessionName); s != nil {
			view.Officials = competition.SortOfficials(s.Officials)
		}
	}

	sa := athleteRow(req, snap.CurrentAthleteKey)
	if sa == nil {
		return view, nil
	}
	decorate(req, sa)
	view.Athlete = sa
	view.AttemptNumber, view.RequestedWeight = currentAttempt(sa)
	return view, nil
}

// currentAttempt finds the slot the athlete is lifting next: the first cell
// without a recorded result. The weight is empty when the slot has no
// declaration yet.
func currentAttempt(sa *competition.SessionAthlete) (int, string) {
	cells := make([]competition.Attempt, 0, competition.NumAttempts)
	cells = append(cells, sa.SnatchAttempts...)
	cells = append(cells, sa.CleanJerkAttempts...)
	for i, c := range cells {
		if c.Status == competition.AttemptGood || c.Status == competition.AttemptFail {
			continue
		}
		if c.Status == competition.AttemptRequest {
			return i + 1, c.DisplayValue
		}
		return i + 1, ""
	}
	return 0, ""
}
