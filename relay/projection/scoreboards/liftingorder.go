package scoreboards

import (
	"context"

	"github.com/openlifting/liftcast/relay/projection"
)

// LiftingOrderView is the attempt-board view: who lifts now, who is next,
// and the order the remaining attempts will be called in.
type LiftingOrderView struct {
	FOP         string            `json:"fop"`
	SessionName string            `json:"groupName,omitempty"`
	SessionInfo string            `json:"groupInfo,omitempty"`
	LiftsDone   string            `json:"liftsDone,omitempty"`
	Current     *Row              `json:"current,omitempty"`
	Next        *Row              `json:"next,omitempty"`
	Order       []Row             `json:"order"`
	Labels      map[string]string `json:"labels,omitempty"`
}

func liftingOrderProjection() *projection.Projection {
	return &projection.Projection{
		Name:        "lifting-order",
		Description: "Upcoming attempts in calling order with the current and next athlete.",
		Schema: projection.Schema{
			{
				Key:     "topN",
				Label:   "Limit to the first N athletes",
				Type:    projection.OptionNumber,
				Default: float64(0),
				Min:     f(0),
				Max:     f(100),
			},
			{
				Key:     "showSpacers",
				Label:   "Keep category boundary rows",
				Type:    projection.OptionBoolean,
				Default: true,
			},
		},
		Compute: computeLiftingOrder,
	}
}

func computeLiftingOrder(_ context.Context, req *projection.Request) (interface{}, error) {
	view := &LiftingOrderView{
		FOP:   req.FOP,
		Order: []Row{},
		Labels: labels(req, map[string]string{
			"Name":    "Name",
			"Team":    "Team",
			"Attempt": "Attempt",
			"Weight":  "Weight",
		}),
	}
	snap := req.Reader.Snapshot(req.FOP)
	if snap == nil {
		return view, nil
	}
	view.SessionName = snap.SessionName
	view.SessionInfo = snap.SessionInfo
	view.LiftsDone = snap.LiftsDone

	if sa := athleteRow(req, snap.CurrentAthleteKey); sa != nil {
		decorate(req, sa)
		view.Current = &Row{Athlete: sa}
	}
	if sa := athleteRow(req, snap.NextAthleteKey); sa != nil {
		decorate(req, sa)
		view.Next = &Row{Athlete: sa}
	}

	topN := int(req.Options.Num("topN"))
	showSpacers := req.Options.Bool("showSpacers")
	athletes := 0
	for _, e := range snap.LiftingOrderKeys {
		if e.Spacer {
			if showSpacers {
				view.Order = append(view.Order, Row{Spacer: true, Title: e.Title})
			}
			continue
		}
		if topN > 0 && athletes >= topN {
			break
		}
		sa := athleteRow(req, e.Key)
		if sa == nil {
			continue
		}
		decorate(req, sa)
		view.Order = append(view.Order, Row{Athlete: sa})
		athletes++
	}
	return view, nil
}
