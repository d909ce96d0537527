package scoreboards

import (
	"context"
	"sort"
	"strconv"

	"github.com/openlifting/liftcast/competition"
	"github.com/openlifting/liftcast/relay/projection"
)

// ScoreboardView is the main session scoreboard: every athlete in the
// session with attempts, bests, total and ranks.
type ScoreboardView struct {
	FOP             string               `json:"fop"`
	CompetitionName string               `json:"competitionName,omitempty"`
	SessionName     string               `json:"groupName,omitempty"`
	SessionInfo     string               `json:"groupInfo,omitempty"`
	LiftsDone       string               `json:"liftsDone,omitempty"`
	Rows            []Row                `json:"rows"`
	Records         []competition.Record `json:"records,omitempty"`
	Labels          map[string]string    `json:"labels,omitempty"`
}

func scoreboardProjection() *projection.Projection {
	return &projection.Projection{
		Name:        "scoreboard",
		Description: "Full session scoreboard with attempts, bests and ranks.",
		Schema: projection.Schema{
			{
				Key:     "sortBy",
				Label:   "Row ordering",
				Type:    projection.OptionEnum,
				Enum:    []string{"start", "total"},
				Default: "start",
			},
			{
				Key:     "showRecords",
				Label:   "Attach the records table",
				Type:    projection.OptionBoolean,
				Default: false,
			},
		},
		Compute: computeScoreboard,
	}
}

func computeScoreboard(_ context.Context, req *projection.Request) (interface{}, error) {
	view := &ScoreboardView{
		FOP:  req.FOP,
		Rows: []Row{},
		Labels: labels(req, map[string]string{
			"Name":      "Name",
			"Team":      "Team",
			"Category":  "Category",
			"Snatch":    "Snatch",
			"CleanJerk": "Clean & Jerk",
			"Total":     "Total",
			"Rank":      "Rank",
		}),
	}
	snap := req.Reader.Snapshot(req.FOP)
	if snap == nil {
		return view, nil
	}
	view.CompetitionName = snap.CompetitionName
	view.SessionName = snap.SessionName
	view.SessionInfo = snap.SessionInfo
	view.LiftsDone = snap.LiftsDone

	switch req.Options.Str("sortBy") {
	case "total":
		// Re-sorting by result crosses category boundaries, so spacers
		// are dropped rather than scattered.
		athletes := make([]competition.SessionAthlete, len(snap.SessionAthletes))
		copy(athletes, snap.SessionAthletes)
		sort.SliceStable(athletes, func(i, j int) bool {
			return totalOf(&athletes[i]) > totalOf(&athletes[j])
		})
		for i := range athletes {
			sa := athletes[i]
			decorate(req, &sa)
			view.Rows = append(view.Rows, Row{Athlete: &sa})
		}
	default:
		for _, e := range snap.StartOrderKeys {
			if e.Spacer {
				view.Rows = append(view.Rows, Row{Spacer: true, Title: e.Title})
				continue
			}
			sa := athleteRow(req, e.Key)
			if sa == nil {
				continue
			}
			decorate(req, sa)
			view.Rows = append(view.Rows, Row{Athlete: sa})
		}
		// Sessions whose start order never arrived still render rows.
		if len(snap.StartOrderKeys) == 0 {
			for i := range snap.SessionAthletes {
				sa := snap.SessionAthletes[i]
				decorate(req, &sa)
				view.Rows = append(view.Rows, Row{Athlete: &sa})
			}
		}
	}

	if req.Options.Bool("showRecords") {
		view.Records = req.Reader.Records()
	}
	return view, nil
}

// totalOf parses the display total for sorting. Athletes without a total
// sort last.
func totalOf(sa *competition.SessionAthlete) float64 {
	v, err := strconv.ParseFloat(sa.Total, 64)
	if err != nil {
		return -1
	}
	return v
}
