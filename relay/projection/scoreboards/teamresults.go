package scoreboards

import (
	"context"

	"github.com/openlifting/liftcast/relay/projection"
	"github.com/openlifting/liftcast/scoring"
)

// TeamResultsView ranks teams by accumulated points over their athletes'
// category placings.
type TeamResultsView struct {
	CompetitionName string            `json:"competitionName,omitempty"`
	Ranking         string            `json:"ranking"`
	Teams           []TeamRow         `json:"teams"`
	Labels          map[string]string `json:"labels,omitempty"`
}

// TeamRow is one team's standing.
type TeamRow struct {
	Rank   int    `json:"rank"`
	Team   string `json:"team"`
	Flag   string `json:"flagURL,omitempty"`
	Points int    `json:"points"`
}

func teamResultsProjection() *projection.Projection {
	return &projection.Projection{
		Name:        "team-results",
		Description: "Team standings scored over athlete category ranks.",
		Schema: projection.Schema{
			{
				Key:     "ranking",
				Label:   "Which rank each athlete contributes",
				Type:    projection.OptionEnum,
				Enum:    []string{"total", "snatch", "cleanJerk"},
				Default: "total",
			},
			{
				Key:     "topN",
				Label:   "Count only each team's N best athletes",
				Type:    projection.OptionNumber,
				Default: float64(0),
				Min:     f(0),
				Max:     f(50),
			},
		},
		Compute: computeTeamResults,
	}
}

func computeTeamResults(_ context.Context, req *projection.Request) (interface{}, error) {
	ranking := req.Options.Str("ranking")
	view := &TeamResultsView{
		Ranking: ranking,
		Teams:   []TeamRow{},
		Labels: labels(req, map[string]string{
			"Team":   "Team",
			"Points": "Points",
			"Rank":   "Rank",
		}),
	}
	db := req.Reader.Database()
	if db == nil {
		return view, nil
	}
	view.CompetitionName = db.Competition.Name

	entries := make([]scoring.RankedLift, 0, len(db.Athletes))
	for _, g := range db.AthletesByTeam() {
		for _, a := range g.Athletes {
			rank := a.TotalRank
			switch ranking {
			case "snatch":
				rank = a.SnatchRank
			case "cleanJerk":
				rank = a.CleanJerkRank
			}
			entries = append(entries, scoring.RankedLift{Team: g.Team, Rank: rank})
		}
	}

	cfg := scoring.DefaultTeamPoints
	cfg.TopN = int(req.Options.Num("topN"))
	for i, r := range scoring.ScoreTeams(entries, cfg) {
		row := TeamRow{Rank: i + 1, Team: r.Team, Points: r.Points}
		if req.Assets != nil {
			row.Flag = req.Assets.FlagURL(r.Team)
		}
		view.Teams = append(view.Teams, row)
	}
	return view, nil
}
