package scoreboards

import (
	"context"
	"sort"

	"github.com/openlifting/liftcast/competition"
	"github.com/openlifting/liftcast/relay/projection"
)

// MedalsView lists the podium of every category that has placed athletes,
// for the ceremony and results displays.
type MedalsView struct {
	CompetitionName string            `json:"competitionName,omitempty"`
	Ranking         string            `json:"ranking"`
	Categories      []CategoryPodium  `json:"categories"`
	Labels          map[string]string `json:"labels,omitempty"`
}

// CategoryPodium is one category block with its medalists best first.
type CategoryPodium struct {
	Category  string     `json:"category"`
	AgeGroup  string     `json:"ageGroup,omitempty"`
	Medalists []Medalist `json:"medalists"`
}

// Medalist is one podium row.
type Medalist struct {
	Rank    int                         `json:"rank"`
	Athlete *competition.SessionAthlete `json:"athlete"`
}

func medalsProjection() *projection.Projection {
	return &projection.Projection{
		Name:        "medals",
		Description: "Per-category podium for ceremony and results displays.",
		Schema: projection.Schema{
			{
				Key:     "ranking",
				Label:   "Which rank decides the podium",
				Type:    projection.OptionEnum,
				Enum:    []string{"total", "snatch", "cleanJerk"},
				Default: "total",
			},
			{
				Key:     "places",
				Label:   "Podium depth per category",
				Type:    projection.OptionNumber,
				Default: float64(3),
				Min:     f(1),
				Max:     f(10),
			},
		},
		Compute: computeMedals,
	}
}

func computeMedals(_ context.Context, req *projection.Request) (interface{}, error) {
	ranking := req.Options.Str("ranking")
	places := int(req.Options.Num("places"))
	view := &MedalsView{
		Ranking:    ranking,
		Categories: []CategoryPodium{},
		Labels: labels(req, map[string]string{
			"Category": "Category",
			"Rank":     "Rank",
			"Name":     "Name",
			"Total":    "Total",
		}),
	}
	db := req.Reader.Database()
	if db == nil {
		return view, nil
	}
	view.CompetitionName = db.Competition.Name

	for _, g := range db.AthletesByCategory() {
		podium := CategoryPodium{Category: g.Category, AgeGroup: g.AgeGroup, Medalists: []Medalist{}}
		for _, a := range g.Athletes {
			ranks := a.RanksIn(g.Category)
			rank := ranks.TotalRank
			switch ranking {
			case "snatch":
				rank = ranks.SnatchRank
			case "cleanJerk":
				rank = ranks.CleanJerkRank
			}
			if rank < 1 || rank > places {
				continue
			}
			sa := competition.ProjectSessionAthlete(a, req.Reader.TeamName(a.Team))
			decorate(req, &sa)
			podium.Medalists = append(podium.Medalists, Medalist{Rank: rank, Athlete: &sa})
		}
		if len(podium.Medalists) == 0 {
			continue
		}
		sort.SliceStable(podium.Medalists, func(i, j int) bool {
			return podium.Medalists[i].Rank < podium.Medalists[j].Rank
		})
		view.Categories = append(view.Categories, podium)
	}
	return view, nil
}
