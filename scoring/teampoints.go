package scoring

import (
	"sort"
)

// TeamPointsConfig maps category ranks onto team points. From fourth place on
// the award is Third minus one per additional place, floored at zero.
type TeamPointsConfig struct {
	First  int
	Second int
	Third  int
	// TopN keeps only each team's N best-ranked athletes. Zero means all
	// athletes count.
	TopN int
}

// DefaultTeamPoints is the customary 28/25/23 scale.
var DefaultTeamPoints = TeamPointsConfig{First: 28, Second: 25, Third: 23}

// PointsForRank returns the points one rank is worth. Unranked athletes
// (rank <= 0) score nothing.
func PointsForRank(rank int, cfg TeamPointsConfig) int {
	switch {
	case rank <= 0:
		return 0
	case rank == 1:
		return cfg.First
	case rank == 2:
		return cfg.Second
	}
	p := cfg.Third - (rank - 3)
	if p < 0 {
		return 0
	}
	return p
}

// RankedLift is one athlete's rank contribution to their team.
type RankedLift struct {
	Team string
	Rank int
}

// TeamResult is one team's accumulated score. PlaceCounts[i] is the number of
// athletes the team placed at rank i+1, kept for tiebreaks.
type TeamResult struct {
	Team        string
	Points      int
	PlaceCounts [5]int
}

// ScoreTeams allocates points per entry, truncates to each team's TopN best
// ranks when configured, and returns results sorted best first. Teams on
// equal points are ordered by most first places, then second, through fifth.
func ScoreTeams(entries []RankedLift, cfg TeamPointsConfig) []TeamResult {
	byTeam := make(map[string][]int)
	for _, e := range entries {
		if e.Team == "" {
			continue
		}
		byTeam[e.Team] = append(byTeam[e.Team], e.Rank)
	}

	results := make([]TeamResult, 0, len(byTeam))
	for team, ranks := range byTeam {
		sort.Ints(ranks)
		counted := ranks
		if cfg.TopN > 0 && len(counted) > cfg.TopN {
			// Unranked entries sort first as non-positive; push them out of
			// the counted window before truncating.
			firstRanked := sort.SearchInts(counted, 1)
			end := firstRanked + cfg.TopN
			if end > len(counted) {
				end = len(counted)
			}
			counted = counted[firstRanked:end]
		}
		r := TeamResult{Team: team}
		for _, rank := range counted {
			r.Points += PointsForRank(rank, cfg)
			if rank >= 1 && rank <= len(r.PlaceCounts) {
				r.PlaceCounts[rank-1]++
			}
		}
		results = append(results, r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		for p := 0; p < len(a.PlaceCounts); p++ {
			if a.PlaceCounts[p] != b.PlaceCounts[p] {
				return a.PlaceCounts[p] > b.PlaceCounts[p]
			}
		}
		return a.Team < b.Team
	})
	return results
}
