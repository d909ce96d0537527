package competition

// TeamGroup is one team's athletes, in roster order.
type TeamGroup struct {
	Team     string
	Athletes []*Athlete
}

// AthletesByTeam buckets the roster by resolved team name. Teams appear in
// first-appearance order and athletes keep roster order within each team.
func (d *Database) AthletesByTeam() []TeamGroup {
	index := make(map[string]int, len(d.Teams))
	groups := make([]TeamGroup, 0, len(d.Teams))
	for i := range d.Athletes {
		a := &d.Athletes[i]
		name := d.TeamName(a.Team)
		at, ok := index[name]
		if !ok {
			at = len(groups)
			index[name] = at
			groups = append(groups, TeamGroup{Team: name})
		}
		groups[at].Athletes = append(groups[at].Athletes, a)
	}
	return groups
}

// CategoryGroup is one category's athletes, in roster order.
type CategoryGroup struct {
	Category string
	AgeGroup string
	Athletes []*Athlete
}

// AthletesByCategory buckets the roster by category code. Categories appear
// in first-appearance order and carry their owning age group code.
func (d *Database) AthletesByCategory() []CategoryGroup {
	index := make(map[string]int)
	groups := make([]CategoryGroup, 0)
	for i := range d.Athletes {
		a := &d.Athletes[i]
		at, ok := index[a.Category]
		if !ok {
			at = len(groups)
			index[a.Category] = at
			groups = append(groups, CategoryGroup{
				Category: a.Category,
				AgeGroup: d.AgeGroupFor(a.Category),
			})
		}
		groups[at].Athletes = append(groups[at].Athletes, a)
	}
	return groups
}

// RanksIn returns the athlete's ranks within one category, preferring the
// participation entry over the flat session ranks. A combined-session athlete
// places independently in each category they participate in.
func (a *Athlete) RanksIn(category string) Participation {
	for _, p := range a.Participations {
		if p.Category == category {
			return p
		}
	}
	return Participation{
		Category:      category,
		SnatchRank:    a.SnatchRank,
		CleanJerkRank: a.CleanJerkRank,
		TotalRank:     a.TotalRank,
	}
}
