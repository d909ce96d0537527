package competition

import (
	"strconv"
	"strings"
)

// parseWeight parses an attempt field. The second return is false for empty
// strings, zero values and anything that does not parse: all of these mean
// "no weight here".
func parseWeight(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f == 0 {
		return 0, false
	}
	return f, true
}

func parseYear(s string) int {
	y, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return y
}

func formatWeight(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Project turns one raw request chain into a display cell. A recorded lift
// wins over any pending request; the request shown is the most recent
// declaration in the chain change2, change1, declaration, automatic
// progression. "0" and "-0" actual lifts mean the slot was never attempted.
func (r RawAttempt) Project() Attempt {
	if v, ok := parseWeight(r.ActualLift); ok {
		if v < 0 {
			return Attempt{Status: AttemptFail, DisplayValue: "(" + formatWeight(-v) + ")"}
		}
		return Attempt{Status: AttemptGood, DisplayValue: formatWeight(v)}
	}
	for _, req := range []string{r.Change2, r.Change1, r.Declaration, r.AutomaticProgression} {
		if w, ok := parseWeight(req); ok {
			return Attempt{Status: AttemptRequest, DisplayValue: formatWeight(w)}
		}
	}
	return Attempt{Status: AttemptEmpty, DisplayValue: ""}
}

// ProjectAttempts computes the six display cells for an athlete from raw
// database fields. Used for athletes outside the running session, whose
// precomputed display records are not part of any update frame.
func ProjectAttempts(a *Athlete) (snatch, cleanJerk []Attempt) {
	snatch = make([]Attempt, 3)
	cleanJerk = make([]Attempt, 3)
	for i := 0; i < 3; i++ {
		snatch[i] = a.RawAttempt(i).Project()
		cleanJerk[i] = a.RawAttempt(i + 3).Project()
	}
	return snatch, cleanJerk
}

// BestSnatch returns the heaviest successful snatch, zero if none.
func (a *Athlete) BestSnatch() float64 {
	return bestOf(a.Snatch1ActualLift, a.Snatch2ActualLift, a.Snatch3ActualLift)
}

// BestCleanJerk returns the heaviest successful clean and jerk, zero if none.
func (a *Athlete) BestCleanJerk() float64 {
	return bestOf(a.CleanJerk1ActualLift, a.CleanJerk2ActualLift, a.CleanJerk3ActualLift)
}

// Total is the competition total. Zero unless both lifts have a successful
// attempt.
func (a *Athlete) Total() float64 {
	sn, cj := a.BestSnatch(), a.BestCleanJerk()
	if sn <= 0 || cj <= 0 {
		return 0
	}
	return sn + cj
}

func bestOf(lifts ...string) float64 {
	best := 0.0
	for _, l := range lifts {
		if v, ok := parseWeight(l); ok && v > best {
			best = v
		}
	}
	return best
}

// DisplayName renders an athlete name the way scoreboards print it, family
// name uppercased first.
func DisplayName(lastName, firstName string) string {
	last := strings.ToUpper(strings.TrimSpace(lastName))
	first := strings.TrimSpace(firstName)
	switch {
	case last == "":
		return first
	case first == "":
		return last
	}
	return last + ", " + first
}

// ProjectSessionAthlete builds a display record from raw database fields for
// an athlete that is not part of the running session. The record carries no
// highlight classes: only the competition software assigns those.
func ProjectSessionAthlete(a *Athlete, teamName string) SessionAthlete {
	sn, cj := ProjectAttempts(a)
	out := SessionAthlete{
		Key:               a.Key,
		FullName:          DisplayName(a.LastName, a.FirstName),
		TeamName:          teamName,
		Gender:            a.Gender,
		Category:          a.Category,
		StartNumber:       a.StartNumber,
		LotNumber:         a.LotNumber,
		SnatchAttempts:    sn,
		CleanJerkAttempts: cj,
	}
	if best := a.BestSnatch(); best > 0 {
		out.BestSnatch = formatWeight(best)
	}
	if best := a.BestCleanJerk(); best > 0 {
		out.BestCleanJerk = formatWeight(best)
	}
	if total := a.Total(); total > 0 {
		out.Total = formatWeight(total)
	}
	if a.SnatchRank > 0 {
		out.SnatchRank = strconv.Itoa(a.SnatchRank)
	}
	if a.CleanJerkRank > 0 {
		out.CleanJerkRank = strconv.Itoa(a.CleanJerkRank)
	}
	if a.TotalRank > 0 {
		out.TotalRank = strconv.Itoa(a.TotalRank)
	}
	return out
}
