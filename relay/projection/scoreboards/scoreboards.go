// Package scoreboards defines the built-in projections: the display views
// fans and venue screens query from the relay. Each projection renders from
// hub state only; clocks and referee lights are overlaid by the host and
// never appear in these views.
package scoreboards

import (
	"github.com/openlifting/liftcast/competition"
	"github.com/openlifting/liftcast/relay/projection"
	"github.com/pkg/errors"
)

// RegisterAll installs every built-in projection on a host.
func RegisterAll(h *projection.Host) error {
	for _, p := range []*projection.Projection{
		liftingOrderProjection(),
		scoreboardProjection(),
		teamResultsProjection(),
		medalsProjection(),
		recordsProjection(),
		currentAthleteProjection(),
	} {
		if err := h.Register(p); err != nil {
			return errors.Wrapf(err, "could not register %q", p.Name)
		}
	}
	return nil
}

// Row is one display row: either an athlete or a spacer marking a category
// or lift-type boundary.
type Row struct {
	Spacer  bool                        `json:"isSpacer,omitempty"`
	Title   string                      `json:"title,omitempty"`
	Athlete *competition.SessionAthlete `json:"athlete,omitempty"`
}

// athleteRow resolves a key to a display record. Athletes in the running
// session come from the update frame verbatim; anyone else is built from
// raw roster fields and carries no highlight classes.
func athleteRow(req *projection.Request, key competition.FlexString) *competition.SessionAthlete {
	if sa := req.Reader.SessionAthlete(req.FOP, key); sa != nil {
		out := *sa
		return &out
	}
	a := req.Reader.AthleteByKey(key)
	if a == nil {
		return nil
	}
	sa := competition.ProjectSessionAthlete(a, req.Reader.TeamName(a.Team))
	return &sa
}

// decorate fills the flag URL when the upstream record left it empty.
func decorate(req *projection.Request, sa *competition.SessionAthlete) {
	if sa.FlagURL == "" && req.Assets != nil && sa.TeamName != "" {
		sa.FlagURL = req.Assets.FlagURL(sa.TeamName)
	}
}

// labels resolves column headings through the locale's translation table,
// keeping the fallback text for keys the table does not carry.
func labels(req *projection.Request, fallbacks map[string]string) map[string]string {
	table := req.Reader.Translations(req.Locale)
	out := make(map[string]string, len(fallbacks))
	for key, fallback := range fallbacks {
		if v, ok := table[key]; ok && v != "" {
			out[key] = v
			continue
		}
		out[key] = fallback
	}
	return out
}

func f(v float64) *float64 {
	return &v
}
