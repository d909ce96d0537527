package scoreboards

import (
	"context"
	"strings"

	"github.com/openlifting/liftcast/competition"
	"github.com/openlifting/liftcast/relay/projection"
)

// RecordsView lists record marks, optionally narrowed to one lift kind or
// to records set during this meet.
type RecordsView struct {
	Kind    string               `json:"kind"`
	Records []competition.Record `json:"records"`
	Labels  map[string]string    `json:"labels,omitempty"`
}

func recordsProjection() *projection.Projection {
	return &projection.Projection{
		Name:        "records",
		Description: "Record marks, filtered by lift kind or meet freshness.",
		Schema: projection.Schema{
			{
				Key:     "kind",
				Label:   "Lift kind",
				Type:    projection.OptionEnum,
				Enum:    []string{"all", "snatch", "cleanjerk", "total"},
				Default: "all",
			},
			{
				Key:     "newOnly",
				Label:   "Only records set during this meet",
				Type:    projection.OptionBoolean,
				Default: false,
			},
		},
		Compute: computeRecords,
	}
}

func computeRecords(_ context.Context, req *projection.Request) (interface{}, error) {
	kind := req.Options.Str("kind")
	view := &RecordsView{
		Kind:    kind,
		Records: []competition.Record{},
		Labels: labels(req, map[string]string{
			"Record": "Record",
			"Holder": "Holder",
			"Nation": "Nation",
		}),
	}
	source := req.Reader.Records()
	if req.Options.Bool("newOnly") {
		source = req.Reader.NewRecords()
	}
	for _, r := range source {
		if kind != "all" && !strings.EqualFold(string(r.Kind), kind) {
			continue
		}
		view.Records = append(view.Records, r)
	}
	return view, nil
}
