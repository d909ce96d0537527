package competition

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// The legacy database format predates the 2.0 DTOs: every scalar is a string,
// athletes reference categories by numeric id through a separate categories
// table, and meet metadata sits at the top level instead of under a
// competition object.

type legacyDatabase struct {
	CompetitionName string           `json:"competitionName"`
	Federation      string           `json:"federation"`
	Platforms       []string         `json:"platforms"`
	Teams           []Team           `json:"teams"`
	Categories      []legacyCategory `json:"categories"`
	Athletes        []legacyAthlete  `json:"athletes"`

	TranslationsChecksum string `json:"translationsChecksum"`
}

type legacyCategory struct {
	ID       FlexString `json:"id"`
	Code     string     `json:"code"`
	AgeGroup string     `json:"ageGroup"`
}

type legacyAthlete struct {
	ID          FlexString `json:"id"`
	LastName    string     `json:"lastName"`
	FirstName   string     `json:"firstName"`
	Gender      string     `json:"gender"`
	BodyWeight  string     `json:"bodyWeight"`
	BirthDate   string     `json:"birthDate"`
	Club        FlexString `json:"club"`
	CategoryID  FlexString `json:"categoryId"`
	Group       string     `json:"group"`
	StartNumber string     `json:"startNumber"`
	LotNumber   FlexString `json:"lotNumber"`

	AttemptFields
}

func parseLegacy(payload []byte) (*Database, error) {
	var legacy legacyDatabase
	if err := json.Unmarshal(payload, &legacy); err != nil {
		return nil, errors.Wrap(err, "could not parse legacy database payload")
	}

	categoryCodes := make(map[FlexString]string, len(legacy.Categories))
	ageGroups := make(map[string]*AgeGroup)
	order := make([]string, 0)
	for _, c := range legacy.Categories {
		categoryCodes[c.ID] = c.Code
		group := c.AgeGroup
		if group == "" {
			group = ageGroupFromCode(c.Code)
		}
		ag, ok := ageGroups[group]
		if !ok {
			ag = &AgeGroup{Code: group}
			ageGroups[group] = ag
			order = append(order, group)
		}
		ag.Categories = append(ag.Categories, c.Code)
	}

	db := &Database{
		Competition: Competition{
			Name:       legacy.CompetitionName,
			Federation: legacy.Federation,
			FOPs:       legacy.Platforms,
		},
		Teams:                legacy.Teams,
		Athletes:             make([]Athlete, 0, len(legacy.Athletes)),
		TranslationsChecksum: legacy.TranslationsChecksum,
	}
	for _, g := range order {
		db.AgeGroups = append(db.AgeGroups, *ageGroups[g])
	}

	for i := range legacy.Athletes {
		la := &legacy.Athletes[i]
		bw, _ := strconv.ParseFloat(strings.TrimSpace(la.BodyWeight), 64)
		start, _ := strconv.Atoi(strings.TrimSpace(la.StartNumber))
		a := Athlete{
			Key:           la.ID,
			LastName:      la.LastName,
			FirstName:     la.FirstName,
			Gender:        la.Gender,
			BodyWeight:    bw,
			YearOfBirth:   parseYear(firstN(la.BirthDate, 4)),
			Team:          la.Club,
			Category:      categoryCodes[la.CategoryID],
			Session:       la.Group,
			StartNumber:   start,
			LotNumber:     la.LotNumber,
			AttemptFields: la.AttemptFields,
		}
		if len(la.BirthDate) > 4 {
			a.FullBirthDate = la.BirthDate
		}
		db.Athletes = append(db.Athletes, a)
	}

	if err := validateDatabase(db); err != nil {
		return nil, err
	}
	return db, nil
}

// ageGroupFromCode recovers the age group from codes shaped like SR_M89 when
// the categories table does not name one.
func ageGroupFromCode(code string) string {
	if i := strings.IndexByte(code, '_'); i > 0 {
		return code[:i]
	}
	return code
}

func firstN(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}
