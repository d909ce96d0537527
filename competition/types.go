package competition

// Competition holds meet level metadata from the database payload.
type Competition struct {
	Name       string   `json:"competitionName"`
	Federation string   `json:"federation,omitempty"`
	City       string   `json:"competitionCity,omitempty"`
	Date       string   `json:"competitionDate,omitempty"`
	FOPs       []string `json:"fops"`
}

// Team is one club or national team entry.
type Team struct {
	ID   FlexString `json:"id"`
	Name string     `json:"name"`
	Flag string     `json:"flag,omitempty"`
}

// AgeGroup groups category codes under one age bracket, such as SR or JR.
type AgeGroup struct {
	Code       string   `json:"code"`
	MinAge     int      `json:"minAge,omitempty"`
	MaxAge     int      `json:"maxAge,omitempty"`
	Categories []string `json:"categories"`
}

// Participation carries the ranks an athlete holds within one category. An
// athlete lifting in a combined session can place in several categories at
// once, for example a junior also ranked among seniors.
type Participation struct {
	Category      string `json:"category"`
	SnatchRank    int    `json:"snatchRank,omitempty"`
	CleanJerkRank int    `json:"cleanJerkRank,omitempty"`
	TotalRank     int    `json:"totalRank,omitempty"`
}

// RecordKind tags which lift a record is held for.
type RecordKind string

const (
	RecordSnatch    RecordKind = "SNATCH"
	RecordCleanJerk RecordKind = "CLEANJERK"
	RecordTotal     RecordKind = "TOTAL"
)

// Record is one record mark. SessionTag is empty for records that predate the
// meet and carries the session name when the record was set during it.
type Record struct {
	Federation    string     `json:"federation"`
	Kind          RecordKind `json:"kind"`
	Gender        string     `json:"gender"`
	BWCatLower    float64    `json:"bwLower"`
	BWCatUpper    float64    `json:"bwUpper"`
	AgeGroupLower int        `json:"ageLower"`
	AgeGroupUpper int        `json:"ageUpper"`
	Value         float64    `json:"value"`
	Holder        string     `json:"holder"`
	Born          int        `json:"born,omitempty"`
	Nation        string     `json:"nation,omitempty"`
	SessionTag    string     `json:"session,omitempty"`
}

// AttemptFields is the six-slot request chain block, identical in both
// database formats. Fields stay strings: upstream serializes weight requests
// verbatim, including empty strings for slots not yet declared. A negative
// actual lift is a failed attempt at the absolute weight.
type AttemptFields struct {
	Snatch1AutomaticProgression string `json:"snatch1AutomaticProgression,omitempty"`
	Snatch1Declaration          string `json:"snatch1Declaration,omitempty"`
	Snatch1Change1              string `json:"snatch1Change1,omitempty"`
	Snatch1Change2              string `json:"snatch1Change2,omitempty"`
	Snatch1ActualLift           string `json:"snatch1ActualLift,omitempty"`
	Snatch2AutomaticProgression string `json:"snatch2AutomaticProgression,omitempty"`
	Snatch2Declaration          string `json:"snatch2Declaration,omitempty"`
	Snatch2Change1              string `json:"snatch2Change1,omitempty"`
	Snatch2Change2              string `json:"snatch2Change2,omitempty"`
	Snatch2ActualLift           string `json:"snatch2ActualLift,omitempty"`
	Snatch3AutomaticProgression string `json:"snatch3AutomaticProgression,omitempty"`
	Snatch3Declaration          string `json:"snatch3Declaration,omitempty"`
	Snatch3Change1              string `json:"snatch3Change1,omitempty"`
	Snatch3Change2              string `json:"snatch3Change2,omitempty"`
	Snatch3ActualLift           string `json:"snatch3ActualLift,omitempty"`

	CleanJerk1AutomaticProgression string `json:"cleanJerk1AutomaticProgression,omitempty"`
	CleanJerk1Declaration          string `json:"cleanJerk1Declaration,omitempty"`
	CleanJerk1Change1              string `json:"cleanJerk1Change1,omitempty"`
	CleanJerk1Change2              string `json:"cleanJerk1Change2,omitempty"`
	CleanJerk1ActualLift           string `json:"cleanJerk1ActualLift,omitempty"`
	CleanJerk2AutomaticProgression string `json:"cleanJerk2AutomaticProgression,omitempty"`
	CleanJerk2Declaration          string `json:"cleanJerk2Declaration,omitempty"`
	CleanJerk2Change1              string `json:"cleanJerk2Change1,omitempty"`
	CleanJerk2Change2              string `json:"cleanJerk2Change2,omitempty"`
	CleanJerk2ActualLift           string `json:"cleanJerk2ActualLift,omitempty"`
	CleanJerk3AutomaticProgression string `json:"cleanJerk3AutomaticProgression,omitempty"`
	CleanJerk3Declaration          string `json:"cleanJerk3Declaration,omitempty"`
	CleanJerk3Change1              string `json:"cleanJerk3Change1,omitempty"`
	CleanJerk3Change2              string `json:"cleanJerk3Change2,omitempty"`
	CleanJerk3ActualLift           string `json:"cleanJerk3ActualLift,omitempty"`
}

// Athlete is one competitor as delivered by a database payload.
type Athlete struct {
	Key           FlexString `json:"key"`
	LastName      string     `json:"lastName"`
	FirstName     string     `json:"firstName"`
	Gender        string     `json:"gender"`
	BodyWeight    float64    `json:"bodyWeight"`
	YearOfBirth   int        `json:"yearOfBirth,omitempty"`
	FullBirthDate string     `json:"fullBirthDate,omitempty"`
	Team          FlexString `json:"team"`
	Category      string     `json:"category"`
	Session       string     `json:"group"`
	StartNumber   int        `json:"startNumber"`
	LotNumber     FlexString `json:"lotNumber"`

	AttemptFields

	SnatchRank     int             `json:"snatchRank,omitempty"`
	CleanJerkRank  int             `json:"cleanJerkRank,omitempty"`
	TotalRank      int             `json:"totalRank,omitempty"`
	Participations []Participation `json:"participations,omitempty"`
}

// NumAttempts is the number of attempt slots per athlete, three snatch
// followed by three clean and jerk.
const NumAttempts = 6

// RawAttempt is the request chain for one attempt slot.
type RawAttempt struct {
	AutomaticProgression string
	Declaration          string
	Change1              string
	Change2              string
	ActualLift           string
}

// RawAttempt returns the request chain for slot 0..5. Slots 0..2 are snatch,
// 3..5 are clean and jerk.
func (f *AttemptFields) RawAttempt(slot int) RawAttempt {
	switch slot {
	case 0:
		return RawAttempt{f.Snatch1AutomaticProgression, f.Snatch1Declaration, f.Snatch1Change1, f.Snatch1Change2, f.Snatch1ActualLift}
	case 1:
		return RawAttempt{f.Snatch2AutomaticProgression, f.Snatch2Declaration, f.Snatch2Change1, f.Snatch2Change2, f.Snatch2ActualLift}
	case 2:
		return RawAttempt{f.Snatch3AutomaticProgression, f.Snatch3Declaration, f.Snatch3Change1, f.Snatch3Change2, f.Snatch3ActualLift}
	case 3:
		return RawAttempt{f.CleanJerk1AutomaticProgression, f.CleanJerk1Declaration, f.CleanJerk1Change1, f.CleanJerk1Change2, f.CleanJerk1ActualLift}
	case 4:
		return RawAttempt{f.CleanJerk2AutomaticProgression, f.CleanJerk2Declaration, f.CleanJerk2Change1, f.CleanJerk2Change2, f.CleanJerk2ActualLift}
	case 5:
		return RawAttempt{f.CleanJerk3AutomaticProgression, f.CleanJerk3Declaration, f.CleanJerk3Change1, f.CleanJerk3Change2, f.CleanJerk3ActualLift}
	}
	return RawAttempt{}
}

// SetActualLift overwrites the actual result for slot 0..5.
func (f *AttemptFields) SetActualLift(slot int, value string) {
	switch slot {
	case 0:
		f.Snatch1ActualLift = value
	case 1:
		f.Snatch2ActualLift = value
	case 2:
		f.Snatch3ActualLift = value
	case 3:
		f.CleanJerk1ActualLift = value
	case 4:
		f.CleanJerk2ActualLift = value
	case 5:
		f.CleanJerk3ActualLift = value
	}
}

// Age returns the athlete's age in the given year, preferring the full birth
// date when present.
func (a *Athlete) Age(currentYear int) int {
	year := a.YearOfBirth
	if year == 0 && len(a.FullBirthDate) >= 4 {
		year = parseYear(a.FullBirthDate[:4])
	}
	if year == 0 {
		return 0
	}
	return currentYear - year
}

// Database is the parsed global competition state: the full roster, the team
// and age-group tables needed to resolve athlete references, and the records
// list.
type Database struct {
	FormatVersion string      `json:"formatVersion,omitempty"`
	Competition   Competition `json:"competition"`
	Teams         []Team      `json:"teams"`
	AgeGroups     []AgeGroup  `json:"ageGroups"`
	Athletes      []Athlete   `json:"athletes"`
	Sessions      []Session   `json:"sessions,omitempty"`
	Records       []Record    `json:"records,omitempty"`

	TranslationsChecksum string `json:"translationsChecksum,omitempty"`
}

// TeamName resolves a team id to its display name, falling back to the raw id.
func (d *Database) TeamName(id FlexString) string {
	for i := range d.Teams {
		if d.Teams[i].ID == id {
			return d.Teams[i].Name
		}
	}
	return id.String()
}

// SessionNamed returns the session record for a name, or nil when the
// database carries no session table or does not know the name.
func (d *Database) SessionNamed(name string) *Session {
	for i := range d.Sessions {
		if d.Sessions[i].Name == name {
			return &d.Sessions[i]
		}
	}
	return nil
}

// AgeGroupFor returns the age group code owning a category code, or empty.
func (d *Database) AgeGroupFor(category string) string {
	for i := range d.AgeGroups {
		for _, c := range d.AgeGroups[i].Categories {
			if c == category {
				return d.AgeGroups[i].Code
			}
		}
	}
	return ""
}
