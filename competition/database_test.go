package competition

import (
	"testing"

	"github.com/openlifting/liftcast/config/features"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const v2Payload = `{
	"formatVersion": "2.0",
	"competition": {"competitionName": "Nordic Open", "federation": "NVF", "fops": ["A", "B"]},
	"teams": [{"id": 1, "name": "Oslo AK"}, {"id": 2, "name": "Bergen KK"}],
	"ageGroups": [{"code": "SR", "categories": ["SR_M89", "SR_F64"]}],
	"athletes": [
		{"key": 11, "lastName": "Berg", "firstName": "Anna", "gender": "F",
		 "bodyWeight": 63.4, "yearOfBirth": 1999, "team": 1, "category": "SR_F64",
		 "group": "F1", "startNumber": 1, "lotNumber": 4,
		 "snatch1Declaration": "80", "snatch1ActualLift": "80"},
		{"key": -3, "lastName": "Haug", "firstName": "Olav", "gender": "M",
		 "bodyWeight": 88.1, "yearOfBirth": 1995, "team": 2, "category": "SR_M89",
		 "group": "M1", "startNumber": 2, "lotNumber": "9"}
	],
	"records": [
		{"federation": "NVF", "kind": "TOTAL", "gender": "M", "bwLower": 81,
		 "bwUpper": 89, "ageLower": 15, "ageUpper": 999, "value": 350,
		 "holder": "HAUG, Olav"}
	]
}`

const legacyPayload = `{
	"competitionName": "Club Championship 2014",
	"platforms": ["A"],
	"teams": [{"id": "3", "name": "Trondheim VK"}],
	"categories": [
		{"id": "17", "code": "SR_M89", "ageGroup": "SR"},
		{"id": "18", "code": "JR_M89", "ageGroup": "JR"}
	],
	"athletes": [
		{"id": "-2", "lastName": "Vik", "firstName": "Tor", "gender": "M",
		 "bodyWeight": "88.40", "birthDate": "1994-03-12", "club": "3",
		 "categoryId": "17", "group": "M1", "startNumber": "4", "lotNumber": "12",
		 "snatch1Declaration": "110", "snatch1ActualLift": "-110"}
	]
}`

func TestParseDatabase_V2(t *testing.T) {
	db, err := ParseDatabase([]byte(v2Payload))
	require.NoError(t, err)
	assert.Equal(t, FormatV2, db.FormatVersion)
	assert.Equal(t, "Nordic Open", db.Competition.Name)
	assert.Equal(t, []string{"A", "B"}, db.Competition.FOPs)
	require.Len(t, db.Athletes, 2)

	assert.Equal(t, FlexString("11"), db.Athletes[0].Key)
	assert.Equal(t, FlexString("-3"), db.Athletes[1].Key)
	assert.Equal(t, "Oslo AK", db.TeamName(db.Athletes[0].Team))
	assert.Equal(t, "SR", db.AgeGroupFor("SR_F64"))
	assert.Equal(t, "", db.AgeGroupFor("YTH_M81"))

	require.Len(t, db.Records, 1)
	assert.Equal(t, RecordTotal, db.Records[0].Kind)
	assert.Equal(t, "", db.Records[0].SessionTag)
}

func TestParseDatabase_Legacy(t *testing.T) {
	reset := features.InitWithReset(&features.Flags{EnableLegacyDatabaseFormat: true})
	defer reset()

	db, err := ParseDatabase([]byte(legacyPayload))
	require.NoError(t, err)
	require.Len(t, db.Athletes, 1)

	a := db.Athletes[0]
	assert.Equal(t, FlexString("-2"), a.Key)
	assert.Equal(t, 88.4, a.BodyWeight)
	assert.Equal(t, 1994, a.YearOfBirth)
	assert.Equal(t, "1994-03-12", a.FullBirthDate)
	assert.Equal(t, "SR_M89", a.Category)
	assert.Equal(t, 4, a.StartNumber)
	assert.Equal(t, "Trondheim VK", db.TeamName(a.Team))
	assert.Equal(t, "-110", a.Snatch1ActualLift)

	assert.Equal(t, "SR", db.AgeGroupFor("SR_M89"))
	assert.Equal(t, "JR", db.AgeGroupFor("JR_M89"))
}

func TestParseDatabase_LegacyDisabled(t *testing.T) {
	reset := features.InitWithReset(&features.Flags{EnableLegacyDatabaseFormat: false})
	defer reset()

	_, err := ParseDatabase([]byte(legacyPayload))
	assert.ErrorIs(t, err, ErrLegacyFormatDisabled)
}

func TestParseDatabase_UnknownFormatVersion(t *testing.T) {
	_, err := ParseDatabase([]byte(`{"formatVersion": "3.1", "athletes": []}`))
	assert.ErrorContains(t, err, "unsupported database format")
}

func TestParseDatabase_DuplicateKeys(t *testing.T) {
	payload := `{
		"formatVersion": "2.0",
		"competition": {"competitionName": "x", "fops": ["A"]},
		"athletes": [{"key": 1, "lastName": "A"}, {"key": "1", "lastName": "B"}]
	}`
	_, err := ParseDatabase([]byte(payload))
	assert.ErrorContains(t, err, "duplicate athlete key")
}

func TestParseDatabase_SamePayloadIsDeterministic(t *testing.T) {
	first, err := ParseDatabase([]byte(v2Payload))
	require.NoError(t, err)
	second, err := ParseDatabase([]byte(v2Payload))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
