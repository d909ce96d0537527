package competition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortOfficials(t *testing.T) {
	in := []Official{
		{Role: RoleAnnouncer, Name: "Foss"},
		{Role: RoleJuryMember, Name: "Dahl"},
		{Role: RoleReferee2, Name: "Moe"},
		{Role: OfficialRole("doctor"), Name: "Strand"},
		{Role: RoleJuryPresident, Name: "Aas"},
		{Role: RoleJuryMember, Name: "Eide"},
	}
	got := SortOfficials(in)

	want := []string{"Aas", "Dahl", "Eide", "Moe", "Foss", "Strand"}
	require.Len(t, got, len(want))
	for i, name := range want {
		assert.Equal(t, name, got[i].Name)
	}
	// Input order is untouched.
	assert.Equal(t, "Foss", in[0].Name)
}

func TestOfficialRole_Rank(t *testing.T) {
	assert.Less(t, RoleJuryPresident.Rank(), RoleReferee1.Rank())
	assert.Less(t, RoleReferee3.Rank(), RoleMarshal.Rank())
	assert.Greater(t, OfficialRole("doctor").Rank(), RoleReserve.Rank())
}

func TestSessionNamed(t *testing.T) {
	payload := `{
		"formatVersion": "2.0",
		"competition": {"competitionName": "Nordic Open", "fops": ["A"]},
		"athletes": [],
		"sessions": [
			{"name": "F1", "description": "Women 64", "platform": "A",
			 "officials": [
				{"role": "referee2", "name": "Moe"},
				{"role": "juryPresident", "name": "Aas"}
			]},
			{"name": "M1", "description": "Men 89"}
		]
	}`
	db, err := ParseDatabase([]byte(payload))
	require.NoError(t, err)

	s := db.SessionNamed("F1")
	require.NotNil(t, s)
	assert.Equal(t, "Women 64", s.Description)
	require.Len(t, s.Officials, 2)

	assert.NotNil(t, db.SessionNamed("M1"))
	assert.Nil(t, db.SessionNamed("F2"))

	empty := &Database{}
	assert.Nil(t, empty.SessionNamed("F1"))
}
