package competition

import (
	"sort"
)

// OfficialRole identifies one technical official assignment within a session.
type OfficialRole string

// Technical official roles. Referees are numbered from the left seat, so the
// center referee is referee two.
const (
	RoleJuryPresident       OfficialRole = "juryPresident"
	RoleJuryMember          OfficialRole = "juryMember"
	RoleReferee1            OfficialRole = "referee1"
	RoleReferee2            OfficialRole = "referee2"
	RoleReferee3            OfficialRole = "referee3"
	RoleTechnicalController OfficialRole = "technicalController"
	RoleMarshal             OfficialRole = "marshal"
	RoleTimekeeper          OfficialRole = "timekeeper"
	RoleAnnouncer           OfficialRole = "announcer"
	RoleSecretary           OfficialRole = "secretary"
	RoleReserve             OfficialRole = "reserve"
)

// roleOrder is the protocol sheet ordering: jury before referees before
// platform officials.
var roleOrder = map[OfficialRole]int{
	RoleJuryPresident:       1,
	RoleJuryMember:          2,
	RoleReferee1:            3,
	RoleReferee2:            4,
	RoleReferee3:            5,
	RoleTechnicalController: 6,
	RoleMarshal:             7,
	RoleTimekeeper:          8,
	RoleAnnouncer:           9,
	RoleSecretary:           10,
	RoleReserve:             11,
}

// Rank returns the role's protocol sheet position. Roles the relay does not
// know sort after every known one.
func (r OfficialRole) Rank() int {
	if n, ok := roleOrder[r]; ok {
		return n
	}
	return len(roleOrder) + 1
}

// Official is one technical official assignment.
type Official struct {
	Role OfficialRole `json:"role"`
	Name string       `json:"name"`
}

// Session describes one competition session as delivered by the database
// payload: scheduling fields plus the technical officials assigned to it.
type Session struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Platform    string     `json:"platform,omitempty"`
	WeighInTime string     `json:"weighInTime,omitempty"`
	StartTime   string     `json:"startTime,omitempty"`
	Officials   []Official `json:"officials,omitempty"`
}

// SortOfficials orders officials for protocol display. The sort is stable, so
// officials sharing a role keep their payload order.
func SortOfficials(list []Official) []Official {
	out := make([]Official, len(list))
	copy(out, list)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Role.Rank() < out[j].Role.Rank()
	})
	return out
}
