package overpass

import (
	"encoding/json"
	"strconv"

	"github.com/paulmach/orb"
)

// AdminLevel is an administrative tier the pipeline understands.
type AdminLevel int

// Supported admin levels. Country (2) and finer levels are never requested.
const (
	AdminLevel3 AdminLevel = 3
	AdminLevel4 AdminLevel = 4
	AdminLevel5 AdminLevel = 5
	AdminLevel6 AdminLevel = 6
)

// ParseAdminLevel parses an admin_level tag value. Only 3 to 6 are accepted.
func ParseAdminLevel(s string) (AdminLevel, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < int(AdminLevel3) || n > int(AdminLevel6) {
		return 0, false
	}
	return AdminLevel(n), true
}

func (l AdminLevel) String() string {
	return strconv.Itoa(int(l))
}

// Tags are the relation tags the resolver reads.
// AdminLevel is zero when the tag is missing or outside 3..6.
type Tags struct {
	AdminLevel AdminLevel
	Name       string
	NameEn     string
	Boundary   string
}

// EnglishName returns name:en, falling back to the local name.
func (t Tags) EnglishName() string {
	if t.NameEn != "" {
		return t.NameEn
	}
	return t.Name
}

// UnmarshalJSON decodes the open tag map into the known fields.
func (t *Tags) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*t = Tags{
		Name:     raw["name"],
		NameEn:   raw["name:en"],
		Boundary: raw["boundary"],
	}
	if lvl, ok := ParseAdminLevel(raw["admin_level"]); ok {
		t.AdminLevel = lvl
	}

	return nil
}

// MarshalJSON writes the tags back in Overpass shape.
func (t Tags) MarshalJSON() ([]byte, error) {
	raw := map[string]string{}
	if t.Name != "" {
		raw["name"] = t.Name
	}
	if t.NameEn != "" {
		raw["name:en"] = t.NameEn
	}
	if t.Boundary != "" {
		raw["boundary"] = t.Boundary
	}
	if t.AdminLevel != 0 {
		raw["admin_level"] = t.AdminLevel.String()
	}
	return json.Marshal(raw)
}

// Coordinate is a vertex of a way geometry.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Member is a relation member as returned with "out geom".
type Member struct {
	Type     string       `json:"type"`
	Ref      int64        `json:"ref"`
	Role     string       `json:"role"`
	Geometry []Coordinate `json:"geometry,omitempty"`
}

// LineString returns the member geometry in lon/lat order.
func (m Member) LineString() orb.LineString {
	ls := make(orb.LineString, 0, len(m.Geometry))
	for _, c := range m.Geometry {
		ls = append(ls, orb.Point{c.Lon, c.Lat})
	}
	return ls
}

// Relation is an administrative boundary relation.
type Relation struct {
	Type    string   `json:"type"`
	ID      int64    `json:"id"`
	Tags    Tags     `json:"tags"`
	Members []Member `json:"members"`
}

// OuterWays returns the way members with the "outer" role that carry geometry.
func (r Relation) OuterWays() []Member {
	ways := make([]Member, 0, len(r.Members))
	for _, m := range r.Members {
		if m.Type != "way" || m.Role != "outer" {
			continue
		}
		if len(m.Geometry) < 2 {
			continue
		}
		ways = append(ways, m)
	}
	return ways
}

// DecodeElements parses a raw Overpass "elements" array.
func DecodeElements(raw []byte) ([]Relation, error) {
	var rels []Relation
	if err := json.Unmarshal(raw, &rels); err != nil {
		return nil, err
	}
	return rels, nil
}
