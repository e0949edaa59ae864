package overpass

import (
	"encoding/json"
	"testing"
)

func TestParseAdminLevel(t *testing.T) {
	tests := []struct {
		in     string
		want   AdminLevel
		wantOK bool
	}{
		{in: "3", want: AdminLevel3, wantOK: true},
		{in: "6", want: AdminLevel6, wantOK: true},
		{in: "2"},
		{in: "7"},
		{in: ""},
		{in: "four"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseAdminLevel(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseAdminLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestTagsJSON(t *testing.T) {
	var tags Tags
	raw := `{"admin_level":"5","boundary":"administrative","name":"Région du Centre","name:en":"Centre Region","wikidata":"Q1"}`
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	want := Tags{AdminLevel: AdminLevel5, Name: "Région du Centre", NameEn: "Centre Region", Boundary: "administrative"}
	if tags != want {
		t.Errorf("Tags = %+v, want %+v", tags, want)
	}

	b, err := json.Marshal(tags)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var back Tags
	if err := json.Unmarshal(b, &back); err != nil || back != want {
		t.Errorf("round trip = %+v, %v", back, err)
	}
}

func TestRelationOuterWays(t *testing.T) {
	rel := Relation{Members: []Member{
		{Type: "way", Role: "outer", Geometry: []Coordinate{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 1}}},
		{Type: "way", Role: "inner", Geometry: []Coordinate{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 1}}},
		{Type: "node", Role: "admin_centre"},
		{Type: "way", Role: "outer", Geometry: []Coordinate{{Lat: 2, Lon: 2}}},
	}}

	ways := rel.OuterWays()
	if len(ways) != 1 {
		t.Fatalf("OuterWays() = %d members, want 1", len(ways))
	}

	ls := ways[0].LineString()
	if ls[1][0] != 1 || ls[1][1] != 1 {
		t.Errorf("LineString() = %v, want lon/lat order", ls)
	}
}
