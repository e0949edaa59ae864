package geo

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/twpayne/go-geos"
)

func TestPointKey(t *testing.T) {
	tests := []struct {
		name string
		p    Point
		want string
	}{
		{name: "negative latitude", p: Point{Lat: -13.9626, Lng: 33.7741}, want: "-13.9626,33.7741"},
		{name: "integers", p: Point{Lat: 12, Lng: -1}, want: "12,-1"},
		{name: "zero", p: Point{}, want: "0,0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Key(); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParsePoint(t *testing.T) {
	tests := []struct {
		name    string
		lat     string
		lng     string
		want    Point
		wantErr bool
	}{
		{name: "valid", lat: "-13.9626", lng: "33.7741", want: Point{Lat: -13.9626, Lng: 33.7741}},
		{name: "bad latitude", lat: "north", lng: "1", wantErr: true},
		{name: "bad longitude", lat: "1", lng: "", wantErr: true},
		{name: "out of range", lat: "91", lng: "0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePoint(tt.lat, tt.lng)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParsePoint() expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePoint() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParsePoint() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewFeature(t *testing.T) {
	t.Run("null geometry", func(t *testing.T) {
		got, err := NewFeature(nil).Encode()
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		want := `{"type":"Feature","geometry":null,"properties":{}}`
		if got != want {
			t.Errorf("Encode() = %s, want %s", got, want)
		}
	})

	t.Run("polygon", func(t *testing.T) {
		poly := orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}
		got, err := NewFeature(poly).Encode()
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		if !strings.Contains(got, `"type":"Polygon"`) {
			t.Errorf("Encode() = %s, want a Polygon geometry", got)
		}
		if !strings.HasSuffix(got, `"properties":{}}`) {
			t.Errorf("Encode() = %s, want empty properties", got)
		}
	})

	t.Run("NaN coordinate", func(t *testing.T) {
		got, err := NewFeature(orb.Point{math.NaN(), 1}).Encode()
		if err == nil {
			t.Errorf("Encode() = %s, want error", got)
		}
	})
}

func TestParseGeometry(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantType string
		wantNil  bool
		wantErr  bool
	}{
		{name: "blank", raw: "  ", wantNil: true},
		{name: "null", raw: "null", wantNil: true},
		{name: "bare polygon", raw: `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}`, wantType: "Polygon"},
		{name: "feature", raw: `{"type":"Feature","properties":{"id":"MW"},"geometry":{"type":"MultiPolygon","coordinates":[[[[0,0],[1,0],[1,1],[0,0]]]]}}`, wantType: "MultiPolygon"},
		{name: "feature collection", raw: `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[1,2]}}]}`, wantType: "GeometryCollection"},
		{name: "missing type", raw: `{"coordinates":[]}`, wantErr: true},
		{name: "broken json", raw: `{"type":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseGeometry([]byte(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseGeometry() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseGeometry() unexpected error = %v", err)
			}
			if tt.wantNil {
				if got != nil {
					t.Errorf("ParseGeometry() = %v, want nil", got)
				}
				return
			}
			if got.GeoJSONType() != tt.wantType {
				t.Errorf("GeoJSONType() = %s, want %s", got.GeoJSONType(), tt.wantType)
			}
		})
	}
}

func TestGEOSRoundTrip(t *testing.T) {
	gctx := geos.NewContext()
	square := orb.Polygon{{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}}

	g, err := ToGEOS(gctx, square)
	if err != nil {
		t.Fatalf("ToGEOS() error = %v", err)
	}
	if area := g.Area(); area != 4 {
		t.Errorf("Area() = %v, want 4", area)
	}

	back, err := FromGEOS(g)
	if err != nil {
		t.Fatalf("FromGEOS() error = %v", err)
	}
	poly, ok := back.(orb.Polygon)
	if !ok {
		t.Fatalf("FromGEOS() type = %T, want orb.Polygon", back)
	}
	if len(poly[0]) != 5 {
		t.Errorf("ring has %d points, want 5", len(poly[0]))
	}

	empty := g.Intersection(gctx.NewPoint([]float64{10, 10}))
	if got, err := FromGEOS(empty); err != nil || got != nil {
		t.Errorf("FromGEOS(empty) = %v, %v; want nil, nil", got, err)
	}
}

func TestLoadLandmass(t *testing.T) {
	gctx := geos.NewContext()
	dir := t.TempDir()

	land, err := ToGEOS(gctx, orb.Polygon{{{-10, -10}, {10, -10}, {10, 10}, {-10, 10}, {-10, -10}}})
	if err != nil {
		t.Fatalf("ToGEOS() error = %v", err)
	}
	path := filepath.Join(dir, "landmass.wkb")
	if err := os.WriteFile(path, land.ToWKB(), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := LoadLandmass(gctx, path)
	if err != nil {
		t.Fatalf("LoadLandmass() error = %v", err)
	}
	if got.Area() != 400 {
		t.Errorf("Area() = %v, want 400", got.Area())
	}

	if _, err := LoadLandmass(gctx, filepath.Join(dir, "missing.wkb")); err == nil {
		t.Error("LoadLandmass() expected error for a missing file")
	}

	garbage := filepath.Join(dir, "garbage.wkb")
	if err := os.WriteFile(garbage, []byte("not wkb"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadLandmass(gctx, garbage); err == nil {
		t.Error("LoadLandmass() expected error for invalid WKB")
	}
}
