package geo

import (
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
)

// Point is a WGS84 coordinate as it appears in the source tables.
type Point struct {
	Lat float64 `json:"latitude" yaml:"latitude"`
	Lng float64 `json:"longitude" yaml:"longitude"`
}

// Key returns the "<lat>,<lng>" cache key for the point.
// Coordinates are printed with the shortest representation that round-trips.
func (p Point) Key() string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)
}

// Orb returns the point in lon/lat order.
func (p Point) Orb() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

// Valid reports whether the coordinate is inside the WGS84 range.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

func (p Point) String() string {
	return fmt.Sprintf("%s,%s",
		strconv.FormatFloat(p.Lat, 'f', -1, 64),
		strconv.FormatFloat(p.Lng, 'f', -1, 64))
}

// ParsePoint parses latitude and longitude strings taken from a table row.
func ParsePoint(lat, lng string) (Point, error) {
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid latitude %q: %w", lat, err)
	}
	lo, err := strconv.ParseFloat(lng, 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid longitude %q: %w", lng, err)
	}

	p := Point{Lat: la, Lng: lo}
	if !p.Valid() {
		return Point{}, fmt.Errorf("coordinate out of range: %s", p)
	}

	return p, nil
}
