package boundary

import "fmt"

// GeometryError reports a boundary relation whose ways cannot form a ring.
// Upstream map data has to be fixed; the run cannot continue.
type GeometryError struct {
	RelationID int64
	Reason     string
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("relation %d: %s", e.RelationID, e.Reason)
}

// LookupError reports a point with no usable province level.
type LookupError struct {
	Lat float64
	Lng float64
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("no admin level for %v,%v", e.Lat, e.Lng)
}
