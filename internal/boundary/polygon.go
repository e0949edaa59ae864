package boundary

import (
	"fmt"

	"github.com/malariagen/obsetl/internal/geo"
	"github.com/malariagen/obsetl/internal/overpass"

	"github.com/paulmach/orb"
	"github.com/twpayne/go-geos"
)

// SimplifyTolerance is applied to reconstructed boundaries, in degrees.
const SimplifyTolerance = 0.01

// Shape is the part of a reconstructed boundary the resolver keeps.
type Shape struct {
	Centroid orb.Point
	Geometry orb.Geometry
}

// Reconstructor turns boundary relations into land-clipped polygons.
type Reconstructor struct {
	gctx     *geos.Context
	landmass *geos.Geom
}

// NewReconstructor returns a Reconstructor clipping to landmass.
// A nil landmass disables clipping.
func NewReconstructor(gctx *geos.Context, landmass *geos.Geom) *Reconstructor {
	return &Reconstructor{gctx: gctx, landmass: landmass}
}

// UnmatchedEndpoints returns way start and end points that occur exactly once
// across all ways, in first-seen order. Two unmatched points mean one gap.
func UnmatchedEndpoints(ways []overpass.Member) []orb.Point {
	counts := make(map[orb.Point]int, len(ways)*2)
	order := make([]orb.Point, 0, len(ways)*2)

	add := func(p orb.Point) {
		if _, seen := counts[p]; !seen {
			order = append(order, p)
		}
		counts[p]++
	}

	for _, w := range ways {
		first := w.Geometry[0]
		add(orb.Point{first.Lon, first.Lat})
	}
	for _, w := range ways {
		last := w.Geometry[len(w.Geometry)-1]
		add(orb.Point{last.Lon, last.Lat})
	}

	unmatched := make([]orb.Point, 0, 2)
	for _, p := range order {
		if counts[p] == 1 {
			unmatched = append(unmatched, p)
		}
	}
	return unmatched
}

// Linework returns the outer way line strings of rel, plus one synthetic
// segment joining the two loose ends when the ring has a single gap.
func Linework(rel overpass.Relation) ([]orb.LineString, error) {
	ways := rel.OuterWays()
	if len(ways) == 0 {
		return nil, &GeometryError{RelationID: rel.ID, Reason: "no outer ways"}
	}

	unmatched := UnmatchedEndpoints(ways)
	if len(unmatched) > 2 {
		return nil, &GeometryError{
			RelationID: rel.ID,
			Reason:     fmt.Sprintf("more than one gap in geometry (%d unmatched endpoints)", len(unmatched)),
		}
	}

	lines := make([]orb.LineString, 0, len(ways)+1)
	if len(unmatched) == 2 {
		lines = append(lines, orb.LineString{unmatched[0], unmatched[1]})
	}
	for _, w := range ways {
		lines = append(lines, w.LineString())
	}

	return lines, nil
}

// Build assembles the relation's outer ways into a polygon, simplifies it and
// clips it to the landmass.
func (r *Reconstructor) Build(rel overpass.Relation) (*geos.Geom, error) {
	lines, err := Linework(rel)
	if err != nil {
		return nil, err
	}

	geoms := make([]*geos.Geom, 0, len(lines))
	for _, ls := range lines {
		coords := make([][]float64, 0, len(ls))
		for _, p := range ls {
			coords = append(coords, []float64{p[0], p[1]})
		}
		geoms = append(geoms, r.gctx.NewLineString(coords))
	}

	// Node the linework so that touching ways share vertices before polygonizing.
	noded := r.gctx.NewCollection(geos.TypeIDMultiLineString, geoms).UnaryUnion()
	faces := r.gctx.Polygonize([]*geos.Geom{noded})
	if faces.IsEmpty() {
		return nil, &GeometryError{RelationID: rel.ID, Reason: "ways do not form a closed ring"}
	}

	shape := faces.UnaryUnion().TopologyPreserveSimplify(SimplifyTolerance)
	if r.landmass != nil {
		shape = shape.Intersection(r.landmass)
	}

	return shape, nil
}

// Shape builds the relation polygon and returns its centroid and geometry.
func (r *Reconstructor) Shape(rel overpass.Relation) (Shape, error) {
	g, err := r.Build(rel)
	if err != nil {
		return Shape{}, err
	}

	og, err := geo.FromGEOS(g)
	if err != nil {
		return Shape{}, fmt.Errorf("relation %d: %w", rel.ID, err)
	}

	s := Shape{Geometry: og}
	if !g.IsEmpty() {
		c := g.Centroid()
		s.Centroid = orb.Point{c.X(), c.Y()}
	}

	return s, nil
}
