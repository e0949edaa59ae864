package geo

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/twpayne/go-geos"
)

// ToGEOS converts an orb geometry into a GEOS geometry owned by gctx.
func ToGEOS(gctx *geos.Context, g orb.Geometry) (*geos.Geom, error) {
	b, err := wkb.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("encode wkb: %w", err)
	}

	gg, err := gctx.NewGeomFromWKB(b)
	if err != nil {
		return nil, fmt.Errorf("decode wkb into geos: %w", err)
	}

	return gg, nil
}

// FromGEOS converts a GEOS geometry back into orb. Empty geometries yield nil.
func FromGEOS(g *geos.Geom) (orb.Geometry, error) {
	if g == nil || g.IsEmpty() {
		return nil, nil
	}

	og, err := wkb.Unmarshal(g.ToWKB())
	if err != nil {
		return nil, fmt.Errorf("decode wkb from geos: %w", err)
	}

	return og, nil
}

// LoadLandmass reads the prebuilt WKB landmass mask.
// The returned geometry is shared read-only by every boundary reconstruction.
func LoadLandmass(gctx *geos.Context, path string) (*geos.Geom, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read landmass: %w", err)
	}

	g, err := gctx.NewGeomFromWKB(data)
	if err != nil {
		return nil, fmt.Errorf("parse landmass %s: %w", path, err)
	}
	if g.IsEmpty() {
		return nil, fmt.Errorf("landmass %s is empty", path)
	}

	return g, nil
}
