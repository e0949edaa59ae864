// Package boundary reconstructs administrative boundary polygons from
// Overpass relations and resolves a point to its province and district.
package boundary

import (
	"context"
	"fmt"

	"github.com/malariagen/obsetl/internal/geo"
	"github.com/malariagen/obsetl/internal/overpass"

	"github.com/rs/zerolog/log"
)

// Fetcher returns the boundary relations enclosing a point.
type Fetcher interface {
	Fetch(ctx context.Context, pt geo.Point) ([]overpass.Relation, error)
}

// ShapeBuilder reconstructs a relation polygon.
type ShapeBuilder interface {
	Shape(rel overpass.Relation) (Shape, error)
}

// Area is one resolved admin level before it is labelled province or district.
type Area struct {
	ID        string
	Name      string
	LocalName string
	Latitude  float64
	Longitude float64
	GeoJSON   string
}

// Province is the coarser resolved level.
type Province struct {
	ProvinceID string  `json:"province_id" yaml:"province_id"`
	Name       string  `json:"name" yaml:"name"`
	LocalName  string  `json:"local_name" yaml:"local_name"`
	Latitude   float64 `json:"latitude" yaml:"latitude"`
	Longitude  float64 `json:"longitude" yaml:"longitude"`
	GeoJSON    string  `json:"geojson" yaml:"geojson"`
}

// District is the finer resolved level. It may copy the province area when
// the country has no finer level.
type District struct {
	DistrictID string  `json:"district_id" yaml:"district_id"`
	ProvinceID string  `json:"province_id" yaml:"province_id"`
	Name       string  `json:"name" yaml:"name"`
	LocalName  string  `json:"local_name" yaml:"local_name"`
	Latitude   float64 `json:"latitude" yaml:"latitude"`
	Longitude  float64 `json:"longitude" yaml:"longitude"`
	GeoJSON    string  `json:"geojson" yaml:"geojson"`
}

// Resolver maps points to province and district records.
type Resolver struct {
	fetcher Fetcher
	shapes  ShapeBuilder
}

// NewResolver returns a Resolver using f for relations and s for polygons.
func NewResolver(f Fetcher, s ShapeBuilder) *Resolver {
	return &Resolver{fetcher: f, shapes: s}
}

// Resolve returns the province and, when one exists, the district enclosing pt.
// A *LookupError is returned when no level can serve as province.
func (r *Resolver) Resolve(ctx context.Context, pt geo.Point) (*Province, *District, error) {
	rels, err := r.fetcher.Fetch(ctx, pt)
	if err != nil {
		return nil, nil, err
	}

	areas, err := r.Areas(rels)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve %s: %w", pt, err)
	}

	prov, dist, ok := SelectLevels(areas)
	if !ok {
		return nil, nil, &LookupError{Lat: pt.Lat, Lng: pt.Lng}
	}

	province := &Province{
		ProvinceID: prov.ID,
		Name:       prov.Name,
		LocalName:  prov.LocalName,
		Latitude:   prov.Latitude,
		Longitude:  prov.Longitude,
		GeoJSON:    prov.GeoJSON,
	}

	if dist == nil {
		log.Debug().
			Str("point", pt.String()).
			Str("province_id", province.ProvinceID).
			Msg("No district level available")
		return province, nil, nil
	}

	district := &District{
		DistrictID: dist.ID,
		ProvinceID: province.ProvinceID,
		Name:       dist.Name,
		LocalName:  dist.LocalName,
		Latitude:   dist.Latitude,
		Longitude:  dist.Longitude,
		GeoJSON:    dist.GeoJSON,
	}

	return province, district, nil
}

// Areas builds one Area per supported admin level. When a level appears more
// than once the last relation wins.
func (r *Resolver) Areas(rels []overpass.Relation) (map[overpass.AdminLevel]Area, error) {
	areas := make(map[overpass.AdminLevel]Area, len(rels))

	for _, rel := range rels {
		if rel.Tags.AdminLevel == 0 {
			continue
		}

		shape, err := r.shapes.Shape(rel)
		if err != nil {
			return nil, err
		}

		gj, err := geo.GeometryJSON(shape.Geometry)
		if err != nil {
			return nil, fmt.Errorf("relation %d: %w", rel.ID, err)
		}

		english := rel.Tags.EnglishName()
		areas[rel.Tags.AdminLevel] = Area{
			ID:        MakeID(english, rel.ID),
			Name:      CleanName(english),
			LocalName: rel.Tags.Name,
			Latitude:  shape.Centroid.Lat(),
			Longitude: shape.Centroid.Lon(),
			GeoJSON:   gj,
		}
	}

	return areas, nil
}

// SelectLevels applies the province/district priority rules:
//
//	province: 4, else 3, else 5
//	district: 6, else 5, else a copy of 4, else a copy of 3
//
// Level 5 only serves as district when it was not taken as province, and the
// copies are likewise skipped in that case. ok is false when no province exists.
func SelectLevels(areas map[overpass.AdminLevel]Area) (province Area, district *Area, ok bool) {
	fiveUsed := false

	if a, found := areas[overpass.AdminLevel4]; found {
		province = a
	} else if a, found := areas[overpass.AdminLevel3]; found {
		province = a
	} else if a, found := areas[overpass.AdminLevel5]; found {
		province = a
		fiveUsed = true
	} else {
		return Area{}, nil, false
	}

	if a, found := areas[overpass.AdminLevel6]; found {
		district = &a
	} else if fiveUsed {
		district = nil
	} else if a, found := areas[overpass.AdminLevel5]; found {
		district = &a
	} else if a, found := areas[overpass.AdminLevel4]; found {
		district = &a
	} else if a, found := areas[overpass.AdminLevel3]; found {
		district = &a
	}

	return province, district, true
}
