// Package geo handles geographic data structures, GeoJSON encoding and the
// bridge between orb geometries and GEOS.
package geo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Feature is a GeoJSON feature with a possibly null geometry.
// orb's own Feature cannot carry a null geometry, which the regions table needs.
type Feature struct {
	Type       string            `json:"type"`
	Geometry   *geojson.Geometry `json:"geometry"`
	Properties map[string]any    `json:"properties"`
}

// NewFeature wraps g in a feature with empty properties. A nil g yields a null geometry.
func NewFeature(g orb.Geometry) Feature {
	f := Feature{
		Type:       "Feature",
		Properties: map[string]any{},
	}
	if g != nil {
		f.Geometry = geojson.NewGeometry(g)
	}

	return f
}

// Encode returns the compact JSON encoding of the feature. Coordinates JSON
// cannot represent, such as NaN, are an error.
func (f Feature) Encode() (string, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("encode feature: %w", err)
	}
	return string(b), nil
}

// GeometryJSON returns the bare GeoJSON geometry object for g.
func GeometryJSON(g orb.Geometry) (string, error) {
	if g == nil {
		return "null", nil
	}

	b, err := geojson.NewGeometry(g).MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("encode geometry: %w", err)
	}

	return string(b), nil
}

// ParseGeometry decodes a GeoJSON geometry, Feature or FeatureCollection.
// Collections are flattened into an orb.Collection of their feature geometries.
// Blank input yields a nil geometry and no error.
func ParseGeometry(raw []byte) (orb.Geometry, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}

	switch head.Type {
	case "Feature":
		f, err := geojson.UnmarshalFeature(raw)
		if err != nil {
			return nil, fmt.Errorf("decode feature: %w", err)
		}
		return f.Geometry, nil

	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(raw)
		if err != nil {
			return nil, fmt.Errorf("decode feature collection: %w", err)
		}
		var c orb.Collection
		for _, f := range fc.Features {
			if f.Geometry != nil {
				c = append(c, f.Geometry)
			}
		}
		if len(c) == 0 {
			return nil, nil
		}
		return c, nil

	case "":
		return nil, errors.New("decode geojson: missing type")
	}

	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return nil, fmt.Errorf("decode geometry: %w", err)
	}

	return g.Geometry(), nil
}
