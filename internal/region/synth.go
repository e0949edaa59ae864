package region

import (
	"fmt"
	"sort"

	"github.com/malariagen/obsetl/internal/geo"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog/log"
	"github.com/twpayne/go-geos"
)

// Defaults for the morphological cleanup, in degrees.
const (
	DefaultBufferDistance    = 0.001
	DefaultSimplifyTolerance = 0.1

	bufferQuadSegs   = 16
	bufferMitreLimit = 5.0
)

// Synthesizer builds region polygons from country geometries.
type Synthesizer struct {
	gctx *geos.Context

	BufferDistance    float64
	SimplifyTolerance float64
}

// NewSynthesizer returns a Synthesizer with the default cleanup parameters.
func NewSynthesizer(gctx *geos.Context) *Synthesizer {
	return &Synthesizer{
		gctx:              gctx,
		BufferDistance:    DefaultBufferDistance,
		SimplifyTolerance: DefaultSimplifyTolerance,
	}
}

// Build returns one geometry per region observed in samples. A region whose
// countries have no usable geometry, or whose parts hold no sample, maps to nil.
// extra lists additional country ids per region that are merged in regardless
// of samples.
func (s *Synthesizer) Build(samples []Sample, countries map[string]orb.Geometry, extra map[string][]string) (map[string]orb.Geometry, error) {
	byRegion := CountriesByRegion(samples, AssignCountries(samples), extra)

	points := s.samplePoints(samples)

	regionIDs := make([]string, 0, len(byRegion))
	for id := range byRegion {
		regionIDs = append(regionIDs, id)
	}
	sort.Strings(regionIDs)

	out := make(map[string]orb.Geometry, len(regionIDs))
	for _, regionID := range regionIDs {
		g, err := s.region(regionID, byRegion[regionID], countries, points)
		if err != nil {
			return nil, err
		}
		out[regionID] = g
	}

	return out, nil
}

func (s *Synthesizer) region(regionID string, countryIDs []string, countries map[string]orb.Geometry, points []*geos.Geom) (orb.Geometry, error) {
	parts := make([]*geos.Geom, 0, len(countryIDs))
	for _, countryID := range countryIDs {
		cg, ok := countries[countryID]
		if !ok || cg == nil {
			log.Warn().
				Str("region", regionID).
				Str("country", countryID).
				Msg("No geometry for country, skipping")
			continue
		}

		g, err := geo.ToGEOS(s.gctx, cg)
		if err != nil {
			return nil, fmt.Errorf("region %s country %s: %w", regionID, countryID, err)
		}
		if g.IsEmpty() {
			log.Warn().
				Str("region", regionID).
				Str("country", countryID).
				Msg("Empty geometry for country, skipping")
			continue
		}
		parts = append(parts, g)
	}

	if len(parts) == 0 {
		log.Info().Str("region", regionID).Msg("Region has no country geometry")
		return nil, nil
	}

	merged := s.gctx.NewCollection(geos.TypeIDGeometryCollection, parts).UnaryUnion()
	cleaned := s.Clean(merged)
	kept := s.KeepSampled(cleaned, points)

	log.Debug().
		Str("region", regionID).
		Int("countries", len(parts)).
		Int("parts", cleaned.NumGeometries()).
		Bool("empty", kept == nil).
		Msg("Region geometry built")

	if kept == nil {
		return nil, nil
	}

	return geo.FromGEOS(kept)
}

// Clean buffers g outward then inward with mitre joins and simplifies the
// result without collapsing small rings.
func (s *Synthesizer) Clean(g *geos.Geom) *geos.Geom {
	d := s.BufferDistance
	out := g.BufferWithStyle(d, bufferQuadSegs, geos.BufCapStyleRound, geos.BufJoinStyleMitre, bufferMitreLimit)
	out = out.BufferWithStyle(-d, bufferQuadSegs, geos.BufCapStyleRound, geos.BufJoinStyleMitre, bufferMitreLimit)
	return out.TopologyPreserveSimplify(s.SimplifyTolerance)
}

// KeepSampled unions the polygonal parts of g that contain at least one of
// points. It returns nil when no part does.
func (s *Synthesizer) KeepSampled(g *geos.Geom, points []*geos.Geom) *geos.Geom {
	if g == nil || g.IsEmpty() {
		return nil
	}

	n := g.NumGeometries()
	kept := make([]*geos.Geom, 0, n)
	for i := 0; i < n; i++ {
		part := g.Geometry(i)
		for _, p := range points {
			if part.Contains(p) {
				kept = append(kept, part.Clone())
				break
			}
		}
	}

	if len(kept) == 0 {
		return nil
	}

	return s.gctx.NewCollection(geos.TypeIDMultiPolygon, kept).UnaryUnion()
}

func (s *Synthesizer) samplePoints(samples []Sample) []*geos.Geom {
	seen := make(map[orb.Point]struct{}, len(samples))
	points := make([]*geos.Geom, 0, len(samples))
	for _, smp := range samples {
		p := smp.Point()
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		points = append(points, s.gctx.NewPoint([]float64{p[0], p[1]}))
	}
	return points
}
