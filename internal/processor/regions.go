package processor

import (
	"fmt"

	"github.com/malariagen/obsetl/internal/config"
	"github.com/malariagen/obsetl/internal/geo"
	"github.com/malariagen/obsetl/internal/region"
	"github.com/malariagen/obsetl/internal/tables"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog/log"
)

// RegionBuilder synthesises region geometries from samples.
type RegionBuilder interface {
	Build(samples []region.Sample, countries map[string]orb.Geometry, extra map[string][]string) (map[string]orb.Geometry, error)
}

// ProcessRegions builds a polygon per sampled region and rewrites the regions
// table with a GeoJSON feature column.
func ProcessRegions(b RegionBuilder, countries map[string]orb.Geometry, cfg *config.Config) error {
	if cfg.Tables.Regions == "" {
		log.Debug().Msg("No regions table configured, skipping")
		return nil
	}

	samplesTbl, err := tables.ReadFile(tables.Path(cfg.OutputDir, cfg.Tables.Samples))
	if err != nil {
		return err
	}
	samples, err := ReadSamples(samplesTbl, cfg.Tables)
	if err != nil {
		return err
	}

	shapes, err := b.Build(samples, countries, cfg.Regions.AdditionalCountries)
	if err != nil {
		return err
	}

	path := tables.Path(cfg.OutputDir, cfg.Tables.Regions)
	regionsTbl, err := tables.ReadFile(path)
	if err != nil {
		return err
	}

	if err := AddRegionGeoJSON(regionsTbl, shapes, cfg.Tables); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	log.Info().
		Int("samples", len(samples)).
		Int("regions", len(regionsTbl.Rows)).
		Int("with_geometry", countNonNil(shapes)).
		Msg("Region geometry written")

	return regionsTbl.WriteFile(path)
}

// AddRegionGeoJSON appends the feature column to the regions table. Regions
// without a shape get a feature with a null geometry.
func AddRegionGeoJSON(tbl *tables.Table, shapes map[string]orb.Geometry, cfg config.Tables) error {
	c := tbl.Column(cfg.RegionField)
	if c < 0 {
		return fmt.Errorf("regions table has no %q column", cfg.RegionField)
	}

	values := make([]string, len(tbl.Rows))
	for i, row := range tbl.Rows {
		id := row[c]
		g, sampled := shapes[id]
		if !sampled {
			log.Warn().Str("region", id).Msg("Region has no samples, writing null geometry")
		}

		feature, err := geo.NewFeature(g).Encode()
		if err != nil {
			return fmt.Errorf("region %s: %w", id, err)
		}
		cell, err := tables.CompactJSON(feature)
		if err != nil {
			return fmt.Errorf("region %s: %w", id, err)
		}
		values[i] = cell
	}

	return tbl.AddColumn(cfg.RegionGeoJSONField, values)
}

func countNonNil(shapes map[string]orb.Geometry) int {
	n := 0
	for _, g := range shapes {
		if g != nil {
			n++
		}
	}
	return n
}
