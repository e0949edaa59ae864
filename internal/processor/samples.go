package processor

import (
	"fmt"

	"github.com/malariagen/obsetl/internal/config"
	"github.com/malariagen/obsetl/internal/geo"
	"github.com/malariagen/obsetl/internal/region"
	"github.com/malariagen/obsetl/internal/tables"

	"github.com/rs/zerolog/log"
)

// ProcessSamples rewrites PostgreSQL boolean cells ("t"/"f") in the samples
// table as "True"/"False".
func ProcessSamples(cfg *config.Config) error {
	if len(cfg.Tables.SampleBoolFields) == 0 {
		return nil
	}

	path := tables.Path(cfg.OutputDir, cfg.Tables.Samples)
	tbl, err := tables.ReadFile(path)
	if err != nil {
		return err
	}

	changed := NormalizeBools(tbl, cfg.Tables.SampleBoolFields)
	if changed == 0 {
		log.Debug().Str("path", path).Msg("No boolean cells to rewrite")
		return nil
	}

	log.Info().
		Str("table", cfg.Tables.Samples).
		Int("cells", changed).
		Msg("Rewrote boolean cells")

	return tbl.WriteFile(path)
}

// NormalizeBools rewrites the named columns to "True" or "False" and returns
// how many cells changed. "t" and "True" are true, anything else including an
// empty cell is false. Missing columns are ignored.
func NormalizeBools(tbl *tables.Table, columns []string) int {
	changed := 0
	for _, name := range columns {
		c := tbl.Column(name)
		if c < 0 {
			continue
		}
		for _, row := range tbl.Rows {
			v := "False"
			if row[c] == "t" || row[c] == "True" {
				v = "True"
			}
			if row[c] != v {
				row[c] = v
				changed++
			}
		}
	}
	return changed
}

// ReadSamples extracts region synthesis input from the samples table. Every
// row must carry the region and country columns.
func ReadSamples(tbl *tables.Table, cfg config.Tables) ([]region.Sample, error) {
	cols := map[string]int{}
	for _, name := range []string{cfg.SampleRegionField, cfg.SampleCountryField, cfg.SampleLatField, cfg.SampleLngField} {
		c := tbl.Column(name)
		if c < 0 {
			return nil, fmt.Errorf("samples table has no %q column", name)
		}
		cols[name] = c
	}

	samples := make([]region.Sample, 0, len(tbl.Rows))
	for i, row := range tbl.Rows {
		regionID := row[cols[cfg.SampleRegionField]]
		countryID := row[cols[cfg.SampleCountryField]]
		if regionID == "" || countryID == "" {
			return nil, fmt.Errorf("samples row %d: missing region or country", i+1)
		}

		pt, err := geo.ParsePoint(row[cols[cfg.SampleLatField]], row[cols[cfg.SampleLngField]])
		if err != nil {
			return nil, fmt.Errorf("samples row %d: %w", i+1, err)
		}

		samples = append(samples, region.Sample{
			RegionID:  regionID,
			CountryID: countryID,
			Lon:       pt.Lng,
			Lat:       pt.Lat,
		})
	}

	return samples, nil
}
