// Package processor implements the ETL steps run by cmd/etl.
package processor

import (
	"context"
	"fmt"

	"github.com/malariagen/obsetl/internal/config"
	"github.com/malariagen/obsetl/internal/geo"
	"github.com/malariagen/obsetl/internal/tables"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog/log"
)

// Exporter is the part of the Observatory source the export step needs.
type Exporter interface {
	StudyIDs(ctx context.Context) ([]string, error)
	ExportViewFile(ctx context.Context, view, path string) error
}

// CountrySource returns raw country GeoJSON keyed by country id.
type CountrySource interface {
	CountryGeometries(ctx context.Context) (map[string]string, error)
}

// ProcessExport checks the study list and exports every configured view into
// its output table.
func ProcessExport(ctx context.Context, src Exporter, cfg *config.Config) error {
	studies, err := src.StudyIDs(ctx)
	if err != nil {
		return err
	}

	log.Info().
		Int("studies", len(studies)).
		Int("views", len(cfg.Observatory.Views)).
		Msg("Exporting Observatory views")

	for _, v := range cfg.Observatory.Views {
		path := tables.Path(cfg.OutputDir, v.Table)
		if err := src.ExportViewFile(ctx, v.Name, path); err != nil {
			return fmt.Errorf("export %s: %w", v.Name, err)
		}
	}

	return nil
}

// LoadCountries fetches and decodes every country geometry. Countries with
// no GeoJSON map to nil so region synthesis can skip them.
func LoadCountries(ctx context.Context, src CountrySource) (map[string]orb.Geometry, error) {
	raw, err := src.CountryGeometries(ctx)
	if err != nil {
		return nil, err
	}

	return DecodeCountries(raw)
}

// DecodeCountries parses country GeoJSON text.
func DecodeCountries(raw map[string]string) (map[string]orb.Geometry, error) {
	out := make(map[string]orb.Geometry, len(raw))
	for id, gj := range raw {
		g, err := geo.ParseGeometry([]byte(gj))
		if err != nil {
			return nil, fmt.Errorf("country %s: %w", id, err)
		}
		out[id] = g
	}
	return out, nil
}

// ReadCountries loads country GeoJSON from the exported countries table. It
// lets region synthesis run against a previous export without a database.
func ReadCountries(cfg *config.Config) (map[string]orb.Geometry, error) {
	obs := cfg.Observatory
	tbl, err := tables.ReadFile(tables.Path(cfg.OutputDir, obs.CountriesTable))
	if err != nil {
		return nil, err
	}

	idCol, gjCol := tbl.Column(obs.CountryField), tbl.Column(obs.GeoJSONField)
	if idCol < 0 || gjCol < 0 {
		return nil, fmt.Errorf("countries table needs %q and %q columns", obs.CountryField, obs.GeoJSONField)
	}

	raw := make(map[string]string, len(tbl.Rows))
	for _, row := range tbl.Rows {
		raw[row[idCol]] = row[gjCol]
	}

	return DecodeCountries(raw)
}
