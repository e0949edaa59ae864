package processor

import (
	"context"
	"fmt"
	"strconv"

	"github.com/malariagen/obsetl/internal/boundary"
	"github.com/malariagen/obsetl/internal/config"
	"github.com/malariagen/obsetl/internal/geo"
	"github.com/malariagen/obsetl/internal/tables"

	"github.com/rs/zerolog/log"
)

// Column names added to the locations table and used by the derived tables.
const (
	ProvinceIDField = "province_id"
	DistrictIDField = "district_id"
)

// PointResolver resolves a coordinate to its province and optional district.
type PointResolver interface {
	Resolve(ctx context.Context, pt geo.Point) (*boundary.Province, *boundary.District, error)
}

// ProcessLocations geocodes every row of the locations table, adds the
// province and district id columns and writes the provinces and districts
// tables. The first resolution failure aborts the step.
func ProcessLocations(ctx context.Context, r PointResolver, cfg *config.Config) error {
	if cfg.Tables.Locations == "" {
		log.Debug().Msg("No locations table configured, skipping")
		return nil
	}

	path := tables.Path(cfg.OutputDir, cfg.Tables.Locations)
	locations, err := tables.ReadFile(path)
	if err != nil {
		return err
	}

	provinces, districts, err := ResolveLocations(ctx, r, locations, cfg.Tables)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	if err := locations.WriteFile(path); err != nil {
		return err
	}
	if err := provinces.WriteFile(tables.Path(cfg.OutputDir, cfg.Tables.Provinces)); err != nil {
		return err
	}
	if err := districts.WriteFile(tables.Path(cfg.OutputDir, cfg.Tables.Districts)); err != nil {
		return err
	}

	log.Info().
		Int("locations", len(locations.Rows)).
		Int("provinces", len(provinces.Rows)).
		Int("districts", len(districts.Rows)).
		Msg("Locations geocoded")

	return nil
}

// ResolveLocations adds province_id and district_id to locations and returns
// the de-duplicated provinces and districts it found.
func ResolveLocations(ctx context.Context, r PointResolver, locations *tables.Table, cfg config.Tables) (*tables.Table, *tables.Table, error) {
	latCol := locations.Column(cfg.LocationLatField)
	lngCol := locations.Column(cfg.LocationLngField)
	if latCol < 0 || lngCol < 0 {
		return nil, nil, fmt.Errorf("locations table needs %q and %q columns", cfg.LocationLatField, cfg.LocationLngField)
	}

	provinces := tables.New(ProvinceIDField, "name", "local_name", "latitude", "longitude", "geojson")
	districts := tables.New(DistrictIDField, ProvinceIDField, "name", "local_name", "latitude", "longitude", "geojson")
	seenProvince := map[string]struct{}{}
	seenDistrict := map[string]struct{}{}

	provinceIDs := make([]string, len(locations.Rows))
	districtIDs := make([]string, len(locations.Rows))

	for i, row := range locations.Rows {
		pt, err := geo.ParsePoint(row[latCol], row[lngCol])
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		log.Debug().Str("point", pt.String()).Int("row", i+1).Msg("Resolving location")

		p, d, err := r.Resolve(ctx, pt)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		provinceIDs[i] = p.ProvinceID
		if _, ok := seenProvince[p.ProvinceID]; !ok {
			seenProvince[p.ProvinceID] = struct{}{}
			if err := provinces.Append(p.ProvinceID, p.Name, p.LocalName, formatFloat(p.Latitude), formatFloat(p.Longitude), p.GeoJSON); err != nil {
				return nil, nil, err
			}
		}

		if d == nil {
			continue
		}
		districtIDs[i] = d.DistrictID
		if _, ok := seenDistrict[d.DistrictID]; !ok {
			seenDistrict[d.DistrictID] = struct{}{}
			if err := districts.Append(d.DistrictID, d.ProvinceID, d.Name, d.LocalName, formatFloat(d.Latitude), formatFloat(d.Longitude), d.GeoJSON); err != nil {
				return nil, nil, err
			}
		}
	}

	if err := locations.AddColumn(ProvinceIDField, provinceIDs); err != nil {
		return nil, nil, err
	}
	if err := locations.AddColumn(DistrictIDField, districtIDs); err != nil {
		return nil, nil, err
	}

	return provinces, districts, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
