package processor

import (
	"net/http"

	"github.com/malariagen/obsetl/internal/boundary"
	"github.com/malariagen/obsetl/internal/config"
	"github.com/malariagen/obsetl/internal/geo"
	"github.com/malariagen/obsetl/internal/overpass"

	"github.com/rs/zerolog/log"
	"github.com/twpayne/go-geos"
)

// NewResolver wires the Overpass client, boundary reconstruction and landmass
// clipping described by cfg. An empty landmass path disables clipping.
func NewResolver(cfg *config.Config, gctx *geos.Context, cache overpass.Cache) (*boundary.Resolver, error) {
	var landmass *geos.Geom
	if cfg.Landmass != "" {
		var err error
		landmass, err = geo.LoadLandmass(gctx, cfg.Landmass)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("path", cfg.Landmass).Msg("Landmass mask loaded")
	} else {
		log.Warn().Msg("No landmass configured, boundaries will not be clipped")
	}

	retry := overpass.DefaultRetryPolicy()
	if cfg.Overpass.InitialBackoff > 0 {
		retry.Initial = cfg.Overpass.InitialBackoff
	}
	if cfg.Overpass.MaxRetries > 0 {
		retry.MaxAttempts = cfg.Overpass.MaxRetries + 1
	}

	client := overpass.NewClient(
		overpass.WithHTTPClient(&http.Client{
			Transport: overpass.NewLoggingTransport(http.DefaultTransport),
			Timeout:   cfg.Overpass.Timeout,
		}),
		overpass.WithBaseURL(cfg.Overpass.URL),
		overpass.WithCache(cache),
		overpass.WithRetryPolicy(retry),
	)

	return boundary.NewResolver(client, boundary.NewReconstructor(gctx, landmass)), nil
}
