package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/malariagen/obsetl/internal/config"
	"github.com/malariagen/obsetl/internal/logger"
	"github.com/malariagen/obsetl/internal/observatory"
	"github.com/malariagen/obsetl/internal/overpass"
	"github.com/malariagen/obsetl/internal/processor"
	"github.com/malariagen/obsetl/internal/region"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/paulmach/orb"
	"github.com/rs/zerolog/log"
	"github.com/twpayne/go-geos"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile      string `short:"c" long:"config"           env:"CONFIG_FILE" description:"Path to configuration file" default:"config.yaml"`
	EnvFile         string `short:"e" long:"env-file"         env:"ENV_FILE"    description:"Optional .env file with secrets" default:".env"`
	OutputDir       string `short:"o" long:"output"           env:"OUTPUT_DIR"  description:"Override the output directory"`
	CacheDir        string `long:"cache-dir"                  env:"OVERPASS_CACHE_DIR" description:"Override the Overpass cache directory"`
	MaxRetries      int    `long:"max-retries"                env:"OVERPASS_MAX_RETRIES" description:"Retry cap for throttled Overpass requests (0 retries forever)" default:"-1"`
	SkipObservatory bool   `long:"skip-observatory"           description:"Reuse previously exported tables instead of querying the database"`
	SkipLocations   bool   `long:"skip-locations"             description:"Do not geocode the locations table"`
	SkipRegions     bool   `long:"skip-regions"               description:"Do not build region geometry"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	if err := godotenv.Load(opts.EnvFile); err != nil {
		log.Debug().Str("path", opts.EnvFile).Msg("No env file loaded, using process environment")
	}

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if opts.OutputDir != "" {
		cfg.OutputDir = opts.OutputDir
	}
	if opts.CacheDir != "" {
		cfg.Overpass.CacheDir = opts.CacheDir
	}
	if opts.MaxRetries >= 0 {
		cfg.Overpass.MaxRetries = opts.MaxRetries
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.Info().
		Str("output", cfg.OutputDir).
		Int("views", len(cfg.Observatory.Views)).
		Bool("skip_observatory", opts.SkipObservatory).
		Bool("skip_locations", opts.SkipLocations).
		Bool("skip_regions", opts.SkipRegions).
		Msg("Starting ETL")

	var countries map[string]orb.Geometry
	if opts.SkipObservatory {
		if !opts.SkipRegions && cfg.Tables.Regions != "" {
			countries, err = processor.ReadCountries(cfg)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to read exported countries")
			}
		}
	} else {
		countries, err = exportObservatory(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to export Observatory")
		}
	}

	if err := processor.ProcessSamples(cfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to process samples")
	}

	gctx := geos.NewContext()

	if !opts.SkipLocations {
		if err := geocodeLocations(ctx, cfg, gctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to process locations")
		}
	}

	if !opts.SkipRegions {
		if err := processor.ProcessRegions(region.NewSynthesizer(gctx), countries, cfg); err != nil {
			log.Fatal().Err(err).Msg("Failed to process regions")
		}
	}

	log.Info().Msg("ETL finished successfully")
}

func exportObservatory(ctx context.Context, cfg *config.Config) (map[string]orb.Geometry, error) {
	src, err := observatory.Connect(ctx, cfg.Observatory)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	if err := processor.ProcessExport(ctx, src, cfg); err != nil {
		return nil, err
	}

	return processor.LoadCountries(ctx, src)
}

func geocodeLocations(ctx context.Context, cfg *config.Config, gctx *geos.Context) error {
	if cfg.Tables.Locations == "" {
		return nil
	}

	cache, err := overpass.OpenSQLiteCache(cfg.Overpass.CacheDir)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := cache.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("Failed to close boundary cache")
		}
	}()

	resolver, err := processor.NewResolver(cfg, gctx, cache)
	if err != nil {
		return err
	}

	return processor.ProcessLocations(ctx, resolver, cfg)
}
