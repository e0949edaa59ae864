package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/malariagen/obsetl/internal/boundary"
	"github.com/malariagen/obsetl/internal/config"
	"github.com/malariagen/obsetl/internal/geo"
	"github.com/malariagen/obsetl/internal/logger"
	"github.com/malariagen/obsetl/internal/overpass"
	"github.com/malariagen/obsetl/internal/processor"
	"github.com/malariagen/obsetl/internal/tables"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
	"github.com/twpayne/go-geos"
	"gopkg.in/yaml.v3"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	Input    string `short:"i" long:"in"        description:"Input locations table (tab-delimited). Reads from stdin if empty"`
	Output   string `short:"o" long:"out"       description:"Output file path. Writes to stdout if empty"`
	Format   string `short:"f" long:"format"    description:"Output format" choice:"json" choice:"yaml" default:"json"`
	IDField  string `long:"id-field"            description:"Location id column" default:"location_id"`
	LatField string `long:"lat-field"           description:"Latitude column" default:"latitude"`
	LngField string `long:"lng-field"           description:"Longitude column" default:"longitude"`
	Landmass string `short:"m" long:"landmass"  description:"WKB landmass mask used to clip boundaries"`
	URL      string `short:"u" long:"url"       env:"OVERPASS_URL" description:"Overpass interpreter URL"`
	CacheDir string `long:"cache-dir"           env:"OVERPASS_CACHE_DIR" description:"Overpass cache directory"`
}

// Record is one geocoded location.
type Record struct {
	LocationID string             `json:"location_id" yaml:"location_id"`
	Point      geo.Point          `json:"point" yaml:"point"`
	Province   *boundary.Province `json:"province" yaml:"province"`
	District   *boundary.District `json:"district,omitempty" yaml:"district,omitempty"`
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

	// Read Input
	var in io.Reader = os.Stdin
	if opts.Input != "" {
		f, err := os.Open(opts.Input)
		if err != nil {
			log.Fatal().Err(err).Msg("Error reading input file")
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	tbl, err := tables.Read(in)
	if err != nil {
		log.Fatal().Err(err).Msg("Error parsing input table")
	}

	cfg := config.Default()
	cfg.Landmass = opts.Landmass
	if opts.URL != "" {
		cfg.Overpass.URL = opts.URL
	}
	if opts.CacheDir != "" {
		cfg.Overpass.CacheDir = opts.CacheDir
	}

	cache, err := overpass.OpenSQLiteCache(cfg.Overpass.CacheDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening boundary cache")
	}
	defer func() { _ = cache.Close() }()

	resolver, err := processor.NewResolver(cfg, geos.NewContext(), cache)
	if err != nil {
		log.Fatal().Err(err).Msg("Error building resolver")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	records, err := geocode(ctx, resolver, tbl, opts)
	if err != nil {
		log.Fatal().Err(err).Msg("Geocoding failed")
	}

	// marshal
	var outputData []byte
	if opts.Format == "yaml" {
		outputData, err = yaml.Marshal(records)
	} else {
		outputData, err = json.MarshalIndent(records, "", "  ")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Error marshaling data")
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, outputData, 0644); err != nil {
			log.Fatal().Err(err).Msg("Error writing output file")
		}
		log.Info().
			Int("locations", len(records)).
			Str("path", opts.Output).
			Str("format", opts.Format).
			Msg("Geocoded locations written")
		return
	}

	fmt.Println(string(outputData))
}

func geocode(ctx context.Context, r processor.PointResolver, tbl *tables.Table, opts Options) ([]Record, error) {
	idCol := tbl.Column(opts.IDField)
	latCol := tbl.Column(opts.LatField)
	lngCol := tbl.Column(opts.LngField)
	if latCol < 0 || lngCol < 0 {
		return nil, fmt.Errorf("input needs %q and %q columns", opts.LatField, opts.LngField)
	}

	records := make([]Record, 0, len(tbl.Rows))
	for i, row := range tbl.Rows {
		pt, err := geo.ParsePoint(row[latCol], row[lngCol])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		p, d, err := r.Resolve(ctx, pt)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		rec := Record{Point: pt, Province: p, District: d}
		if idCol >= 0 {
			rec.LocationID = row[idCol]
		}
		records = append(records, rec)
	}

	return records, nil
}
