// Package config handles configuration loading and shared data structures.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// PasswordEnv names the environment variable holding the Observatory password.
const PasswordEnv = "OBSERVATORY_DB_PASSWORD"

// Config represents the root configuration file structure.
type Config struct {
	OutputDir   string      `yaml:"output_dir" json:"output_dir"`
	Landmass    string      `yaml:"landmass" json:"landmass"`
	Overpass    Overpass    `yaml:"overpass" json:"overpass"`
	Observatory Observatory `yaml:"observatory" json:"observatory"`
	Tables      Tables      `yaml:"tables" json:"tables"`
	Regions     Regions     `yaml:"regions" json:"regions"`
}

// Overpass configures the boundary service client and its cache.
type Overpass struct {
	URL            string        `yaml:"url" json:"url"`
	CacheDir       string        `yaml:"cache_dir,omitempty" json:"cache_dir,omitempty"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`
	InitialBackoff time.Duration `yaml:"initial_backoff" json:"initial_backoff"`
	MaxRetries     int           `yaml:"max_retries,omitempty" json:"max_retries,omitempty"` // 0 retries forever
}

// Observatory describes the relational source of the exported views.
type Observatory struct {
	Host     string `yaml:"host" json:"host"`
	Database string `yaml:"database" json:"database"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password,omitempty" json:"-"`
	SSLMode  string `yaml:"sslmode,omitempty" json:"sslmode,omitempty"`
	Schema   string `yaml:"schema" json:"schema"`
	Port     int    `yaml:"port,omitempty" json:"port,omitempty"`

	StudiesView string `yaml:"studies_view" json:"studies_view"`
	StudyField  string `yaml:"study_field" json:"study_field"`

	// Views are exported verbatim, each into its own output table.
	Views []View `yaml:"views" json:"views"`

	CountriesTable string `yaml:"countries_table" json:"countries_table"`
	CountryField   string `yaml:"country_field" json:"country_field"`
	GeoJSONField   string `yaml:"geojson_field" json:"geojson_field"`
}

// View maps a database view to an output table name.
type View struct {
	Name  string `yaml:"name" json:"name"`
	Table string `yaml:"table" json:"table"`
}

// Tables names the output tables and the columns the driver reads.
type Tables struct {
	Samples            string   `yaml:"samples" json:"samples"`
	SampleRegionField  string   `yaml:"sample_region_field" json:"sample_region_field"`
	SampleCountryField string   `yaml:"sample_country_field" json:"sample_country_field"`
	SampleLatField     string   `yaml:"sample_lat_field" json:"sample_lat_field"`
	SampleLngField     string   `yaml:"sample_lng_field" json:"sample_lng_field"`
	SampleBoolFields   []string `yaml:"sample_bool_fields,omitempty" json:"sample_bool_fields,omitempty"`

	// Optional tables; empty disables the step that rewrites them.
	Regions   string `yaml:"regions,omitempty" json:"regions,omitempty"`
	Locations string `yaml:"locations,omitempty" json:"locations,omitempty"`

	RegionField        string `yaml:"region_field" json:"region_field"`
	RegionGeoJSONField string `yaml:"region_geojson_field" json:"region_geojson_field"`

	LocationLatField string `yaml:"location_lat_field" json:"location_lat_field"`
	LocationLngField string `yaml:"location_lng_field" json:"location_lng_field"`

	Provinces string `yaml:"provinces" json:"provinces"`
	Districts string `yaml:"districts" json:"districts"`
}

// Regions holds static additions to the sample-derived region membership.
type Regions struct {
	AdditionalCountries map[string][]string `yaml:"additional_countries,omitempty" json:"additional_countries,omitempty"`
}

// Default returns the configuration used for any value the file leaves unset.
func Default() *Config {
	return &Config{
		OutputDir: "output",
		Overpass: Overpass{
			URL:            "http://overpass-api.de/api/interpreter",
			CacheDir:       filepath.Join(os.TempDir(), "overpass_cache"),
			Timeout:        3 * time.Minute,
			InitialBackoff: 5 * time.Second,
		},
		Observatory: Observatory{
			Port:           5432,
			SSLMode:        "require",
			Schema:         "observatory",
			StudyField:     "study",
			CountriesTable: "countries",
			CountryField:   "country_id",
			GeoJSONField:   "geojson",
		},
		Tables: Tables{
			Samples:            "samples",
			SampleRegionField:  "region_id",
			SampleCountryField: "country_id",
			SampleLatField:     "lat",
			SampleLngField:     "lng",
			SampleBoolFields:   []string{"qc_pass"},
			RegionField:        "region_id",
			RegionGeoJSONField: "geojson",
			LocationLatField:   "lat",
			LocationLngField:   "lng",
			Provinces:          "provinces",
			Districts:          "districts",
		},
	}
}

// Load reads and parses the YAML configuration file from the specified path
// on top of Default. The Observatory password falls back to PasswordEnv.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if cfg.Observatory.Password == "" {
		cfg.Observatory.Password = os.Getenv(PasswordEnv)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Validate reports configuration the driver cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.OutputDir == "" {
		errs = append(errs, errors.New("output_dir is required"))
	}
	if c.Overpass.MaxRetries < 0 {
		errs = append(errs, errors.New("overpass.max_retries must not be negative"))
	}
	for i, v := range c.Observatory.Views {
		if v.Name == "" || v.Table == "" {
			errs = append(errs, fmt.Errorf("observatory.views[%d] needs name and table", i))
		}
	}
	if c.Tables.Samples == "" {
		errs = append(errs, errors.New("tables.samples is required"))
	}

	return errors.Join(errs...)
}

// DSN builds the connection URL of the Observatory database.
func (o Observatory) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(o.Host, strconv.Itoa(o.Port)),
		Path:   "/" + o.Database,
	}
	if o.Password != "" {
		u.User = url.UserPassword(o.User, o.Password)
	} else if o.User != "" {
		u.User = url.User(o.User)
	}
	if o.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {o.SSLMode}}.Encode()
	}
	return u.String()
}
