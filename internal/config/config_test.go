package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

const sampleConfig = `
output_dir: out
landmass: assets/landmass.wkb
overpass:
  url: http://localhost:12345/api/interpreter
  timeout: 30s
  initial_backoff: 1s
  max_retries: 3
observatory:
  host: db.example.org
  database: observatory
  user: reader
  views:
    - name: Samples with types
      table: samples
    - name: Regions
      table: regions
tables:
  regions: regions
  locations: sites
regions:
  additional_countries:
    SEA: [LA]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv(PasswordEnv, "from-env")

	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.OutputDir != "out" {
		t.Errorf("OutputDir = %q", cfg.OutputDir)
	}
	if cfg.Landmass != "assets/landmass.wkb" {
		t.Errorf("Landmass = %q", cfg.Landmass)
	}
	if cfg.Overpass.Timeout != 30*time.Second || cfg.Overpass.InitialBackoff != time.Second {
		t.Errorf("Overpass durations = %v / %v", cfg.Overpass.Timeout, cfg.Overpass.InitialBackoff)
	}
	if cfg.Overpass.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.Overpass.MaxRetries)
	}
	if cfg.Overpass.CacheDir == "" {
		t.Error("CacheDir default lost")
	}
	if cfg.Observatory.Port != 5432 || cfg.Observatory.Schema != "observatory" {
		t.Errorf("Observatory defaults lost: %+v", cfg.Observatory)
	}
	if cfg.Observatory.Password != "from-env" {
		t.Errorf("Password = %q, want value from %s", cfg.Observatory.Password, PasswordEnv)
	}
	if len(cfg.Observatory.Views) != 2 || cfg.Observatory.Views[0].Name != "Samples with types" {
		t.Errorf("Views = %+v", cfg.Observatory.Views)
	}
	if cfg.Tables.Locations != "sites" || cfg.Tables.Samples != "samples" {
		t.Errorf("Tables = %+v", cfg.Tables)
	}
	if got := cfg.Regions.AdditionalCountries; !reflect.DeepEqual(got, map[string][]string{"SEA": {"LA"}}) {
		t.Errorf("AdditionalCountries = %v", got)
	}
}

func TestLoadWithoutLandmass(t *testing.T) {
	cfg, err := Load(writeConfig(t, "output_dir: out\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Landmass != "" {
		t.Errorf("Landmass = %q, want clipping disabled by default", cfg.Landmass)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "invalid yaml", content: "overpass: [unterminated"},
		{name: "bad duration", content: "overpass:\n  timeout: soon\n"},
		{name: "negative retries", content: "overpass:\n  max_retries: -1\n"},
		{name: "view without table", content: "observatory:\n  views:\n    - name: Samples\n"},
		{name: "empty output dir", content: "output_dir: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Errorf("Load() expected error")
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of missing file expected error")
	}
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		obs  Observatory
		want string
	}{
		{
			name: "full",
			obs:  Observatory{Host: "db", Port: 5432, Database: "obs", User: "reader", Password: "p@ss word", SSLMode: "require"},
			want: "postgres://reader:p%40ss%20word@db:5432/obs?sslmode=require",
		},
		{
			name: "no password",
			obs:  Observatory{Host: "localhost", Port: 6543, Database: "obs", User: "reader"},
			want: "postgres://reader@localhost:6543/obs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.obs.DSN(); got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}
