package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestSetupWriter(t *testing.T) {
	tests := []struct {
		name      string
		opts      Logger
		wantLevel zerolog.Level
	}{
		{name: "debug level", opts: Logger{Level: "debug", Format: "json"}, wantLevel: zerolog.DebugLevel},
		{name: "upper case level", opts: Logger{Level: "WARN", Format: "json"}, wantLevel: zerolog.WarnLevel},
		{name: "unknown level falls back to info", opts: Logger{Level: "loud", Format: "json"}, wantLevel: zerolog.InfoLevel},
		{name: "empty level falls back to info", opts: Logger{Format: "json"}, wantLevel: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.opts.SetupWriter(&buf)

			if got := zerolog.GlobalLevel(); got != tt.wantLevel {
				t.Errorf("GlobalLevel() = %v, want %v", got, tt.wantLevel)
			}
		})
	}
}

func TestSetupWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	Logger{Level: "info", Format: "json"}.SetupWriter(&buf)

	log.Info().Str("region", "WAF").Msg("Region written")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["region"] != "WAF" {
		t.Errorf("region = %v, want WAF", entry["region"])
	}
	if entry["message"] != "Region written" {
		t.Errorf("message = %v, want %q", entry["message"], "Region written")
	}
}
