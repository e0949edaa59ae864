//go:build integration

package overpass

import (
	"context"
	"testing"

	"github.com/malariagen/obsetl/internal/geo"
)

func TestClient_Fetch_Integration(t *testing.T) {
	// Lilongwe, Malawi
	pt := geo.Point{Lat: -13.9626, Lng: 33.7741}

	client := NewClient()

	t.Logf("Querying Overpass for %s", pt)

	rels, err := client.Fetch(context.Background(), pt)
	if err != nil {
		t.Fatalf("Failed to fetch boundaries: %v", err)
	}

	if len(rels) == 0 {
		t.Fatal("No relations returned")
	}

	for _, r := range rels {
		t.Logf("  %d level=%s name=%q name:en=%q ways=%d",
			r.ID, r.Tags.AdminLevel, r.Tags.Name, r.Tags.NameEn, len(r.OuterWays()))
		if r.Tags.AdminLevel == 0 {
			t.Errorf("relation %d has no supported admin level", r.ID)
		}
	}
}
