// Package region merges country geometries into per-region polygons for the
// observed sample regions.
package region

import (
	"sort"

	"github.com/paulmach/orb"
)

// Sample is one observed sample row reduced to what region synthesis needs.
type Sample struct {
	RegionID  string
	CountryID string
	Lon       float64
	Lat       float64
}

// Point returns the sample location in lon/lat order.
func (s Sample) Point() orb.Point {
	return orb.Point{s.Lon, s.Lat}
}

// AssignCountries maps every observed country to its modal region, the
// region with the most samples for that country. Ties go to the lexically
// smallest region id.
func AssignCountries(samples []Sample) map[string]string {
	counts := make(map[string]map[string]int)
	for _, s := range samples {
		byRegion, ok := counts[s.CountryID]
		if !ok {
			byRegion = make(map[string]int)
			counts[s.CountryID] = byRegion
		}
		byRegion[s.RegionID]++
	}

	assigned := make(map[string]string, len(counts))
	for country, byRegion := range counts {
		best, bestN := "", -1
		for region, n := range byRegion {
			if n > bestN || (n == bestN && region < best) {
				best, bestN = region, n
			}
		}
		assigned[country] = best
	}

	return assigned
}

// CountriesByRegion lists the countries assigned to each region seen in
// samples, plus any extra countries configured for that region. Every region
// present in samples gets an entry, even when all of its countries were
// assigned elsewhere. Country lists are sorted and free of duplicates.
func CountriesByRegion(samples []Sample, assigned map[string]string, extra map[string][]string) map[string][]string {
	sets := make(map[string]map[string]struct{})
	for _, s := range samples {
		if _, ok := sets[s.RegionID]; !ok {
			sets[s.RegionID] = make(map[string]struct{})
		}
	}
	for country, region := range assigned {
		if set, ok := sets[region]; ok {
			set[country] = struct{}{}
		}
	}
	for region, countries := range extra {
		set, ok := sets[region]
		if !ok {
			continue
		}
		for _, c := range countries {
			set[c] = struct{}{}
		}
	}

	out := make(map[string][]string, len(sets))
	for region, set := range sets {
		list := make([]string, 0, len(set))
		for c := range set {
			list = append(list, c)
		}
		sort.Strings(list)
		out[region] = list
	}

	return out
}
