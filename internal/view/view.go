// Package view derives the list and map projections from raw station state.
// Everything here is a pure function of its inputs; nothing mutates them.
package view

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/bbernstein/stationmap/internal/models"
)

// Cities returns the distinct city names in ascending, case- and
// accent-insensitive order. Only exact duplicates collapse, so "Berlin" and
// "berlin" are both kept and end up adjacent in first-seen order.
func Cities(stations []models.Station) []string {
	seen := make(map[string]struct{}, len(stations))
	cities := make([]string, 0)
	for _, s := range stations {
		if _, ok := seen[s.City]; ok {
			continue
		}
		seen[s.City] = struct{}{}
		cities = append(cities, s.City)
	}

	// collate.Collator keeps scratch buffers and is not safe for concurrent use
	collator := collate.New(language.Und, collate.Loose)
	sort.SliceStable(cities, func(i, j int) bool {
		return collator.CompareString(cities[i], cities[j]) < 0
	})
	return cities
}

// FilterByCity returns the stations whose city equals city exactly.
// An empty city returns stations itself, not a copy.
func FilterByCity(stations []models.Station, city string) []models.Station {
	if city == "" {
		return stations
	}

	filtered := make([]models.Station, 0)
	for _, s := range stations {
		if s.City == city {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// SelectedStation returns the first station with the given id, or nil when
// id is nil or no longer present.
func SelectedStation(stations []models.Station, id *int) *models.Station {
	if id == nil {
		return nil
	}
	for i := range stations {
		if stations[i].ID == *id {
			station := stations[i]
			return &station
		}
	}
	return nil
}

// ContainsStation reports whether a station with the given id is present.
func ContainsStation(stations []models.Station, id int) bool {
	for _, s := range stations {
		if s.ID == id {
			return true
		}
	}
	return false
}
