package store

import "github.com/bbernstein/stationmap/internal/models"

// Snapshot is a settled state together with its derived view. Slices are
// shared with the store and must not be modified.
type Snapshot struct {
	Stations          []models.Station
	FilteredStations  []models.Station
	Cities            []string
	CityFilter        string
	SelectedStationID *int
	SelectedStation   *models.Station
	Loading           bool
	Error             *string

	// StationsVersion increments every time the station list is replaced.
	StationsVersion uint64
}

func (s *Store) Stations() []models.Station {
	return s.Snapshot().Stations
}

func (s *Store) FilteredStations() []models.Station {
	return s.Snapshot().FilteredStations
}

func (s *Store) SelectedStationID() *int {
	return s.Snapshot().SelectedStationID
}

func (s *Store) SelectedStation() *models.Station {
	return s.Snapshot().SelectedStation
}

func (s *Store) CityFilter() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CityFilter
}

func (s *Store) Cities() []string {
	return s.Snapshot().Cities
}

func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Loading
}

// Error returns the message of the last failed fetch, or nil.
func (s *Store) Error() *string {
	return s.Snapshot().Error
}
