package view

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bbernstein/stationmap/internal/models"
)

// Memo caches FilterByCity results for one version of the station list.
// Any change of version drops every entry.
type Memo struct {
	lru     *lru.Cache[string, []models.Station]
	version uint64
	hits    uint64
	misses  uint64
	mu      sync.Mutex
}

func NewMemo(size int) (*Memo, error) {
	cache, err := lru.New[string, []models.Station](size)
	if err != nil {
		return nil, fmt.Errorf("creating LRU cache: %w", err)
	}
	return &Memo{lru: cache}, nil
}

// FilterByCity returns the memoized filter result for city against the
// station list identified by version. The empty filter is never cached so
// the identity of stations is preserved.
func (m *Memo) FilterByCity(version uint64, stations []models.Station, city string) []models.Station {
	if city == "" {
		return stations
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if version != m.version {
		m.lru.Purge()
		m.version = version
	}

	if filtered, ok := m.lru.Get(city); ok {
		m.hits++
		return filtered
	}
	m.misses++

	filtered := FilterByCity(stations, city)
	m.lru.Add(city, filtered)
	return filtered
}

// Stats returns hit and miss counters since creation.
func (m *Memo) Stats() map[string]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return map[string]uint64{
		"hits":   m.hits,
		"misses": m.misses,
	}
}
