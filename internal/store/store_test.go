package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bbernstein/stationmap/internal/metrics"
	"github.com/bbernstein/stationmap/internal/models"
	"github.com/bbernstein/stationmap/internal/station"
	"github.com/bbernstein/stationmap/internal/view"
)

var sampleStations = []models.Station{
	{ID: 1, Name: "Berlin Hbf", City: "Berlin", Lat: 52.5251, Lng: 13.3694},
	{ID: 2, Name: "Hamburg Hbf", City: "Hamburg", Lat: 53.553, Lng: 10.0067},
	{ID: 3, Name: "Berlin Ostbahnhof", City: "Berlin", Lat: 52.5108, Lng: 13.4348},
}

var munichStations = []models.Station{
	{ID: 10, Name: "München Hbf", City: "München", Lat: 48.1402, Lng: 11.5586},
}

type fetchResult struct {
	stations []models.Station
	err      error
}

// fetchCall is one Fetch blocked until the test resolves it. It ignores
// cancellation on purpose, like a transport that finishes anyway.
type fetchCall struct {
	ctx    context.Context
	result chan fetchResult
}

func (c *fetchCall) resolve(stations []models.Station, err error) {
	c.result <- fetchResult{stations: stations, err: err}
}

type controlledSource struct {
	calls chan *fetchCall
}

func newControlledSource() *controlledSource {
	return &controlledSource{calls: make(chan *fetchCall, 16)}
}

func (c *controlledSource) Fetch(ctx context.Context) ([]models.Station, error) {
	call := &fetchCall{ctx: ctx, result: make(chan fetchResult, 1)}
	c.calls <- call
	r := <-call.result
	return r.stations, r.err
}

func (c *controlledSource) next(t *testing.T) *fetchCall {
	t.Helper()
	select {
	case call := <-c.calls:
		return call
	case <-time.After(time.Second):
		t.Fatal("no fetch was issued")
		return nil
	}
}

func intPtr(i int) *int {
	return &i
}

// loadedStore returns a store that has completed one fetch of stations.
func loadedStore(t *testing.T, stations []models.Station, opts ...Option) (*Store, *controlledSource) {
	t.Helper()
	source := newControlledSource()
	s := New(source, opts...)
	t.Cleanup(s.Close)

	s.Start()
	source.next(t).resolve(stations, nil)
	s.Wait()
	require.False(t, s.Loading())
	return s, source
}

func TestStore_InitialState(t *testing.T) {
	s := New(newControlledSource())
	defer s.Close()

	snap := s.Snapshot()
	assert.True(t, snap.Loading)
	assert.NotNil(t, snap.Stations)
	assert.Empty(t, snap.Stations)
	assert.Empty(t, snap.Cities)
	assert.Equal(t, "", snap.CityFilter)
	assert.Nil(t, snap.SelectedStationID)
	assert.Nil(t, snap.Error)
}

func TestStore_LoadSuccess(t *testing.T) {
	s, _ := loadedStore(t, sampleStations)

	snap := s.Snapshot()
	assert.False(t, snap.Loading)
	assert.Nil(t, snap.Error)
	assert.Equal(t, sampleStations, snap.Stations)
	assert.Equal(t, []string{"Berlin", "Hamburg"}, snap.Cities)
	assert.Equal(t, uint64(1), snap.StationsVersion)
	assert.Len(t, s.FilteredStations(), 3)
}

func TestStore_OverlappingFetches(t *testing.T) {
	tests := []struct {
		name      string
		firstErr  error
		resolveIn []int
	}{
		{name: "first resolves after second", resolveIn: []int{2, 1}},
		{name: "first resolves before second", resolveIn: []int{1, 2}},
		{name: "first fails after second", firstErr: errors.New("boom"), resolveIn: []int{2, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := newControlledSource()
			s := New(source)
			defer s.Close()

			s.Start()
			first := source.next(t)
			s.Refresh()
			second := source.next(t)

			assert.ErrorIs(t, first.ctx.Err(), context.Canceled)
			assert.NoError(t, second.ctx.Err())

			for _, n := range tt.resolveIn {
				if n == 1 {
					if tt.firstErr != nil {
						first.resolve(nil, tt.firstErr)
					} else {
						first.resolve(sampleStations, nil)
					}
					continue
				}
				second.resolve(munichStations, nil)
			}
			s.Wait()

			snap := s.Snapshot()
			assert.Equal(t, munichStations, snap.Stations)
			assert.False(t, snap.Loading)
			assert.Nil(t, snap.Error)
			assert.Equal(t, []string{"München"}, snap.Cities)
		})
	}
}

func TestStore_SupersededResponseDoesNotClearLoading(t *testing.T) {
	m := metrics.New()
	source := newControlledSource()
	s := New(source, WithMetrics(m))
	defer s.Close()

	s.Start()
	first := source.next(t)
	s.Refresh()
	second := source.next(t)

	first.resolve(sampleStations, nil)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.FetchesTotal.WithLabelValues(metrics.FetchSuperseded)) == 1
	}, time.Second, 5*time.Millisecond)

	// only the superseded request has completed
	assert.True(t, s.Loading())
	assert.Empty(t, s.Stations())

	second.resolve(munichStations, nil)
	s.Wait()
	assert.False(t, s.Loading())
	assert.Equal(t, munichStations, s.Stations())
}

func TestStore_FailureKeepsStations(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "transport error",
			err:     station.NewTransportError(errors.New("connection refused")),
			wantMsg: "Failed to load stations: connection refused",
		},
		{
			name:    "bad status",
			err:     station.NewResponseError(500, "Internal Server Error"),
			wantMsg: "Failed to load stations: 500 Internal Server Error",
		},
		{
			name:    "not an array",
			err:     station.NewValidationError(station.ReasonNotArray),
			wantMsg: "Stations response is not an array.",
		},
		{
			name:    "invalid entries",
			err:     station.NewValidationError(station.ReasonInvalidEntries),
			wantMsg: "Stations response has invalid entries.",
		},
		{
			name:    "unknown error",
			err:     errors.New("something odd"),
			wantMsg: DefaultErrorMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, source := loadedStore(t, sampleStations)

			s.Refresh()
			source.next(t).resolve(nil, tt.err)
			s.Wait()

			snap := s.Snapshot()
			require.NotNil(t, snap.Error)
			assert.Equal(t, tt.wantMsg, *snap.Error)
			assert.False(t, snap.Loading)
			assert.Equal(t, sampleStations, snap.Stations)
		})
	}
}

func TestStore_LoadClearsError(t *testing.T) {
	s, source := loadedStore(t, sampleStations)

	s.Refresh()
	source.next(t).resolve(nil, station.NewTransportError(errors.New("offline")))
	s.Wait()
	require.NotNil(t, s.Error())

	s.Refresh()
	assert.True(t, s.Loading())
	assert.Nil(t, s.Error())

	source.next(t).resolve(munichStations, nil)
	s.Wait()
	assert.Nil(t, s.Error())
	assert.Equal(t, munichStations, s.Stations())
}

func TestStore_ExternalCancelMutatesNothing(t *testing.T) {
	tests := []struct {
		name   string
		result func(ctx context.Context) fetchResult
	}{
		{
			name: "transport returns context error",
			result: func(ctx context.Context) fetchResult {
				return fetchResult{err: ctx.Err()}
			},
		},
		{
			name: "transport finishes anyway",
			result: func(context.Context) fetchResult {
				return fetchResult{stations: munichStations}
			},
		},
		{
			name: "transport fails anyway",
			result: func(context.Context) fetchResult {
				return fetchResult{err: station.NewTransportError(errors.New("reset"))}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, source := loadedStore(t, sampleStations)

			ctx, cancel := context.WithCancel(context.Background())
			s.Load(ctx)
			call := source.next(t)
			cancel()

			r := tt.result(call.ctx)
			call.resolve(r.stations, r.err)
			s.Wait()

			snap := s.Snapshot()
			assert.Equal(t, sampleStations, snap.Stations)
			assert.Nil(t, snap.Error)
			// a cancelled request leaves loading to whoever owns it next
			assert.True(t, snap.Loading)
		})
	}
}

func TestStore_SelectionReconciliation(t *testing.T) {
	t.Run("filter hides selection", func(t *testing.T) {
		s, _ := loadedStore(t, sampleStations)

		s.SetSelectedStation(intPtr(2))
		require.NotNil(t, s.SelectedStationID())
		assert.Equal(t, "Hamburg Hbf", s.SelectedStation().Name)

		s.SetCityFilter("Berlin")
		assert.Nil(t, s.SelectedStationID())
		assert.Nil(t, s.SelectedStation())
		assert.Len(t, s.FilteredStations(), 2)
	})

	t.Run("filter keeps visible selection", func(t *testing.T) {
		s, _ := loadedStore(t, sampleStations)

		s.SetSelectedStation(intPtr(1))
		s.SetCityFilter("Berlin")
		require.NotNil(t, s.SelectedStationID())
		assert.Equal(t, 1, *s.SelectedStationID())
	})

	t.Run("unknown id is dropped", func(t *testing.T) {
		s, _ := loadedStore(t, sampleStations)

		s.SetSelectedStation(intPtr(99))
		assert.Nil(t, s.SelectedStationID())
	})

	t.Run("selecting outside the filter is dropped", func(t *testing.T) {
		s, _ := loadedStore(t, sampleStations)

		s.SetCityFilter("Berlin")
		s.SetSelectedStation(intPtr(2))
		assert.Nil(t, s.SelectedStationID())
	})

	t.Run("reload removes selected station", func(t *testing.T) {
		s, source := loadedStore(t, sampleStations)

		s.SetSelectedStation(intPtr(3))
		s.Refresh()
		source.next(t).resolve(munichStations, nil)
		s.Wait()

		assert.Nil(t, s.SelectedStationID())
	})

	t.Run("nil clears selection", func(t *testing.T) {
		s, _ := loadedStore(t, sampleStations)

		s.SetSelectedStation(intPtr(1))
		s.SetSelectedStation(nil)
		assert.Nil(t, s.SelectedStationID())
	})

	t.Run("caller cannot alias the selection", func(t *testing.T) {
		s, _ := loadedStore(t, sampleStations)

		id := 1
		s.SetSelectedStation(&id)
		id = 2
		assert.Equal(t, 1, *s.SelectedStationID())
	})
}

func TestStore_FilterScenarios(t *testing.T) {
	s, _ := loadedStore(t, sampleStations)

	s.SetCityFilter("Berlin")
	assert.Equal(t, "Berlin", s.CityFilter())
	assert.Equal(t, []int{1, 3}, ids(s.FilteredStations()))

	s.SetCityFilter("Hamburg")
	assert.Equal(t, []int{2}, ids(s.FilteredStations()))

	s.SetCityFilter("berlin")
	assert.Empty(t, s.FilteredStations())

	s.ClearFilter()
	assert.Equal(t, "", s.CityFilter())
	snap := s.Snapshot()
	assert.Equal(t, []int{1, 2, 3}, ids(snap.FilteredStations))
	assert.Equal(t, []string{"Berlin", "Hamburg"}, snap.Cities)
}

func TestStore_SubscribeOrder(t *testing.T) {
	source := newControlledSource()
	s := New(source)
	defer s.Close()

	var mu sync.Mutex
	var seen []Snapshot
	unsubscribe := s.Subscribe(func(snap Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, snap)
	})

	s.Start()
	source.next(t).resolve(sampleStations, nil)
	s.Wait()
	s.SetCityFilter("Berlin")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.True(t, seen[0].Loading)
	assert.Empty(t, seen[0].Stations)
	assert.False(t, seen[1].Loading)
	assert.Len(t, seen[1].Stations, 3)
	assert.Equal(t, "Berlin", seen[2].CityFilter)
	mu.Unlock()

	unsubscribe()
	s.ClearFilter()
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	assert.Len(t, seen, 3)
	mu.Unlock()
}

func TestStore_SubscriberMayCallBack(t *testing.T) {
	s, _ := loadedStore(t, sampleStations)

	s.Subscribe(func(snap Snapshot) {
		// reading and mutating from inside a listener must not deadlock
		if snap.CityFilter == "Berlin" && snap.SelectedStationID == nil && s.CityFilter() == "Berlin" {
			s.SetSelectedStation(intPtr(1))
		}
	})

	s.SetCityFilter("Berlin")

	require.Eventually(t, func() bool {
		id := s.SelectedStationID()
		return id != nil && *id == 1
	}, time.Second, 5*time.Millisecond)
}

func TestStore_Close(t *testing.T) {
	source := newControlledSource()
	s := New(source)

	s.Start()
	call := source.next(t)
	s.Close()

	assert.ErrorIs(t, call.ctx.Err(), context.Canceled)
	call.resolve(sampleStations, nil)
	s.Wait()
	assert.Empty(t, s.Stations())

	s.SetCityFilter("Berlin")
	assert.Equal(t, "", s.CityFilter())

	s.Refresh()
	select {
	case <-source.calls:
		t.Fatal("closed store issued a fetch")
	default:
	}

	assert.NotPanics(t, s.Close)
}

func TestStore_WithMemo(t *testing.T) {
	memo, err := view.NewMemo(8)
	require.NoError(t, err)
	s, _ := loadedStore(t, sampleStations, WithMemo(memo))

	s.SetCityFilter("Berlin")
	first := s.FilteredStations()
	second := s.FilteredStations()
	assert.Equal(t, []int{1, 3}, ids(first))
	assert.Same(t, &first[0], &second[0])
	assert.Greater(t, memo.Stats()["hits"], uint64(0))

	s.ClearFilter()
	assert.Len(t, s.FilteredStations(), 3)
}

func TestStore_WithMetrics(t *testing.T) {
	m := metrics.New()
	s, source := loadedStore(t, sampleStations, WithMetrics(m))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.FetchesTotal.WithLabelValues(metrics.FetchSuccess)))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.Stations))

	s.Refresh()
	superseded := source.next(t)
	s.Refresh()
	latest := source.next(t)
	superseded.resolve(sampleStations, nil)
	latest.resolve(nil, station.NewResponseError(503, "Service Unavailable"))
	s.Wait()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.FetchesTotal.WithLabelValues(metrics.FetchSuperseded)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.FetchesTotal.WithLabelValues(metrics.FetchError)))
}

func ids(stations []models.Station) []int {
	out := make([]int, 0, len(stations))
	for _, s := range stations {
		out = append(out, s.ID)
	}
	return out
}
