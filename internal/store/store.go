// Package store owns the station state shared by the list and the map: the
// raw station list, the city filter, the selection and the fetch lifecycle.
//
// Every mutation settles under one lock. A settled state always satisfies
// the selection invariant: a non-nil selection names a station in the
// filtered view. Fetches run on their own goroutines and re-enter through
// the same lock, where only the most recently issued request may commit.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bbernstein/stationmap/internal/clock"
	"github.com/bbernstein/stationmap/internal/metrics"
	"github.com/bbernstein/stationmap/internal/models"
	"github.com/bbernstein/stationmap/internal/station"
	"github.com/bbernstein/stationmap/internal/view"
)

// DefaultErrorMessage is shown for failures outside the source error types.
const DefaultErrorMessage = "Failed to load stations."

// State is the raw, mutable part of the store.
type State struct {
	Stations          []models.Station
	CityFilter        string
	SelectedStationID *int
	Loading           bool
	Error             *string
}

// fetchRequest is one attempt to retrieve the station list.
type fetchRequest struct {
	generation uint64
	ctx        context.Context
	cancel     context.CancelFunc
	started    time.Time
}

type Option func(*Store)

// WithMemo memoizes per-city filter results across snapshots.
func WithMemo(memo *view.Memo) Option {
	return func(s *Store) {
		s.memo = memo
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

func WithClock(c clock.Clock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

type Store struct {
	source  station.Source
	memo    *view.Memo
	metrics *metrics.Metrics
	clock   clock.Clock

	// base is cancelled by Close; Start and Refresh derive from it
	base       context.Context
	cancelBase context.CancelFunc

	mu              sync.Mutex
	state           State
	stationsVersion uint64
	generation      uint64
	active          *fetchRequest
	closed          bool

	cities        []string
	citiesVersion uint64

	subscribers map[int]func(Snapshot)
	nextSubID   int
	pending     []Snapshot
	wake        chan struct{}
	done        chan struct{}
	dispatching sync.WaitGroup
	fetches     sync.WaitGroup
}

// New creates a store reading from source. Loading starts out true because
// the first fetch is issued by Start as soon as the application is up.
func New(source station.Source, opts ...Option) *Store {
	base, cancel := context.WithCancel(context.Background())
	s := &Store{
		source:      source,
		clock:       clock.Real{},
		base:        base,
		cancelBase:  cancel,
		state:       State{Stations: []models.Station{}, Loading: true},
		subscribers: make(map[int]func(Snapshot)),
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.dispatching.Add(1)
	go s.dispatch()

	return s
}

// Start issues the initial fetch.
func (s *Store) Start() {
	s.Load(s.base)
}

// Load issues a new fetch and supersedes any request still in flight.
// Cancelling ctx abandons this request without touching the state.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	if s.active != nil {
		log.Debug().Uint64("generation", s.active.generation).Msg("Superseding in-flight station request")
		s.active.cancel()
	}

	s.generation++
	reqCtx, cancel := context.WithCancel(ctx)
	req := &fetchRequest{
		generation: s.generation,
		ctx:        reqCtx,
		cancel:     cancel,
		started:    s.clock.Now(),
	}
	s.active = req
	s.state.Loading = true
	s.state.Error = nil
	s.settleLocked()
	s.fetches.Add(1)
	s.mu.Unlock()

	log.Debug().Uint64("generation", req.generation).Msg("Loading stations")
	go s.run(req)
}

// Refresh reloads the station list with a fresh cancellation handle.
func (s *Store) Refresh() {
	s.Load(s.base)
}

func (s *Store) run(req *fetchRequest) {
	defer s.fetches.Done()
	defer req.cancel()

	stations, err := s.source.Fetch(req.ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := s.clock.Now().Sub(req.started)
	outcome := metrics.FetchSuperseded

	if err == nil {
		if s.isLatestLocked(req) {
			if stations == nil {
				stations = []models.Station{}
			}
			s.state.Stations = stations
			s.stationsVersion++
			outcome = metrics.FetchSuccess
			s.metrics.SetStations(len(stations))
			log.Debug().
				Uint64("generation", req.generation).
				Int("station_count", len(stations)).
				Msg("Station list replaced")
		}
	} else {
		if req.ctx.Err() != nil {
			log.Debug().Uint64("generation", req.generation).Bool("superseded", true).Msg("Discarding cancelled station request")
			s.metrics.ObserveFetch(outcome, elapsed)
			return
		}
		if s.active == req {
			message := errorMessage(err)
			s.state.Error = &message
			outcome = metrics.FetchError
			log.Warn().Err(err).Uint64("generation", req.generation).Msg("Failed to load stations")
		}
	}

	if s.isLatestLocked(req) {
		s.active = nil
		s.state.Loading = false
	}

	if outcome == metrics.FetchSuperseded {
		log.Debug().Uint64("generation", req.generation).Bool("superseded", true).Msg("Discarding stale station response")
	} else {
		s.settleLocked()
	}
	s.metrics.ObserveFetch(outcome, elapsed)
}

// isLatestLocked reports whether req may still commit its outcome.
func (s *Store) isLatestLocked(req *fetchRequest) bool {
	return s.active == req && req.ctx.Err() == nil
}

// SetCityFilter sets the exact city to show. An empty city shows everything.
func (s *Store) SetCityFilter(city string) {
	s.mutate(func(st *State) {
		st.CityFilter = city
	})
	log.Debug().Str("city", city).Msg("City filter changed")
}

// ClearFilter is SetCityFilter("").
func (s *Store) ClearFilter() {
	s.SetCityFilter("")
}

// SetSelectedStation selects a station by id, or clears the selection with
// nil. The id is not checked here; a selection outside the filtered view is
// dropped when the state settles.
func (s *Store) SetSelectedStation(id *int) {
	var selected *int
	if id != nil {
		v := *id
		selected = &v
	}
	s.mutate(func(st *State) {
		st.SelectedStationID = selected
	})
}

func (s *Store) mutate(fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	fn(&s.state)
	s.settleLocked()
}

// settleLocked restores the selection invariant and queues the resulting
// snapshot for subscribers.
func (s *Store) settleLocked() {
	snap := s.snapshotLocked()
	if id := s.state.SelectedStationID; id != nil && !view.ContainsStation(snap.FilteredStations, *id) {
		log.Debug().Int("station_id", *id).Str("city", s.state.CityFilter).Msg("Clearing selection hidden by filter")
		s.state.SelectedStationID = nil
		snap.SelectedStationID = nil
		snap.SelectedStation = nil
	}

	s.pending = append(s.pending, snap)
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Snapshot returns the current settled state and its derived view.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	var filtered []models.Station
	if s.memo != nil {
		filtered = s.memo.FilterByCity(s.stationsVersion, s.state.Stations, s.state.CityFilter)
	} else {
		filtered = view.FilterByCity(s.state.Stations, s.state.CityFilter)
	}

	if s.cities == nil || s.citiesVersion != s.stationsVersion {
		s.cities = view.Cities(s.state.Stations)
		s.citiesVersion = s.stationsVersion
	}

	snap := Snapshot{
		Stations:         s.state.Stations,
		FilteredStations: filtered,
		Cities:           s.cities,
		CityFilter:       s.state.CityFilter,
		SelectedStation:  view.SelectedStation(s.state.Stations, s.state.SelectedStationID),
		Loading:          s.state.Loading,
		StationsVersion:  s.stationsVersion,
	}
	if s.state.SelectedStationID != nil {
		id := *s.state.SelectedStationID
		snap.SelectedStationID = &id
	}
	if s.state.Error != nil {
		message := *s.state.Error
		snap.Error = &message
	}
	return snap
}

// Subscribe registers fn to receive every settled snapshot, in order, on a
// single dispatcher goroutine. fn may call back into the store.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

func (s *Store) dispatch() {
	defer s.dispatching.Done()

	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}

		s.mu.Lock()
		batch := s.pending
		s.pending = nil
		subscribers := make([]func(Snapshot), 0, len(s.subscribers))
		for id := 0; id < s.nextSubID; id++ {
			if fn, ok := s.subscribers[id]; ok {
				subscribers = append(subscribers, fn)
			}
		}
		s.mu.Unlock()

		for _, snap := range batch {
			for _, fn := range subscribers {
				fn(snap)
			}
		}
	}
}

// Wait blocks until every fetch started so far has finished and been
// applied or discarded.
func (s *Store) Wait() {
	s.fetches.Wait()
}

// Close cancels any in-flight fetch and stops notifications. Mutators are
// no-ops afterwards. Close is idempotent.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.active != nil {
		s.active.cancel()
		s.active = nil
	}
	s.pending = nil
	s.mu.Unlock()

	s.cancelBase()
	close(s.done)
	s.dispatching.Wait()
	log.Debug().Msg("Station store closed")
}

func errorMessage(err error) string {
	var transportErr *station.TransportError
	var responseErr *station.ResponseError
	var validationErr *station.ValidationError
	switch {
	case errors.As(err, &transportErr), errors.As(err, &responseErr), errors.As(err, &validationErr):
		return err.Error()
	default:
		return DefaultErrorMessage
	}
}
