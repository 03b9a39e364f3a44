package viewport

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/bbernstein/stationmap/internal/clock"
	"github.com/bbernstein/stationmap/internal/metrics"
	"github.com/bbernstein/stationmap/internal/store"
)

type Option func(*Controller)

func WithOptions(opts Options) Option {
	return func(c *Controller) {
		c.opts = opts
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// observed identifies the inputs that decide the framing.
type observed struct {
	hasSelection bool
	selectedID   int
	cityFilter   string
	version      uint64
}

// Controller debounces framing updates: only the last Input of a burst is
// planned and applied, once the quiet period has passed.
type Controller struct {
	m       Map
	clock   clock.Clock
	opts    Options
	metrics *metrics.Metrics

	mu      sync.Mutex
	timer   clock.Timer
	seq     uint64
	latest  Input
	closed  bool
	last    observed
	hasLast bool

	// serializes Plan and Apply across timer goroutines
	applyMu sync.Mutex
}

func NewController(m Map, clk clock.Clock, opts ...Option) *Controller {
	c := &Controller{
		m:     m,
		clock: clk,
		opts:  DefaultOptions(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Update replaces any pending input with in and restarts the quiet period.
func (c *Controller) Update(in Input) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.seq++
	seq := c.seq
	c.latest = in
	c.timer = c.clock.AfterFunc(c.opts.Debounce, func() {
		c.fire(seq)
	})
}

// Observe feeds a store snapshot to Update when the selection, the filter
// or the station list changed since the last snapshot it saw.
func (c *Controller) Observe(snap store.Snapshot) {
	key := observed{
		cityFilter: snap.CityFilter,
		version:    snap.StationsVersion,
	}
	if snap.SelectedStationID != nil {
		key.hasSelection = true
		key.selectedID = *snap.SelectedStationID
	}

	c.mu.Lock()
	if c.hasLast && c.last == key {
		c.mu.Unlock()
		return
	}
	c.last = key
	c.hasLast = true
	c.mu.Unlock()

	c.Update(Input{
		Selected: snap.SelectedStation,
		Filtered: snap.FilteredStations,
		All:      snap.Stations,
	})
}

func (c *Controller) fire(seq uint64) {
	c.applyMu.Lock()
	defer c.applyMu.Unlock()

	c.mu.Lock()
	if c.closed || seq != c.seq {
		c.mu.Unlock()
		return
	}
	in := c.latest
	c.timer = nil
	c.mu.Unlock()

	cmd := Plan(in, c.m.Zoom(), c.opts)
	log.Debug().
		Str("command", string(cmd.Kind)).
		Float64("zoom", cmd.Zoom).
		Msg("Applying viewport command")
	Apply(c.m, cmd)
	c.metrics.ObserveViewportCommand(string(cmd.Kind))
}

// Pending reports whether an update is waiting for its quiet period.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}

// Close drops any pending update. Later calls to Update are ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
