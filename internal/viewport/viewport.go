// Package viewport keeps a map framed on what the user is looking at: the
// selected station, the filtered stations, or everything.
package viewport

import (
	"math"
	"time"

	"github.com/bbernstein/stationmap/internal/config"
	"github.com/bbernstein/stationmap/internal/models"
)

// Map is the part of a map widget the controller drives.
type Map interface {
	SetView(center models.LatLng, zoom float64)
	FlyTo(center models.LatLng, zoom float64, opts FlyToOptions)
	FitBounds(bounds models.Bounds, opts FitBoundsOptions)
	// Zoom returns the zoom level the map currently shows
	Zoom() float64
}

type FlyToOptions struct {
	Duration time.Duration
}

type FitBoundsOptions struct {
	PaddingX int
	PaddingY int
	MaxZoom  float64
}

type Kind string

const (
	KindSetView   Kind = "set_view"
	KindFlyTo     Kind = "fly_to"
	KindFitBounds Kind = "fit_bounds"
)

// Command is one map movement. Only the fields of its Kind are set.
type Command struct {
	Kind      Kind
	Center    models.LatLng
	Zoom      float64
	Bounds    models.Bounds
	FlyTo     FlyToOptions
	FitBounds FitBoundsOptions
}

// Input is what the map should show.
type Input struct {
	Selected *models.Station
	Filtered []models.Station
	All      []models.Station
}

// Options are the framing settings.
type Options struct {
	Debounce      time.Duration
	DefaultCenter models.LatLng
	DefaultZoom   float64
	MinFocusZoom  float64
	FlyDuration   time.Duration
	PaddingX      int
	PaddingY      int
	MaxFitZoom    float64
}

// DefaultOptions frames Germany at startup.
func DefaultOptions() Options {
	return Options{
		Debounce:      150 * time.Millisecond,
		DefaultCenter: models.LatLng{Lat: 51.1657, Lng: 10.4515},
		DefaultZoom:   6,
		MinFocusZoom:  9,
		FlyDuration:   750 * time.Millisecond,
		PaddingX:      40,
		PaddingY:      40,
		MaxFitZoom:    8,
	}
}

func FromConfig(cfg *config.ViewportConfig) Options {
	return Options{
		Debounce:      cfg.GetDebounce(),
		DefaultCenter: models.LatLng{Lat: cfg.DefaultLat, Lng: cfg.DefaultLng},
		DefaultZoom:   cfg.DefaultZoom,
		MinFocusZoom:  cfg.MinFocusZoom,
		FlyDuration:   cfg.GetFlyDuration(),
		PaddingX:      cfg.PaddingPx,
		PaddingY:      cfg.PaddingPx,
		MaxFitZoom:    cfg.MaxFitZoom,
	}
}

// Plan picks the command that frames in, given the map's current zoom.
// A selection wins over the filtered list, and an empty filtered list
// falls back to all stations. Zoom is never reduced when focusing a
// single point.
func Plan(in Input, currentZoom float64, opts Options) Command {
	if in.Selected != nil {
		return Command{
			Kind:   KindFlyTo,
			Center: in.Selected.Position(),
			Zoom:   math.Max(currentZoom, opts.MinFocusZoom),
			FlyTo:  FlyToOptions{Duration: opts.FlyDuration},
		}
	}

	active := in.Filtered
	if len(active) == 0 {
		active = in.All
	}

	switch len(active) {
	case 0:
		return Command{
			Kind:   KindSetView,
			Center: opts.DefaultCenter,
			Zoom:   opts.DefaultZoom,
		}
	case 1:
		return Command{
			Kind:   KindSetView,
			Center: active[0].Position(),
			Zoom:   math.Max(currentZoom, opts.MinFocusZoom),
		}
	default:
		return Command{
			Kind:   KindFitBounds,
			Bounds: models.BoundsOf(active),
			FitBounds: FitBoundsOptions{
				PaddingX: opts.PaddingX,
				PaddingY: opts.PaddingY,
				MaxZoom:  opts.MaxFitZoom,
			},
		}
	}
}

// Apply sends cmd to m.
func Apply(m Map, cmd Command) {
	switch cmd.Kind {
	case KindSetView:
		m.SetView(cmd.Center, cmd.Zoom)
	case KindFlyTo:
		m.FlyTo(cmd.Center, cmd.Zoom, cmd.FlyTo)
	case KindFitBounds:
		m.FitBounds(cmd.Bounds, cmd.FitBounds)
	}
}
