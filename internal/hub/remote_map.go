package hub

import (
	"sync"

	"github.com/bbernstein/stationmap/internal/models"
	"github.com/bbernstein/stationmap/internal/viewport"
)

// RemoteMap is a viewport.Map whose widgets live in the connected browsers.
// Commands are broadcast as they are applied; the zoom is whatever a client
// last reported, or the zoom of the last command sent.
type RemoteMap struct {
	hub *Hub

	mu   sync.Mutex
	zoom float64
}

func NewRemoteMap(h *Hub, initialZoom float64) *RemoteMap {
	return &RemoteMap{hub: h, zoom: initialZoom}
}

func (r *RemoteMap) SetView(center models.LatLng, zoom float64) {
	r.setZoom(zoom)
	r.hub.Broadcast(NewCommandFrame(viewport.Command{
		Kind:   viewport.KindSetView,
		Center: center,
		Zoom:   zoom,
	}))
}

func (r *RemoteMap) FlyTo(center models.LatLng, zoom float64, opts viewport.FlyToOptions) {
	r.setZoom(zoom)
	r.hub.Broadcast(NewCommandFrame(viewport.Command{
		Kind:   viewport.KindFlyTo,
		Center: center,
		Zoom:   zoom,
		FlyTo:  opts,
	}))
}

// FitBounds leaves the zoom alone; the client reports the zoom it settles on.
func (r *RemoteMap) FitBounds(bounds models.Bounds, opts viewport.FitBoundsOptions) {
	r.hub.Broadcast(NewCommandFrame(viewport.Command{
		Kind:      viewport.KindFitBounds,
		Bounds:    bounds,
		FitBounds: opts,
	}))
}

func (r *RemoteMap) Zoom() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zoom
}

// ReportZoom records the zoom a client reports.
func (r *RemoteMap) ReportZoom(zoom float64) {
	r.setZoom(zoom)
}

func (r *RemoteMap) setZoom(zoom float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.zoom = zoom
}
