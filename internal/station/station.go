package station

import (
	"context"

	"github.com/bbernstein/stationmap/internal/models"
)

// Source delivers the complete, validated station list.
//
// Implementations return ctx.Err() unchanged when the context is cancelled
// so callers can tell an abandoned request from a failed one. Every other
// failure is a *TransportError, *ResponseError or *ValidationError.
type Source interface {
	Fetch(ctx context.Context) ([]models.Station, error)
}

// SourceFunc adapts a function to the Source interface
type SourceFunc func(ctx context.Context) ([]models.Station, error)

func (f SourceFunc) Fetch(ctx context.Context) ([]models.Station, error) {
	return f(ctx)
}

// StaticSource serves a fixed list, mostly for tests and demos
type StaticSource struct {
	Stations []models.Station
}

func (s StaticSource) Fetch(ctx context.Context) ([]models.Station, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stations := make([]models.Station, len(s.Stations))
	copy(stations, s.Stations)
	return stations, nil
}
