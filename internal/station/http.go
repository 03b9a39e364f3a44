package station

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/bbernstein/stationmap/internal/models"
	"github.com/bbernstein/stationmap/pkg/http/client"
)

// HTTPSource fetches the station list as a JSON array over HTTP
type HTTPSource struct {
	httpClient client.Interface
	path       string
}

// NewHTTPSource creates a source that GETs path through httpClient. With a
// client that has no base URL, path is the full URL.
func NewHTTPSource(httpClient client.Interface, path string) *HTTPSource {
	return &HTTPSource{
		httpClient: httpClient,
		path:       path,
	}
}

func (s *HTTPSource) Fetch(ctx context.Context) ([]models.Station, error) {
	resp, err := s.httpClient.Get(ctx, s.path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, NewTransportError(err)
	}

	if !resp.OK() {
		log.Debug().Int("status", resp.StatusCode).Str("path", s.path).Msg("Station list request failed")
		return nil, NewResponseError(resp.StatusCode, resp.Status)
	}

	stations, err := DecodeStations(resp.Body)
	if err != nil {
		return nil, err
	}

	log.Debug().Int("station_count", len(stations)).Msg("Fetched station list over HTTP")
	return stations, nil
}
