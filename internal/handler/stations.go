package handler

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog/log"

	"github.com/bbernstein/stationmap/internal/api"
	"github.com/bbernstein/stationmap/internal/store"
)

// StationsHandler answers API Gateway requests from a store that lives as
// long as the warm container.
type StationsHandler struct {
	store *store.Store
}

func NewStationsHandler(s *store.Store) *StationsHandler {
	return &StationsHandler{store: s}
}

// HandleRequest returns the station view for the optional city and
// stationId query parameters.
func (h *StationsHandler) HandleRequest(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	params := request.QueryStringParameters
	city := params["city"]

	log.Info().Str("city", city).Msg("Handling Lambda request")

	stationID, err := api.ParseStationID(params)
	if err != nil {
		return api.Error(err.Error(), http.StatusBadRequest)
	}

	if err := h.waitForStations(ctx); err != nil {
		log.Warn().Err(err).Msg("Request ended before stations loaded")
		return api.Error("Timed out loading stations", http.StatusGatewayTimeout)
	}

	snap := h.store.Snapshot()
	if snap.Error != nil {
		// the next invocation retries
		defer h.store.Refresh()
		if len(snap.Stations) == 0 {
			return api.Error(*snap.Error, http.StatusBadGateway)
		}
	}

	h.store.SetCityFilter(city)
	h.store.SetSelectedStation(stationID)
	snap = h.store.Snapshot()

	if stationID != nil && snap.SelectedStation == nil {
		log.Debug().Int("station_id", *stationID).Str("city", city).Msg("Station not in view")
		return api.Error("Station not found", http.StatusNotFound)
	}

	return api.Success(api.NewViewResponse(snap))
}

func (h *StationsHandler) waitForStations(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.store.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
