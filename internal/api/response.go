package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/aws/aws-lambda-go/events"

	"github.com/bbernstein/stationmap/internal/models"
	"github.com/bbernstein/stationmap/internal/store"
)

// View statuses, in the order they take precedence
const (
	StatusLoading = "loading"
	StatusError   = "error"
	StatusEmpty   = "empty"
	StatusReady   = "ready"
)

type APIResponse struct {
	ResponseType string `json:"responseType"`
}

func (r APIResponse) GetResponseType() string {
	return r.ResponseType
}

// ViewResponse is everything a station list or map needs to render.
type ViewResponse struct {
	APIResponse
	Status            string           `json:"status"`
	Stations          []models.Station `json:"stations"`
	FilteredStations  []models.Station `json:"filteredStations"`
	Cities            []string         `json:"cities"`
	CityFilter        string           `json:"cityFilter"`
	SelectedStationID *int             `json:"selectedStationId"`
	SelectedStation   *models.Station  `json:"selectedStation"`
	Loading           bool             `json:"loading"`
	Error             *string          `json:"error"`
	// Stale is set when the stations shown come from before a failed refresh
	Stale   bool   `json:"stale"`
	Version uint64 `json:"version"`
}

type CitiesResponse struct {
	APIResponse
	Cities []string `json:"cities"`
}

type ErrorResponse struct {
	APIResponse
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

func NewViewResponse(snap store.Snapshot) *ViewResponse {
	return &ViewResponse{
		APIResponse:       APIResponse{ResponseType: "view"},
		Status:            ViewStatus(snap),
		Stations:          snap.Stations,
		FilteredStations:  snap.FilteredStations,
		Cities:            snap.Cities,
		CityFilter:        snap.CityFilter,
		SelectedStationID: snap.SelectedStationID,
		SelectedStation:   snap.SelectedStation,
		Loading:           snap.Loading,
		Error:             snap.Error,
		Stale:             snap.Error != nil && len(snap.Stations) > 0,
		Version:           snap.StationsVersion,
	}
}

func NewCitiesResponse(cities []string) *CitiesResponse {
	return &CitiesResponse{
		APIResponse: APIResponse{ResponseType: "cities"},
		Cities:      cities,
	}
}

func NewErrorResponse(message string) *ErrorResponse {
	return &ErrorResponse{
		APIResponse: APIResponse{ResponseType: "error"},
		Error:       message,
	}
}

// ViewStatus is what a list shows: the loading state first, then an error,
// then an empty result, and otherwise the stations.
func ViewStatus(snap store.Snapshot) string {
	switch {
	case snap.Loading:
		return StatusLoading
	case snap.Error != nil:
		return StatusError
	case len(snap.FilteredStations) == 0:
		return StatusEmpty
	default:
		return StatusReady
	}
}

// Success and Error build API Gateway responses for the Lambda handlers.
func Success(body interface{}) (events.APIGatewayProxyResponse, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return Error("Internal Server Error", http.StatusInternalServerError)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers: map[string]string{
			"Content-Type":                "application/json",
			"Access-Control-Allow-Origin": "*",
		},
		Body: string(jsonBody),
	}, nil
}

func Error(message string, statusCode int) (events.APIGatewayProxyResponse, error) {
	body, _ := json.Marshal(NewErrorResponse(message))

	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers: map[string]string{
			"Content-Type":                "application/json",
			"Access-Control-Allow-Origin": "*",
		},
		Body: string(body),
	}, nil
}

// ParseStationID reads the optional stationId parameter.
func ParseStationID(params map[string]string) (*int, error) {
	raw, ok := params["stationId"]
	if !ok || raw == "" {
		return nil, nil
	}

	id, err := strconv.Atoi(raw)
	if err != nil {
		return nil, InvalidStationIDError{Value: raw}
	}
	return &id, nil
}

type InvalidStationIDError struct {
	Value string
}

func (e InvalidStationIDError) Error() string {
	return "Invalid station id: " + e.Value
}
