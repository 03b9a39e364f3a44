package station

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bbernstein/stationmap/internal/models"
)

func TestDecodeStations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		want       []models.Station
		wantReason string
	}{
		{
			name: "valid list",
			body: `[
				{"id": 1, "name": "Berlin Hbf", "city": "Berlin", "lat": 52.5251, "lng": 13.3694},
				{"id": 2, "name": "Hamburg Hbf", "city": "Hamburg", "lat": 53.553, "lng": 10.0067}
			]`,
			want: []models.Station{
				{ID: 1, Name: "Berlin Hbf", City: "Berlin", Lat: 52.5251, Lng: 13.3694},
				{ID: 2, Name: "Hamburg Hbf", City: "Hamburg", Lat: 53.553, Lng: 10.0067},
			},
		},
		{
			name: "empty list",
			body: `[]`,
			want: []models.Station{},
		},
		{
			name: "extra fields are ignored",
			body: `[{"id": 7, "name": "Köln Hbf", "city": "Köln", "lat": 50.943, "lng": 6.959, "platforms": 11}]`,
			want: []models.Station{{ID: 7, Name: "Köln Hbf", City: "Köln", Lat: 50.943, Lng: 6.959}},
		},
		{
			name:       "object instead of array",
			body:       `{"stations": []}`,
			wantReason: ReasonNotArray,
		},
		{
			name:       "not json",
			body:       `<html>rate limited</html>`,
			wantReason: ReasonMalformedJSON,
		},
		{
			name:       "string id",
			body:       `[{"id": "1", "name": "Berlin Hbf", "city": "Berlin", "lat": 52.5, "lng": 13.3}]`,
			wantReason: ReasonInvalidEntries,
		},
		{
			name:       "fractional id",
			body:       `[{"id": 1.5, "name": "Berlin Hbf", "city": "Berlin", "lat": 52.5, "lng": 13.3}]`,
			wantReason: ReasonInvalidEntries,
		},
		{
			name:       "missing city",
			body:       `[{"id": 1, "name": "Berlin Hbf", "lat": 52.5, "lng": 13.3}]`,
			wantReason: ReasonInvalidEntries,
		},
		{
			name:       "null coordinate",
			body:       `[{"id": 1, "name": "Berlin Hbf", "city": "Berlin", "lat": null, "lng": 13.3}]`,
			wantReason: ReasonInvalidEntries,
		},
		{
			name: "one bad element rejects the list",
			body: `[
				{"id": 1, "name": "Berlin Hbf", "city": "Berlin", "lat": 52.5, "lng": 13.3},
				42
			]`,
			wantReason: ReasonInvalidEntries,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := DecodeStations([]byte(tt.body))
			if tt.wantReason != "" {
				var validationErr *ValidationError
				require.True(t, errors.As(err, &validationErr), "got %v", err)
				assert.Equal(t, tt.wantReason, validationErr.Reason)
				assert.Equal(t, tt.wantReason, err.Error())
				assert.Nil(t, got)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: connection refused")
	transportErr := NewTransportError(cause)
	assert.Equal(t, "Failed to load stations: dial tcp: connection refused", transportErr.Error())
	assert.ErrorIs(t, transportErr, cause)

	responseErr := NewResponseError(503, "Service Unavailable")
	assert.Equal(t, "Failed to load stations: 503 Service Unavailable", responseErr.Error())
}
