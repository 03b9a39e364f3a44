package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStationJSONFieldNames(t *testing.T) {
	t.Parallel()

	station := Station{ID: 1, Name: "Berlin Hbf", City: "Berlin", Lat: 52.5251, Lng: 13.3694}

	data, err := json.Marshal(station)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"name":"Berlin Hbf","city":"Berlin","lat":52.5251,"lng":13.3694}`, string(data))
}

func TestStationPosition(t *testing.T) {
	t.Parallel()

	station := Station{ID: 2, Lat: 53.553, Lng: 10.0067}
	assert.Equal(t, LatLng{Lat: 53.553, Lng: 10.0067}, station.Position())
}

func TestBoundsOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		stations  []Station
		want      Bounds
		wantValid bool
	}{
		{
			name:      "no stations",
			stations:  nil,
			wantValid: false,
		},
		{
			name:      "single station collapses to a point",
			stations:  []Station{{ID: 1, Lat: 52.5, Lng: 13.4}},
			want:      Bounds{MinLat: 52.5, MaxLat: 52.5, MinLng: 13.4, MaxLng: 13.4},
			wantValid: true,
		},
		{
			name: "several stations",
			stations: []Station{
				{ID: 1, Lat: 52.5251, Lng: 13.3694},
				{ID: 2, Lat: 53.553, Lng: 10.0067},
				{ID: 3, Lat: 52.5108, Lng: 13.4348},
			},
			want:      Bounds{MinLat: 52.5108, MaxLat: 53.553, MinLng: 10.0067, MaxLng: 13.4348},
			wantValid: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := BoundsOf(tt.stations)
			assert.Equal(t, tt.wantValid, got.IsValid())
			if tt.wantValid {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestBoundsCorners(t *testing.T) {
	t.Parallel()

	b := Bounds{MinLat: 50, MaxLat: 54, MinLng: 8, MaxLng: 14}

	assert.Equal(t, LatLng{Lat: 52, Lng: 11}, b.Center())
	assert.Equal(t, LatLng{Lat: 50, Lng: 8}, b.SouthWest())
	assert.Equal(t, LatLng{Lat: 54, Lng: 14}, b.NorthEast())
}
