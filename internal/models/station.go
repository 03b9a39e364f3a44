package models

// Station is a single train station as delivered by a station source.
// Stations are immutable once fetched; ID is the identity.
type Station struct {
	ID   int     `json:"id"`
	Name string  `json:"name"`
	City string  `json:"city"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// Position returns the station coordinates.
func (s Station) Position() LatLng {
	return LatLng{Lat: s.Lat, Lng: s.Lng}
}
