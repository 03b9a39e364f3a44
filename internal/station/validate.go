package station

import (
	"math"

	"github.com/tidwall/gjson"

	"github.com/bbernstein/stationmap/internal/models"
)

// DecodeStations validates a raw station list payload and converts it.
// Every element must be an object with a numeric integral id, string name
// and city, and numeric lat and lng. One bad element rejects the whole list.
func DecodeStations(body []byte) ([]models.Station, error) {
	if !gjson.ValidBytes(body) {
		return nil, NewValidationError(ReasonMalformedJSON)
	}

	payload := gjson.ParseBytes(body)
	if !payload.IsArray() {
		return nil, NewValidationError(ReasonNotArray)
	}

	elements := payload.Array()
	stations := make([]models.Station, 0, len(elements))
	for _, element := range elements {
		station, ok := stationFromJSON(element)
		if !ok {
			return nil, NewValidationError(ReasonInvalidEntries)
		}
		stations = append(stations, station)
	}

	return stations, nil
}

func stationFromJSON(value gjson.Result) (models.Station, bool) {
	if !value.IsObject() {
		return models.Station{}, false
	}

	id := value.Get("id")
	name := value.Get("name")
	city := value.Get("city")
	lat := value.Get("lat")
	lng := value.Get("lng")

	if id.Type != gjson.Number || name.Type != gjson.String || city.Type != gjson.String ||
		lat.Type != gjson.Number || lng.Type != gjson.Number {
		return models.Station{}, false
	}

	idValue, ok := integral(id.Float())
	if !ok {
		return models.Station{}, false
	}

	return models.Station{
		ID:   idValue,
		Name: name.String(),
		City: city.String(),
		Lat:  lat.Float(),
		Lng:  lng.Float(),
	}, true
}

// maxSafeInteger is the largest integer a JSON producer can encode exactly
// as a double.
const maxSafeInteger = 1<<53 - 1

func integral(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if math.Abs(f) > maxSafeInteger {
		return 0, false
	}
	return int(f), true
}
