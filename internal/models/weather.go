package models

// Weather is the locally cached weather snapshot.
type Weather struct {
	LastUpdated string  `json:"lastUpdated"`
	Location    string  `json:"location"`
	Temperature float64 `json:"temperature"`
	Weather     string  `json:"weather"`
}

// WeatherAPIResponse mirrors the backend's /weather payload.
type WeatherAPIResponse struct {
	Location struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"location"`
	Current struct {
		TempC     float64 `json:"temp_c"`
		Condition struct {
			Text string `json:"text"`
		} `json:"condition"`
		LastUpdatedEpoch int64 `json:"last_updated_epoch"`
	} `json:"current"`
}
