package models

// APISettings controls whether and where the coach backend is reached.
type APISettings struct {
	EnableAPI bool   `json:"enableAPI"`
	APIURL    string `json:"apiURL"`
}
