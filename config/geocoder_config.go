package config

// parameters for the geocoding service used to locate campus buildings
type geocoderConfig struct {
	// the base URL at which the geocoder is accessed
	URL string `yaml:"url"`
	// the timeout for geocoding requests (seconds)
	Timeout int `yaml:"timeout"`
}
