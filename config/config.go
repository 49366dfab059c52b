package config

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// a type with service configuration parameters
type serviceConfig struct {
	// Port on which the service listens‥
	Port int `json:"port" yaml:"port"`
	// Maximum number of allowed incoming connections.
	MaxConnections int `json:"maxConnections" yaml:"maxConnections"`
}

// global config variables
var Service serviceConfig
var Store storeConfig
var Geocoder geocoderConfig
var Archives archivesConfig
var Journal journalConfig

// This struct performs the unmarshalling from the YAML config file and then
// copies its fields to the globals above.
type configFile struct {
	Service  serviceConfig  `yaml:"service"`
	Store    storeConfig    `yaml:"store"`
	Geocoder geocoderConfig `yaml:"geocoder"`
	Archives archivesConfig `yaml:"archives"`
	Journal  journalConfig  `yaml:"journal"`
}

// This helper reads configuration data, returning an error indicating success
// or failure. All environment variables of the form ${ENV_VAR} are expanded.
func readConfig(bytes []byte) error {
	// Before we do anything else, expand any provided environment variables.
	bytes = []byte(os.ExpandEnv(string(bytes)))

	var conf configFile
	conf.Service.Port = 8080
	conf.Service.MaxConnections = 100
	conf.Geocoder.Timeout = 10
	conf.Archives.MaxSize = 10 * 1024 * 1024
	err := yaml.Unmarshal(bytes, &conf)
	if err != nil {
		log.Printf("Couldn't parse configuration data: %s\n", err)
		return err
	}

	// copy the config data into place
	Service = conf.Service
	Store = conf.Store
	Geocoder = conf.Geocoder
	Archives = conf.Archives
	Journal = conf.Journal

	return err
}

// This helper validates the given service parameters, returning an
// error indicating success or failure.
func validateServiceParameters(params serviceConfig) error {
	if params.Port < 0 || params.Port > 65535 {
		return fmt.Errorf("Invalid port: %d (must be 0-65535)", params.Port)
	}
	if params.MaxConnections <= 0 {
		return fmt.Errorf("Invalid maxConnections: %d (must be positive)",
			params.MaxConnections)
	}
	return nil
}

// This helper validates the given configfile, returning an error that indicates
// success or failure.
func validateConfig() error {
	err := validateServiceParameters(Service)
	if err != nil {
		return err
	}

	// Do we know where datasets are kept?
	if Store.Directory == "" {
		return fmt.Errorf("No dataset store directory was provided!")
	}

	// Can we geocode building addresses?
	if Geocoder.URL == "" {
		return fmt.Errorf("No geocoder URL was provided!")
	}
	if Geocoder.Timeout <= 0 {
		return fmt.Errorf("Invalid geocoder timeout: %d (must be positive)",
			Geocoder.Timeout)
	}

	if Archives.MaxSize <= 0 {
		return fmt.Errorf("Invalid archive maxSize: %d (must be positive)",
			Archives.MaxSize)
	}
	return nil
}

// Initializes the data service configuration using the given YAML byte
// data.
func Init(yamlData []byte) error {

	// Read the configuration from our YAML file.
	err := readConfig(yamlData)
	if err != nil {
		return err
	}

	// Validate the configuration.
	err = validateConfig()
	return err
}
