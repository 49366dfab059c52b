package config

// parameters for the on-disk dataset store
type storeConfig struct {
	// the directory in which dataset documents are kept
	Directory string `yaml:"directory"`
}
