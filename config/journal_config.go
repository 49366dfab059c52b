package config

// parameters for the dataset activity journal
type journalConfig struct {
	// the directory in which the journal database and its manifests are kept
	// (leave blank to disable journaling)
	Directory string `yaml:"directory"`
}
