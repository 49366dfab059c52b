package config

// limits applied to uploaded dataset archives
type archivesConfig struct {
	// the maximum accepted size of an uploaded zip archive (bytes)
	MaxSize int64 `yaml:"maxSize"`
}
