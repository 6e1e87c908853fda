// Package config handles shapetool configuration loading.
package config

// Config holds all shapetool settings.
type Config struct {
	Sampling SamplingConfig `yaml:"sampling"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SamplingConfig holds defaults for random shape sampling.
type SamplingConfig struct {
	Sigma float64 `yaml:"sigma"` // standard deviation of random coefficients
	Seed  uint64  `yaml:"seed"`  // fixed seed; 0 means seed from system entropy
}

// OutputConfig holds output settings.
type OutputConfig struct {
	Dir string `yaml:"dir"` // directory for exported meshes
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Sampling: SamplingConfig{
			Sigma: 1.0,
			Seed:  0,
		},
		Output: OutputConfig{
			Dir: ".",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
