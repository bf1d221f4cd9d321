package config

import _ "embed"

//go:embed sample_config.toml
var sampleConfig string

// Sample returns an annotated config file with every supported key.
func Sample() string { return sampleConfig }
