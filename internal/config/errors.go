package config

import "strings"

// ConfigError is returned when required deployment configuration is missing
// or malformed. It is fatal at startup.
//
//nolint:revive
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}
