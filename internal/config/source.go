package config

import (
	"os"
	"strings"
)

// Map is a source of configuration values.
type Map interface {

	// Lookup looks up a single value with a complete key.
	Lookup(key string) (string, bool)
}

// A StdMap is a [Map] backed by a map[string]string.
type StdMap map[string]string

func (m StdMap) Lookup(key string) (string, bool) {
	found, ok := m[key]
	return found, ok
}

// An EnvMap is a [Map] that reads from environment variables. Keys are mapped to environment
// variable names with [EnvName].
type EnvMap struct{}

func (EnvMap) Lookup(key string) (string, bool) {
	return os.LookupEnv(EnvName(key))
}

// EnvName maps a config key to an environment variable name by replacing hyphens ('-') with
// underscores ('_'), replacing periods ('.') with two underscores ("__"), and transforming the
// key to UPPER-CASE.
func EnvName(key string) string {
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, ".", "__")
	return strings.ToUpper(key)
}
