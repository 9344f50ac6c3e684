// Package env reads raw process environment values, for the few knobs that
// need answering before the envconfig structs are loaded.
package env

import "os"

// Get returns the variable's value, or fallback when unset or blank.
func Get(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
