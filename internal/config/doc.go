// Package config loads eventd configuration.
//
// Resolution order: built-in defaults, then an optional JSON file, then
// EVENTD_* environment variables, then command-line flags applied by the
// CLI layer. Later sources win.
package config
