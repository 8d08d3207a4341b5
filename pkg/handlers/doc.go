// Package handlers provides the built-in handler set and a loader for
// handler catalogs declared in YAML.
package handlers
