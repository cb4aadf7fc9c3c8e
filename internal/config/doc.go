// Package config loads apidocs settings.
//
// Values are layered: built-in defaults, then the optional YAML file
// (.apidocs.yml by default), then APIDOCS_* environment variables. Nested
// keys use the section name as prefix, so APIDOCS_SEARCH_LIMIT sets
// search.limit.
package config
