// Package config loads, normalises, and validates panscan configuration.
//
// Values come from three layers: compiled defaults, an optional TOML file,
// and flat name=value settings supplied on the command line. Load merges the
// first two; ApplySettings merges the third. The resulting *Config is built
// once per invocation and handed to every component by pointer; nothing in
// the pipeline writes to it.
package config
