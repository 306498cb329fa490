// Package logging builds the slog loggers used by panscan: a console handler
// that prefixes lines with component/stage, a JSON handler, and helpers that
// tag records with run, stage and group ids.
package logging
