// Package services holds the cross-cutting helpers every pipeline stage uses.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers, stage names, video names,
//     and group ids for logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures with errors.Is (configuration vs external tool vs unsupported).
//
// Stage code should wrap failures through Wrap instead of returning bare
// errors so the CLI and the run catalog can report a consistent failure kind.
package services
