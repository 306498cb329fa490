// Package catalog records finished detection runs in SQLite so earlier
// results can be listed and re-read without re-running the pipeline.
//
// Each row stores the run identity, its outcome, and the full JSON result
// record. The schema is versioned; a mismatch is reported as
// ErrSchemaMismatch rather than migrated in place.
package catalog
