// Package grouping merges consecutive pan classifications into pan groups and
// picks the subset of each group to export.
package grouping
