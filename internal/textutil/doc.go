// Package textutil derives filesystem-safe names from free-form text such as
// video file names.
package textutil
