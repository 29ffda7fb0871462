// Package format renders link metrics as fixed-width text fields.
//
// Every function always returns a value. Invalid, negative or non-finite
// input degrades to a sentinel such as "    -" so that a single bad sample
// never breaks a report's column layout.
package format
