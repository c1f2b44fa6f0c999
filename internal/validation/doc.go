// Package validation holds filesystem preflight checks for command line
// tools: the input sales table must be a readable file the parser supports
// and an output report path must be writable.
package validation
