// Package validation provides common validation utilities for configuration
// parameters across the gofabric runtime.
//
// Constructors use these helpers so that every rejected value surfaces as an
// errors.ValidationError with a consistent message.
package validation
