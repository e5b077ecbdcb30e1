// Package validation provides common validation utilities for the gofabric runtime.
package validation

import (
	"fmt"

	gferrors "github.com/vnykmshr/gofabric/pkg/common/errors"
)

// ValidatePositive validates that an integer value is positive (> 0).
// Returns a ValidationError if the value is not positive.
func ValidatePositive(module, field string, value int) error {
	if value <= 0 {
		return gferrors.NewValidationError(module, field, value, "must be positive").
			WithHint("value must be greater than 0")
	}
	return nil
}

// ValidateNonNegative validates that an integer value is non-negative (>= 0).
// Returns a ValidationError if the value is negative.
func ValidateNonNegative(module, field string, value int) error {
	if value < 0 {
		return gferrors.NewValidationError(module, field, value, "cannot be negative").
			WithHint("use 0 or a positive value")
	}
	return nil
}

// ValidateNotNil validates that an interface value is not nil.
// Returns a ValidationError if the value is nil.
func ValidateNotNil(module, field string, value interface{}) error {
	if value == nil {
		return gferrors.NewValidationError(module, field, nil, "cannot be nil").
			WithHint("provide a valid " + field)
	}
	return nil
}

// ValidateExtent validates every axis of a 3-D extent.
// A zero axis is accepted only when allowZero is set.
func ValidateExtent(module, field string, extent [3]int, allowZero bool) error {
	for axis, v := range extent {
		name := fmt.Sprintf("%s[%d]", field, axis)
		if allowZero {
			if err := ValidateNonNegative(module, name, v); err != nil {
				return err
			}
			continue
		}
		if err := ValidatePositive(module, name, v); err != nil {
			return err
		}
	}
	return nil
}
