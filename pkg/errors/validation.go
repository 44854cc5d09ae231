package errors

import (
	"strings"
	"unicode"
)

// ValidateRange checks a closed lane interval against the number of lanes.
// Lanes are numbered 0..count-1.
func ValidateRange(begin, end, count int) error {
	if begin < 0 || end < 0 {
		return New(ErrCodeInvalidRange, "range [%d, %d] contains a negative lane", begin, end)
	}
	if begin > end {
		return New(ErrCodeInvalidRange, "range [%d, %d] is inverted", begin, end)
	}
	if end >= count {
		return New(ErrCodeInvalidRange, "range [%d, %d] exceeds lane count %d", begin, end, count)
	}
	return nil
}

// ValidateModulePath validates a module hierarchy path sent with a toggle command.
//
// The rules are intentionally conservative:
//   - At least one element
//   - No empty elements
//   - No control characters
//   - No element containing the hierarchy separator "."
func ValidateModulePath(path []string) error {
	if len(path) == 0 {
		return New(ErrCodeInvalidModulePath, "module path cannot be empty")
	}
	for i, part := range path {
		if part == "" {
			return New(ErrCodeInvalidModulePath, "module path element %d is empty", i)
		}
		if strings.Contains(part, ".") {
			return New(ErrCodeInvalidModulePath, "module path element %q contains a separator", part)
		}
		for _, r := range part {
			if unicode.IsControl(r) {
				return New(ErrCodeInvalidModulePath, "module path element %d contains control characters", i)
			}
		}
	}
	return nil
}
