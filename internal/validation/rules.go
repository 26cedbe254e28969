// Package validation provides custom validation rules for the application.
package validation

import (
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/tokenvault/tokenvault/internal/errors"
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// Username validates the account naming policy: 6-20 characters drawn from
// letters, digits, dots and underscores; separators may not start or end the
// name and may not be adjacent to each other.
var Username = validation.NewStringRuleWithError(
	isValidUsername,
	validation.NewError(
		"validation_username",
		"must be 6-20 letters, digits, dots or underscores, with no leading, trailing or adjacent separators",
	),
)

func isValidUsername(s string) bool {
	if len(s) < 6 || len(s) > 20 {
		return false
	}
	if isSeparator(rune(s[0])) || isSeparator(rune(s[len(s)-1])) {
		return false
	}
	prevSeparator := false
	for _, r := range s {
		switch {
		case isSeparator(r):
			if prevSeparator {
				return false
			}
			prevSeparator = true
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			prevSeparator = false
		default:
			return false
		}
	}
	return true
}

func isSeparator(r rune) bool {
	return r == '.' || r == '_'
}
