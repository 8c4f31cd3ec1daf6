package service

import (
	"regexp"
	"strings"
	"unicode"

	appErrors "github.com/campushub/clubhub-api/pkg/errors"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

// ValidateUsername enforces the username format: 3-20 characters from
// letters, digits and underscore. Usernames are matched case-insensitively,
// so callers normalise to lowercase before storage and lookups.
func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return appErrors.Clone(appErrors.ErrValidation, "username must be 3-20 characters using letters, numbers and underscores")
	}
	return nil
}

// ValidatePassword enforces the credential policy: 6-128 characters with at
// least one uppercase letter, one lowercase letter and one digit.
func ValidatePassword(password string) error {
	if len(password) < 6 {
		return appErrors.Clone(appErrors.ErrValidation, "password must be at least 6 characters")
	}
	if len(password) > 128 {
		return appErrors.Clone(appErrors.ErrValidation, "password must be at most 128 characters")
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return appErrors.Clone(appErrors.ErrValidation, "password must contain an uppercase letter, a lowercase letter and a digit")
	}
	return nil
}

// ValidateClubName enforces the club naming rule: 3-50 characters after
// trimming surrounding whitespace.
func ValidateClubName(name string) error {
	trimmed := strings.TrimSpace(name)
	if len(trimmed) < 3 || len(trimmed) > 50 {
		return appErrors.Clone(appErrors.ErrClubNameInvalid, "club name must be 3-50 characters")
	}
	return nil
}

// NormalizeIdentifier lowercases and trims an email or username input.
func NormalizeIdentifier(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
