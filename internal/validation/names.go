package validation

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// BoardIDPattern defines the allowed board id format:
// latin letters, digits, dash and underscore, 1-64 characters.
var BoardIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

const (
	// MinDisplayNameLen is the minimum display name length
	MinDisplayNameLen = 1
	// MaxDisplayNameLen is the maximum display name length
	MaxDisplayNameLen = 32
)

// ValidateBoardID checks that a board id is safe to use as a
// collection key.
func ValidateBoardID(id string) error {
	if id == "" {
		return fmt.Errorf("board id cannot be empty")
	}
	if !BoardIDPattern.MatchString(id) {
		return fmt.Errorf("board id can only contain letters (a-z, A-Z), numbers (0-9), dashes (-) and underscores (_), up to 64 characters")
	}
	return nil
}

// ValidateDisplayName checks a user-facing display name. Any
// printable text is allowed; only the length is bounded.
func ValidateDisplayName(name string) error {
	if name == "" {
		return fmt.Errorf("display name cannot be empty")
	}
	n := utf8.RuneCountInString(name)
	if n < MinDisplayNameLen {
		return fmt.Errorf("display name must be at least %d characters long", MinDisplayNameLen)
	}
	if n > MaxDisplayNameLen {
		return fmt.Errorf("display name must not exceed %d characters", MaxDisplayNameLen)
	}
	return nil
}
