// names.go validates caller-supplied identifiers: usernames and the display
// names of organizations and projects.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// usernamePattern restricts usernames to URL- and log-safe characters. The
// first character must be alphanumeric so usernames never look like flags or
// relative paths.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

const (
	// MinUsernameLength is the minimum username length
	MinUsernameLength = 3
	// MaxUsernameLength is the maximum username length
	MaxUsernameLength = 64
	// MaxDisplayNameLength is the maximum organization or project name length
	MaxDisplayNameLength = 128
)

// ValidateUsername validates a username for account creation
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}

	if len(username) < MinUsernameLength {
		return fmt.Errorf("username must be at least %d characters", MinUsernameLength)
	}

	if len(username) > MaxUsernameLength {
		return fmt.Errorf("username must be at most %d characters", MaxUsernameLength)
	}

	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("username may only contain letters, digits, '.', '_', and '-', and must start with a letter or digit")
	}

	return nil
}

// ValidateDisplayName validates an organization or project name. Display names
// are free-form but must be printable, non-blank, and bounded.
func ValidateDisplayName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name cannot be blank")
	}

	if len(name) > MaxDisplayNameLength {
		return fmt.Errorf("name must be at most %d characters", MaxDisplayNameLength)
	}

	for _, r := range name {
		if !unicode.IsPrint(r) {
			return fmt.Errorf("name contains non-printable characters")
		}
	}

	return nil
}
