package utils

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._:\-]{0,127}$`)
	controlChars      = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
)

// ValidateIdentifier checks a site, user or form identifier: up to 128
// letters, digits, dots, colons, hyphens or underscores, not starting with
// punctuation
func ValidateIdentifier(kind, id string) error {
	if !identifierPattern.MatchString(id) {
		return fmt.Errorf("invalid %s: %q", kind, id)
	}
	return nil
}

// SanitizeString trims surrounding space and strips control characters
// other than tab and newline
func SanitizeString(s string) string {
	return strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
}
