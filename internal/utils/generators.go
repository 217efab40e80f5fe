package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	DefaultBadgePrefix  = "AIS2025"
	PersonalBadgePrefix = "CBA"
	badgeSuffixLength   = 8
)

var handlePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]{1,47}$`)

// GenerateBadgeID returns "<prefix>-XXXXXXXX" where the suffix is the first
// eight hex digits of a random UUID, upper-cased.
func GenerateBadgeID(prefix string) string {
	if prefix == "" {
		prefix = DefaultBadgePrefix
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:badgeSuffixLength]
	return fmt.Sprintf("%s-%s", prefix, strings.ToUpper(suffix))
}

// NormalizeQRHandle lower-cases and trims a handle, dropping a leading "@".
func NormalizeQRHandle(handle string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(handle), "@"))
}

// ValidQRHandle reports whether a normalized handle can be printed and scanned.
func ValidQRHandle(handle string) bool {
	return handlePattern.MatchString(handle)
}

// GeneratePersonalBadgeID derives the stable personal badge id from a handle,
// e.g. "theprocessguru" -> "CBA-THEPROCESSGURU".
func GeneratePersonalBadgeID(handle string) string {
	return fmt.Sprintf("%s-%s", PersonalBadgePrefix, strings.ToUpper(NormalizeQRHandle(handle)))
}
