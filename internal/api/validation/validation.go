package validation

import (
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/hugh/birthday-buddy/internal/database/models"
	"github.com/hugh/birthday-buddy/internal/service"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
	MaxNameLength     = 255
)

var (
	// EmailRegex validates email format
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	// UUIDRegex validates UUID format
	uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
)

// IsValidEmail checks if the string is a valid email format
func IsValidEmail(email string) bool {
	if len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(email)
}

// IsValidUUID checks if the string is a valid UUID format
func IsValidUUID(id string) bool {
	return uuidRegex.MatchString(id)
}

// IsValidPassword checks password length. Composition rules are left to the user.
func IsValidPassword(password string) (bool, string) {
	if len(password) < MinPasswordLength {
		return false, "Password must be at least 8 characters"
	}
	if len(password) > MaxPasswordLength {
		return false, "Password must be at most 128 characters"
	}
	return true, ""
}

// ParseDateOfBirth parses a YYYY-MM-DD date and rejects dates after today.
func ParseDateOfBirth(s string, now time.Time) (time.Time, string) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, "Date of birth is required"
	}
	d, err := models.ParseDate(s)
	if err != nil {
		return time.Time{}, "Date of birth must be formatted as YYYY-MM-DD"
	}
	if d.After(models.DateOf(now)) {
		return time.Time{}, "Date of birth cannot be in the future"
	}
	return d, ""
}

// IsValidTimezone reports whether name is a loadable IANA zone.
func IsValidTimezone(name string) bool {
	_, err := service.LoadLocation(name)
	return err == nil
}

// IsValidWebhookURL accepts absolute http(s) URLs with a host. Empty is
// valid and means "no webhook".
func IsValidWebhookURL(raw string) (bool, string) {
	if raw == "" {
		return true, ""
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return false, "Webhook must be an absolute URL"
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false, "Webhook must start with http:// or https://"
	}
	return true, ""
}

// ValidateName checks a required display name.
func ValidateName(name string) (bool, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, "Name is required"
	}
	if len(name) > MaxNameLength {
		return false, "Name must be at most 255 characters"
	}
	return true, ""
}

// SanitizeString removes potentially dangerous characters for display
func SanitizeString(s string) string {
	// Remove null bytes
	s = strings.ReplaceAll(s, "\x00", "")

	// Remove control characters except newlines and tabs
	var result strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}

	return result.String()
}

// TruncateString truncates a string to maxLen bytes without splitting a rune.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	for maxLen > 0 && !utf8.RuneStart(s[maxLen]) {
		maxLen--
	}
	return s[:maxLen]
}
