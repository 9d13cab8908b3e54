package validation

import (
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		valid bool
	}{
		{"valid_simple", "user@example.com", true},
		{"valid_subdomain", "user@mail.example.com", true},
		{"valid_plus", "user+tag@example.com", true},
		{"valid_dash", "user-name@example.com", true},
		{"valid_dot", "user.name@example.com", true},
		{"valid_numbers", "user123@example456.com", true},
		{"invalid_no_at", "userexample.com", false},
		{"invalid_no_domain", "user@", false},
		{"invalid_no_user", "@example.com", false},
		{"invalid_double_at", "user@@example.com", false},
		{"invalid_spaces", "user @example.com", false},
		{"invalid_no_tld", "user@example", false},
		{"too_long", "a" + string(make([]byte, 250)) + "@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValidEmail(tt.email)
			assert.Equal(t, tt.valid, result, "Email: %s", tt.email)
		})
	}
}

func TestIsValidUUID(t *testing.T) {
	tests := []struct {
		name  string
		uuid  string
		valid bool
	}{
		{"valid_uuid", "550e8400-e29b-41d4-a716-446655440000", true},
		{"valid_uppercase", "550E8400-E29B-41D4-A716-446655440000", true},
		{"valid_mixed", "550e8400-E29B-41d4-A716-446655440000", true},
		{"invalid_short", "550e8400-e29b-41d4-a716", false},
		{"invalid_long", "550e8400-e29b-41d4-a716-446655440000-extra", false},
		{"invalid_no_dashes", "550e8400e29b41d4a716446655440000", false},
		{"invalid_wrong_format", "550e8400-e29b-41d4a716-446655440000", false},
		{"invalid_letters", "ggge8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValidUUID(tt.uuid)
			assert.Equal(t, tt.valid, result, "UUID: %s", tt.uuid)
		})
	}
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"clean_text", "Hello World", "Hello World"},
		{"null_bytes", "Hello\x00World", "HelloWorld"},
		{"control_chars", "Hello\x01\x02World", "HelloWorld"},
		{"keep_newlines", "Hello\nWorld", "Hello\nWorld"},
		{"keep_tabs", "Hello\tWorld", "Hello\tWorld"},
		{"keep_carriage_return", "Hello\rWorld", "Hello\rWorld"},
		{"mixed", "Hello\x00\x01\nWorld\t!", "Hello\nWorld\t!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeString(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{"shorter_than_max", "Hello", 10, "Hello"},
		{"equal_to_max", "Hello", 5, "Hello"},
		{"longer_than_max", "Hello World", 5, "Hello"},
		{"empty", "", 10, ""},
		{"zero_max", "Hello", 0, ""},
		{"keeps_runes_whole", "héllo", 2, "h"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TruncateString(tt.input, tt.maxLen)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestIsValidPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		valid    bool
	}{
		{"too_short", "short", false},
		{"min_length", "12345678", true},
		{"no_composition_rules", "alllowercase", true},
		{"max_length", strings.Repeat("a", 128), true},
		{"too_long", strings.Repeat("a", 129), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, msg := IsValidPassword(tt.password)
			assert.Equal(t, tt.valid, valid)
			if tt.valid {
				assert.Empty(t, msg)
			} else {
				assert.NotEmpty(t, msg)
			}
		})
	}
}

func TestParseDateOfBirth(t *testing.T) {
	now := time.Date(2024, time.June, 1, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input string
		want  time.Time
		valid bool
	}{
		{"valid", "1990-06-01", time.Date(1990, time.June, 1, 0, 0, 0, 0, time.UTC), true},
		{"today", "2024-06-01", time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC), true},
		{"leap_day", "2000-02-29", time.Date(2000, time.February, 29, 0, 0, 0, 0, time.UTC), true},
		{"tomorrow", "2024-06-02", time.Time{}, false},
		{"empty", "", time.Time{}, false},
		{"wrong_format", "06/01/1990", time.Time{}, false},
		{"not_a_date", "1990-02-30", time.Time{}, false},
		{"with_time", "1990-06-01T00:00:00Z", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, msg := ParseDateOfBirth(tt.input, now)
			if tt.valid {
				assert.Empty(t, msg)
				assert.True(t, tt.want.Equal(got), "got %s", got)
			} else {
				assert.NotEmpty(t, msg)
			}
		})
	}
}

func TestIsValidTimezone(t *testing.T) {
	tests := []struct {
		name  string
		tz    string
		valid bool
	}{
		{"utc", "UTC", true},
		{"new_york", "America/New_York", true},
		{"kolkata", "Asia/Kolkata", true},
		{"empty", "", false},
		{"local", "Local", false},
		{"unknown", "Mars/Olympus_Mons", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidTimezone(tt.tz))
		})
	}
}

func TestIsValidWebhookURL(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		valid bool
	}{
		{"empty", "", true},
		{"https", "https://hooks.slack.com/services/T000/B000/XXXX", true},
		{"http_local", "http://localhost:9000/hook", true},
		{"relative", "/services/T000", false},
		{"no_host", "https://", false},
		{"ftp", "ftp://hooks.slack.com/x", false},
		{"garbage", "not a url", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, msg := IsValidWebhookURL(tt.url)
			assert.Equal(t, tt.valid, valid, "URL: %s", tt.url)
			if !tt.valid {
				assert.NotEmpty(t, msg)
			}
		})
	}
}

func TestValidateName(t *testing.T) {
	valid, _ := ValidateName("Ada")
	assert.True(t, valid)

	valid, msg := ValidateName("   ")
	assert.False(t, valid)
	assert.Equal(t, "Name is required", msg)

	valid, _ = ValidateName(strings.Repeat("n", 256))
	assert.False(t, valid)
}
