package logger

import "strings"

// MaskEmail hides most of the local part so audit logs do not leak full
// addresses: "alice@example.com" -> "a***@example.com"
func MaskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}

// sensitiveParams are query parameter names that must never reach logs
var sensitiveParams = []string{"password", "token", "code", "secret", "key"}

// SanitizeQueryString reports whether a raw query string carries a sensitive
// parameter and should be redacted wholesale
func SanitizeQueryString(rawQuery string) bool {
	if rawQuery == "" {
		return false
	}
	lower := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(lower, param+"=") {
			return true
		}
	}
	return false
}
