package keystore

import (
	"fmt"
	"time"
)

// MaskKey shows the first 8 and last 4 characters of a secret. Secrets shorter
// than 12 characters are returned unchanged.
func MaskKey(secret string) string {
	if len(secret) < 12 {
		return secret
	}
	return secret[:8] + "..." + secret[len(secret)-4:]
}

// FormatTimeAgo renders the age of ts relative to now in whole minutes, hours
// or days.
func FormatTimeAgo(ts, now time.Time) string {
	if ts.IsZero() {
		return "Unknown"
	}
	diff := now.Sub(ts)
	if diff < 0 {
		diff = 0
	}
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff/time.Minute))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff/time.Hour))
	default:
		return fmt.Sprintf("%dd ago", int(diff/(24*time.Hour)))
	}
}

// VerificationStatus summarizes a key's last probe for display.
func VerificationStatus(k APIKey, now time.Time) string {
	if !k.IsValid {
		return "Invalid (checked " + FormatTimeAgo(k.LastVerified, now) + ")"
	}
	return "Verified " + FormatTimeAgo(k.LastVerified, now)
}
