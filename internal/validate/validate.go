// Package validate holds the input checks and sanitizers applied to topics,
// API keys and key names before they reach storage or the network.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"cageclock/internal/services"
)

const (
	MaxTopicLength   = 100
	MinAPIKeyLength  = 30
	MaxAPIKeyLength  = 50
	MaxSecretLength  = 100
	MaxKeyNameLength = 50
)

var dangerousTopicPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script`),
	regexp.MustCompile(`(?i)<iframe`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)data:`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
	regexp.MustCompile(`[<>]`),
}

// Result is the outcome of a check. Message is set when OK is false.
type Result struct {
	OK      bool
	Message string
}

func ok() Result { return Result{OK: true} }

func fail(msg string) Result { return Result{Message: msg} }

// Err converts a failed result into a validation error.
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	return services.Validation(r.Message)
}

// Topic rejects empty, overlong and markup-bearing topics.
func Topic(topic string) Result {
	if strings.TrimSpace(topic) == "" {
		return fail("Topic cannot be empty")
	}
	if utf8.RuneCountInString(topic) > MaxTopicLength {
		return fail(fmt.Sprintf("Topic must be %d characters or less", MaxTopicLength))
	}
	for _, pattern := range dangerousTopicPatterns {
		if pattern.MatchString(topic) {
			return fail("Topic contains invalid characters")
		}
	}
	return ok()
}

// SanitizeTopic trims, strips angle brackets and truncates to the topic limit.
func SanitizeTopic(topic string) string {
	cleaned := strings.NewReplacer("<", "", ">", "").Replace(strings.TrimSpace(topic))
	return truncateRunes(cleaned, MaxTopicLength)
}

// APIKey checks the shape of a YouTube Data API key.
func APIKey(key string) Result {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return fail("API key cannot be empty")
	}
	if n := utf8.RuneCountInString(trimmed); n < MinAPIKeyLength || n > MaxAPIKeyLength {
		return fail("Invalid API key format")
	}
	return ok()
}

// SanitizeAPIKey trims and bounds a pasted secret.
func SanitizeAPIKey(key string) string {
	return truncateRunes(strings.TrimSpace(key), MaxSecretLength)
}

// KeyName rejects overlong display names. Empty names are allowed.
func KeyName(name string) Result {
	if utf8.RuneCountInString(name) > MaxKeyNameLength {
		return fail(fmt.Sprintf("Name must be %d characters or less", MaxKeyNameLength))
	}
	return ok()
}

// SanitizeKeyName trims and truncates a display name.
func SanitizeKeyName(name string) string {
	return truncateRunes(strings.TrimSpace(name), MaxKeyNameLength)
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
