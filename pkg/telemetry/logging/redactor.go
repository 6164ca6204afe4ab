package logging

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Redactor masks sensitive values in log attributes.
//
// Attributes whose key names a credential are masked outright. Attributes
// carrying user content (the dream and its interpretation) are replaced by
// their length. Remaining string values are scanned for bearer tokens.
type Redactor struct {
	sensitiveKeys []string
	contentKeys   map[string]struct{}
	patterns      []*redactPattern
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	regex       *regexp.Regexp
	replacement string
}

// NewRedactor creates a Redactor with the built-in rules.
func NewRedactor() *Redactor {
	return &Redactor{
		sensitiveKeys: []string{
			"secret", "token", "password", "passwd",
			"authorization", "api_key", "apikey",
			"cf-access-client-secret",
		},
		contentKeys: map[string]struct{}{
			"dream":          {},
			"interpretation": {},
			"prompt":         {},
		},
		patterns: []*redactPattern{
			{
				regex:       regexp.MustCompile(`Bearer\s+[a-zA-Z0-9\-._~+/]+=*`),
				replacement: "Bearer ***",
			},
			{
				regex:       regexp.MustCompile(`(?i)(cf-access-client-secret[:=]\s*)[^\s,;]+`),
				replacement: "${1}***",
			},
		},
	}
}

// ReplaceAttr is a slog.HandlerOptions.ReplaceAttr hook.
func (r *Redactor) ReplaceAttr(_ []string, a slog.Attr) slog.Attr {
	key := strings.ToLower(a.Key)

	if _, ok := r.contentKeys[key]; ok {
		if s, isString := a.Value.Any().(string); isString {
			return slog.String(a.Key, fmt.Sprintf("[%d chars]", utf8.RuneCountInString(s)))
		}
	}

	if r.isSensitiveKey(key) {
		return slog.String(a.Key, RedactSecret(a.Value.String()))
	}

	if a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, r.RedactString(a.Value.String()))
	}
	return a
}

// RedactString masks secrets embedded in a string value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// isSensitiveKey checks if a lowercased key name indicates a credential.
func (r *Redactor) isSensitiveKey(key string) bool {
	for _, sensitive := range r.sensitiveKeys {
		if strings.Contains(key, sensitive) {
			return true
		}
	}
	return false
}

// RedactSecret masks a credential, keeping only a short prefix.
func RedactSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "***"
	}
	return secret[:4] + "***"
}
