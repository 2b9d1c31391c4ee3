package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue replaces secrets in log output.
const RedactedValue = "[REDACTED]"

// secretKeys are compared after lowercasing and dropping '_' and '-'.
var secretKeys = map[string]struct{}{
	"passphrase":    {},
	"password":      {},
	"secret":        {},
	"token":         {},
	"bearer":        {},
	"authorization": {},
	"privatekey":    {},
	"signature":     {},
}

var keyNormalizer = strings.NewReplacer("_", "", "-", "")

// IsSecretKey reports whether values logged under key are always redacted.
func IsSecretKey(key string) bool {
	_, ok := secretKeys[keyNormalizer.Replace(strings.ToLower(strings.TrimSpace(key)))]
	return ok
}

// MaskField keeps the first six and last four characters of value. Values
// shorter than 16 characters or logged under a secret key are replaced.
func MaskField(key, value string) slog.Attr {
	trimmed := strings.TrimSpace(value)
	switch {
	case trimmed == "":
		return slog.String(key, value)
	case IsSecretKey(key) || len(trimmed) < 16:
		return slog.String(key, RedactedValue)
	default:
		return slog.String(key, trimmed[:6]+"..."+trimmed[len(trimmed)-4:])
	}
}

// redactSecrets is the handler hook applied to every attribute, so a secret
// logged without MaskField is still scrubbed.
func redactSecrets(attr slog.Attr) slog.Attr {
	if !IsSecretKey(attr.Key) {
		return attr
	}
	if attr.Value.Kind() == slog.KindString && attr.Value.String() == "" {
		return attr
	}
	return slog.String(attr.Key, RedactedValue)
}
