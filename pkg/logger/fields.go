package logger

import (
	"strings"

	"go.uber.org/zap"
)

var secretKeyHints = []string{"key", "token", "secret", "password", "authorization"}

// SafeFields returns zap fields with secret-looking values masked
func SafeFields(fields map[string]interface{}) []zap.Field {
	var zapFields []zap.Field

	for k, v := range fields {
		switch val := v.(type) {
		case string:
			if isSecretKey(k) {
				zapFields = append(zapFields, MaskSecretIfPresent(k, val))
			} else {
				zapFields = append(zapFields, zap.String(k, val))
			}
		case int:
			zapFields = append(zapFields, zap.Int(k, val))
		case int64:
			zapFields = append(zapFields, zap.Int64(k, val))
		case bool:
			zapFields = append(zapFields, zap.Bool(k, val))
		default:
			zapFields = append(zapFields, zap.Any(k, val))
		}
	}

	return zapFields
}

func isSecretKey(key string) bool {
	lower := strings.ToLower(key)
	for _, hint := range secretKeyHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}
