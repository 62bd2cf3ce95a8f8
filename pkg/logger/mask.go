package logger

import (
	"go.uber.org/zap"

	"github.com/troikatech/keycheck/pkg/credential"
)

// MaskSecret creates a zap field that shows only the masked form of a secret
func MaskSecret(key, secret string) zap.Field {
	return zap.String(key, credential.Mask(secret))
}

// MaskSecretIfPresent masks secret if not empty
func MaskSecretIfPresent(key, secret string) zap.Field {
	if secret == "" {
		return zap.String(key, "")
	}
	return MaskSecret(key, secret)
}
