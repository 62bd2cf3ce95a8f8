// Package credential loads the OpenAI API key and masks it for display.
package credential

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// EnvKey is the environment variable holding the API key.
const EnvKey = "GPT_API_KEY"

// ErrMissingCredential is returned when no usable key is configured.
var ErrMissingCredential = errors.New(EnvKey + " is not set; check the environment or the .env file")

const (
	maskPrefixLen = 7
	maskSuffixLen = 4
	maskEllipsis  = "..."
	maskRune      = "•"
)

// Credential is the raw API key. String returns the masked form, so
// formatting a Credential never leaks the secret.
type Credential string

// Secret returns the raw key for outbound authentication.
func (c Credential) Secret() string {
	return string(c)
}

// Masked returns the display form of the key.
func (c Credential) Masked() string {
	return Mask(string(c))
}

func (c Credential) String() string {
	return c.Masked()
}

// Mask shows the first 7 and last 4 characters of secret joined by "...".
// Secrets shorter than 11 characters would overlap, so they are masked
// entirely.
func Mask(secret string) string {
	runes := []rune(secret)
	if len(runes) < maskPrefixLen+maskSuffixLen {
		return strings.Repeat(maskRune, len(runes))
	}
	return string(runes[:maskPrefixLen]) + maskEllipsis + string(runes[len(runes)-maskSuffixLen:])
}

// Loader reads the key on every call. The process environment wins over the
// .env file; the file is re-read each time so fixing it only needs a reload.
type Loader struct {
	envFile string
	lookup  func(string) (string, bool)
}

// NewLoader returns a Loader backed by the process environment and envFile.
// An empty envFile disables the file fallback.
func NewLoader(envFile string) *Loader {
	return &Loader{envFile: envFile, lookup: os.LookupEnv}
}

// NewLoaderWithLookup is NewLoader with a custom environment lookup.
func NewLoaderWithLookup(envFile string, lookup func(string) (string, bool)) *Loader {
	return &Loader{envFile: envFile, lookup: lookup}
}

// Load returns the configured key or ErrMissingCredential.
func (l *Loader) Load() (Credential, error) {
	if value, ok := l.lookup(EnvKey); ok && strings.TrimSpace(value) != "" {
		return Credential(value), nil
	}

	if l.envFile != "" {
		values, err := godotenv.Read(l.envFile)
		if err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to read %s: %w", l.envFile, err)
		}
		if value := values[EnvKey]; strings.TrimSpace(value) != "" {
			return Credential(value), nil
		}
	}

	return "", ErrMissingCredential
}
