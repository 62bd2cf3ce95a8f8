package handlers

import (
	"errors"

	"go.uber.org/zap"

	"github.com/troikatech/keycheck/pkg/credential"
	"github.com/troikatech/keycheck/pkg/env"
	"github.com/troikatech/keycheck/pkg/metrics"
	"github.com/troikatech/keycheck/pkg/probe"
)

const pageTitle = "OpenAI API key check"

type Handler struct {
	cfg    *env.Config
	loader *credential.Loader
	probes *probe.Service
	logger *zap.Logger
}

func NewHandler(cfg *env.Config, loader *credential.Loader, probes *probe.Service, logger *zap.Logger) *Handler {
	return &Handler{
		cfg:    cfg,
		loader: loader,
		probes: probes,
		logger: logger,
	}
}

// loadCredential is the per-request precondition every probe route runs
// first. On error it also returns the user-facing message.
func (h *Handler) loadCredential() (credential.Credential, string, error) {
	cred, err := h.loader.Load()
	if err == nil {
		return cred, "", nil
	}

	metrics.RecordCredentialMissing()
	if isMissing(err) {
		h.logger.Warn("API key not configured", zap.String("env_key", credential.EnvKey))
		return "", "GPT_API_KEY is not set. Check the .env file or the process environment, then reload this page.", err
	}

	h.logger.Error("Failed to load API key", zap.Error(err))
	return "", "GPT_API_KEY could not be loaded: " + err.Error(), err
}

func isMissing(err error) bool {
	return errors.Is(err, credential.ErrMissingCredential)
}
