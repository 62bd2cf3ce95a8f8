package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/troikatech/keycheck/pkg/credential"
	"github.com/troikatech/keycheck/pkg/errors"
	"github.com/troikatech/keycheck/pkg/probe"
)

type probeFunc func(context.Context, credential.Credential) *probe.Result

type CredentialResponse struct {
	Present bool   `json:"present"`
	Masked  string `json:"masked,omitempty"`
}

// GetCredential reports whether a key is configured and its masked form.
func (h *Handler) GetCredential(c *gin.Context) {
	cred, _, err := h.loadCredential()
	if err != nil && !isMissing(err) {
		errors.InternalError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, CredentialResponse{Present: err == nil, Masked: cred.Masked()})
}

// ProbeText runs the text probe and returns the Result as JSON.
func (h *Handler) ProbeText(c *gin.Context) {
	h.runJSON(c, h.probes.RunText)
}

// ProbeImage runs the image probe and returns the Result as JSON. The image
// bytes are base64 encoded by encoding/json.
func (h *Handler) ProbeImage(c *gin.Context) {
	h.runJSON(c, h.probes.RunImage)
}

// runJSON answers 200 for any probe outcome: a failed probe is a valid
// diagnostic result, not a failed request.
func (h *Handler) runJSON(c *gin.Context, run probeFunc) {
	cred, msg, err := h.loadCredential()
	if err != nil {
		if isMissing(err) {
			errors.CredentialMissing(c, msg)
		} else {
			errors.InternalError(c, err, h.logger)
		}
		return
	}

	c.JSON(http.StatusOK, run(c.Request.Context(), cred))
}
