package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/troikatech/keycheck/internal/web"
	"github.com/troikatech/keycheck/pkg/middleware"
	"github.com/troikatech/keycheck/pkg/probe"
)

// Index renders the page with no probe result.
func (h *Handler) Index(c *gin.Context) {
	h.renderPage(c, nil)
}

// RunTextProbe handles the text test button.
func (h *Handler) RunTextProbe(c *gin.Context) {
	h.renderPage(c, func(page *web.Page, run runner) {
		page.Text = web.NewProbeView(run(h.probes.RunText))
	})
}

// RunImageProbe handles the image test button.
func (h *Handler) RunImageProbe(c *gin.Context) {
	h.renderPage(c, func(page *web.Page, run runner) {
		page.Image = web.NewProbeView(run(h.probes.RunImage))
	})
}

type runner func(probeFunc) *probe.Result

// renderPage loads the key, runs fill when the key is present and renders.
// A missing key renders the error banner only, with 503.
func (h *Handler) renderPage(c *gin.Context, fill func(*web.Page, runner)) {
	page := web.Page{
		Title:        pageTitle,
		CSRFToken:    middleware.CSRFToken(c),
		TextModel:    h.probes.TextModel(),
		ImageModel:   h.probes.ImageModel(),
		ImageSize:    probe.ImageSize,
		ImageQuality: probe.ImageQuality,
	}

	cred, msg, err := h.loadCredential()
	if err != nil {
		page.ConfigError = msg
		c.HTML(http.StatusServiceUnavailable, "page", page)
		return
	}

	page.KeyPresent = true
	page.MaskedKey = cred.Masked()

	if fill != nil {
		fill(&page, func(run probeFunc) *probe.Result {
			return run(c.Request.Context(), cred)
		})
	}

	c.HTML(http.StatusOK, "page", page)
}
