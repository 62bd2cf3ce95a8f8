package web

import (
	"html/template"
	"time"

	"github.com/troikatech/keycheck/pkg/probe"
)

// Page is everything the page template renders.
type Page struct {
	Title     string
	CSRFToken string

	// KeyPresent false means a configuration error: no probe forms are shown.
	KeyPresent  bool
	MaskedKey   string
	ConfigError string

	TextModel    string
	ImageModel   string
	ImageSize    string
	ImageQuality string

	Text  *ProbeView
	Image *ProbeView
}

// ProbeView is a probe.Result prepared for the template.
type ProbeView struct {
	OK      bool
	Model   string
	Latency string

	Reply       template.HTML
	ImageSrc    template.URL
	ContentType string
	ImageBytes  int

	Kind       string
	Message    string
	Detail     string
	StatusCode int
	RequestID  string
}

// NewProbeView converts r. The reply HTML is sanitized before it is marked
// safe; the data: URL is built from decoded bytes and a sniffed type.
func NewProbeView(r *probe.Result) *ProbeView {
	if r == nil {
		return nil
	}

	v := &ProbeView{
		OK:      r.OK(),
		Model:   r.Model,
		Latency: r.Latency.Round(time.Millisecond).String(),
	}

	if r.OK() {
		v.Reply = template.HTML(RenderMarkdown(r.Text))
		if len(r.Image) > 0 {
			v.ImageSrc = template.URL(r.ImageDataURL())
			v.ContentType = r.ContentType
			v.ImageBytes = len(r.Image)
		}
		return v
	}

	v.Kind = string(r.Failure.Kind)
	v.Message = r.Failure.Message
	v.Detail = r.Failure.Detail
	v.StatusCode = r.Failure.StatusCode
	v.RequestID = r.Failure.RequestID
	return v
}

// Hint returns operator guidance for a failure kind.
func (v *ProbeView) Hint() string {
	switch probe.FailureKind(v.Kind) {
	case probe.KindAuth:
		return "The key was rejected. Check that it was copied completely and has not been revoked."
	case probe.KindPermission:
		return "The key works but this account or project is not allowed to use the model."
	case probe.KindRateLimit:
		return "Rate limit or quota exceeded. Check billing and usage limits for the account."
	case probe.KindNetwork:
		return "The API could not be reached. Check network access and proxy settings."
	case probe.KindServer:
		return "The API reported a server error. Try again later."
	case probe.KindDecode, probe.KindBadResponse:
		return "The API answered with an unexpected payload."
	default:
		return ""
	}
}
