// Package probe runs the text and image capability checks against the
// OpenAI API and turns every outcome into a Result.
package probe

import (
	"encoding/base64"
	"time"
)

// Name identifies a probe.
type Name string

const (
	Text  Name = "text"
	Image Name = "image"
)

// Status is the terminal state of one probe run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// FailureKind tells an operator which part of the setup to look at.
type FailureKind string

const (
	KindAuth        FailureKind = "auth"
	KindPermission  FailureKind = "permission"
	KindRateLimit   FailureKind = "rate_limit"
	KindBadRequest  FailureKind = "bad_request"
	KindServer      FailureKind = "server"
	KindNetwork     FailureKind = "network"
	KindBadResponse FailureKind = "bad_response"
	KindDecode      FailureKind = "decode"
	KindUnknown     FailureKind = "unknown"
)

// Result is either a success payload or a Failure. Exactly one of the
// payload fields (Text or Image) is set on success; Failure is set
// otherwise.
type Result struct {
	Probe   Name          `json:"probe"`
	Status  Status        `json:"status"`
	Model   string        `json:"model"`
	Latency time.Duration `json:"latency_ns"`

	Text        string `json:"text,omitempty"`
	Image       []byte `json:"image,omitempty"`
	ContentType string `json:"content_type,omitempty"`

	Failure *Failure `json:"failure,omitempty"`
}

// Failure describes why a probe did not succeed.
type Failure struct {
	Kind       FailureKind `json:"kind"`
	Message    string      `json:"message"`
	Detail     string      `json:"detail"`
	StatusCode int         `json:"status_code,omitempty"`
	RequestID  string      `json:"request_id,omitempty"`

	cause error
}

// Unwrap returns the underlying error.
func (f *Failure) Unwrap() error {
	return f.cause
}

func (f *Failure) Error() string {
	return string(f.Kind) + ": " + f.Message
}

// OK reports whether the probe succeeded.
func (r *Result) OK() bool {
	return r.Status == StatusSuccess
}

// ImageDataURL returns the image as a data: URL for inline display.
func (r *Result) ImageDataURL() string {
	if len(r.Image) == 0 {
		return ""
	}
	return "data:" + r.ContentType + ";base64," + base64.StdEncoding.EncodeToString(r.Image)
}

func textSuccess(model, text string) *Result {
	return &Result{Probe: Text, Status: StatusSuccess, Model: model, Text: text}
}

func imageSuccess(model string, image []byte, contentType string) *Result {
	return &Result{Probe: Image, Status: StatusSuccess, Model: model, Image: image, ContentType: contentType}
}

func failed(probe Name, model string, f *Failure) *Result {
	return &Result{Probe: probe, Status: StatusFailure, Model: model, Failure: f}
}
