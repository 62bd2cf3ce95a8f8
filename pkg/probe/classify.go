package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/openai/openai-go/v3"

	"github.com/troikatech/keycheck/pkg/ai"
)

var (
	errEmptyPayload = errors.New("image payload is empty")
	errNotAnImage   = errors.New("decoded payload is not an image")
)

// DecodeError reports a malformed base64 image payload.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode base64 image payload: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Classify maps any probe error to a Failure. It never returns nil for a
// non-nil err.
func Classify(err error) *Failure {
	if err == nil {
		return nil
	}

	f := &Failure{
		Kind:    KindUnknown,
		Message: err.Error(),
		Detail:  fmt.Sprintf("%+v", err),
		cause:   err,
	}

	var apiErr *openai.Error
	var decodeErr *DecodeError
	var netErr net.Error

	switch {
	case errors.As(err, &apiErr):
		f.StatusCode = apiErr.StatusCode
		f.Kind = kindForStatus(apiErr.StatusCode)
		if apiErr.Message != "" {
			f.Message = apiErr.Message
		}
		if apiErr.Response != nil {
			f.RequestID = apiErr.Response.Header.Get("x-request-id")
		}
		f.Detail = apiErrorDetail(apiErr, err)
	case errors.As(err, &decodeErr):
		f.Kind = KindDecode
	case errors.Is(err, ai.ErrNoChoices), errors.Is(err, ai.ErrNoImages), errors.Is(err, errNotAnImage):
		f.Kind = KindBadResponse
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		f.Kind = KindNetwork
	case errors.As(err, &netErr):
		f.Kind = KindNetwork
	}

	return f
}

func kindForStatus(status int) FailureKind {
	switch {
	case status == http.StatusUnauthorized:
		return KindAuth
	case status == http.StatusForbidden:
		return KindPermission
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status >= 500:
		return KindServer
	case status >= 400:
		return KindBadRequest
	default:
		return KindUnknown
	}
}

func apiErrorDetail(apiErr *openai.Error, err error) string {
	detail := fmt.Sprintf("%s\n\nstatus: %d %s", err.Error(), apiErr.StatusCode, http.StatusText(apiErr.StatusCode))
	if apiErr.Type != "" {
		detail += "\ntype: " + apiErr.Type
	}
	if apiErr.Code != "" {
		detail += "\ncode: " + apiErr.Code
	}
	if apiErr.Param != "" {
		detail += "\nparam: " + apiErr.Param
	}
	return detail
}
