package ai

import (
	"context"
	"errors"
)

var (
	// ErrNoChoices is returned when a chat completion comes back empty
	ErrNoChoices = errors.New("chat completion returned no choices")

	// ErrNoImages is returned when image generation comes back empty
	ErrNoImages = errors.New("image generation returned no images")
)

// TextCompleter sends a single user prompt to a chat model
type TextCompleter interface {
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
}

// ImageGenerator asks an image model for pictures
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req *ImageRequest) (*ImageResponse, error)
}

// CompletionRequest represents a one-message chat completion request
type CompletionRequest struct {
	Model  string
	Prompt string
}

// CompletionResponse carries the first choice of a chat completion
type CompletionResponse struct {
	Content   string `json:"content"`
	Model     string `json:"model"`
	RequestID string `json:"request_id,omitempty"`
}

// ImageRequest represents an image generation request
type ImageRequest struct {
	Model   string
	Prompt  string
	Size    string
	Quality string
	N       int64
}

// ImageResponse carries the base64 payload of the first generated image.
// Decoding is left to the caller so a malformed payload can be reported as
// such.
type ImageResponse struct {
	B64JSON string `json:"b64_json"`
	Count   int    `json:"count"`
}
