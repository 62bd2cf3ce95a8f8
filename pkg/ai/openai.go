package ai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

// OpenAIProvider calls the OpenAI chat and image endpoints with one key.
// It is cheap to build, so handlers create one per request from the key
// they just loaded.
type OpenAIProvider struct {
	client openai.Client
	logger *zap.Logger
}

// ClientOptions tunes the underlying SDK client
type ClientOptions struct {
	// BaseURL overrides the API root, e.g. for a proxy or a test server
	BaseURL string
}

// NewOpenAIProvider creates a new OpenAI provider. SDK retries are disabled:
// a probe is exactly one outbound call.
func NewOpenAIProvider(apiKey string, opts ClientOptions, logger *zap.Logger) *OpenAIProvider {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &OpenAIProvider{
		client: openai.NewClient(reqOpts...),
		logger: logger,
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Complete sends req.Prompt as a single user message and returns the first choice
func (p *OpenAIProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	p.logger.Debug("Sending chat completion", zap.String("model", req.Model))

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion with %s failed: %w", req.Model, err)
	}

	if len(resp.Choices) == 0 {
		return nil, ErrNoChoices
	}

	return &CompletionResponse{
		Content:   resp.Choices[0].Message.Content,
		Model:     resp.Model,
		RequestID: resp.ID,
	}, nil
}

// GenerateImage requests req.N images and returns the first one as base64
func (p *OpenAIProvider) GenerateImage(ctx context.Context, req *ImageRequest) (*ImageResponse, error) {
	p.logger.Debug("Sending image generation",
		zap.String("model", req.Model),
		zap.String("size", req.Size),
		zap.String("quality", req.Quality),
	)

	params := openai.ImageGenerateParams{
		Model:   openai.ImageModel(req.Model),
		Prompt:  req.Prompt,
		Size:    openai.ImageGenerateParamsSize(req.Size),
		Quality: openai.ImageGenerateParamsQuality(req.Quality),
	}
	if req.N > 0 {
		params.N = openai.Int(req.N)
	}

	resp, err := p.client.Images.Generate(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("image generation with %s failed: %w", req.Model, err)
	}

	if len(resp.Data) == 0 {
		return nil, ErrNoImages
	}

	return &ImageResponse{
		B64JSON: resp.Data[0].B64JSON,
		Count:   len(resp.Data),
	}, nil
}
