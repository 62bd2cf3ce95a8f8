package probe

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/troikatech/keycheck/pkg/ai"
	"github.com/troikatech/keycheck/pkg/credential"
	"github.com/troikatech/keycheck/pkg/metrics"
	"github.com/troikatech/keycheck/pkg/otel"
)

// Fixed probe inputs. Every press sends exactly these.
const (
	TextPrompt = "This sentence is a test to check that an OpenAI API key works. Reply in one line only."

	ImagePrompt  = "simple flat blue square in the center on white background, minimal test image"
	ImageSize    = "1024x1024"
	ImageQuality = "low"
	ImageCount   = 1
)

// Backend is the remote API as seen by the probes.
type Backend interface {
	ai.TextCompleter
	ai.ImageGenerator
}

// BackendFactory builds a Backend authenticated with cred. It runs once per
// probe so no client outlives the request that loaded the key.
type BackendFactory func(cred credential.Credential) Backend

// OpenAIBackend returns a BackendFactory for the real API.
func OpenAIBackend(opts ai.ClientOptions, logger *zap.Logger) BackendFactory {
	return func(cred credential.Credential) Backend {
		return ai.NewOpenAIProvider(cred.Secret(), opts, logger)
	}
}

// Config fixes the models a Service targets.
type Config struct {
	TextModel  string
	ImageModel string
	// Timeout bounds a single probe; zero means only the caller's context applies.
	Timeout time.Duration
}

// Service runs probes. It holds no per-credential state.
type Service struct {
	cfg        Config
	newBackend BackendFactory
	logger     *zap.Logger
}

func NewService(cfg Config, newBackend BackendFactory, logger *zap.Logger) *Service {
	if cfg.TextModel == "" {
		cfg.TextModel = "gpt-4o-mini"
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = "gpt-image-1"
	}
	return &Service{cfg: cfg, newBackend: newBackend, logger: logger}
}

// TextModel returns the model the text probe calls.
func (s *Service) TextModel() string {
	return s.cfg.TextModel
}

// ImageModel returns the model the image probe calls.
func (s *Service) ImageModel() string {
	return s.cfg.ImageModel
}

// RunText sends the fixed prompt to the chat endpoint. It always returns a
// Result; errors are folded into Result.Failure.
func (s *Service) RunText(ctx context.Context, cred credential.Credential) *Result {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ctx, span := otel.StartProbeSpan(ctx, string(Text), s.cfg.TextModel)

	resp, err := s.newBackend(cred).Complete(ctx, &ai.CompletionRequest{
		Model:  s.cfg.TextModel,
		Prompt: TextPrompt,
	})
	if err != nil {
		f := Classify(err)
		return s.finishFailure(failed(Text, s.cfg.TextModel, f), span.Fail(string(f.Kind), err), cred)
	}

	return s.finishSuccess(textSuccess(s.cfg.TextModel, resp.Content), span.Succeed(), cred)
}

// RunImage asks the image endpoint for one small picture and decodes it.
func (s *Service) RunImage(ctx context.Context, cred credential.Credential) *Result {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ctx, span := otel.StartProbeSpan(ctx, string(Image), s.cfg.ImageModel)

	resp, err := s.newBackend(cred).GenerateImage(ctx, &ai.ImageRequest{
		Model:   s.cfg.ImageModel,
		Prompt:  ImagePrompt,
		Size:    ImageSize,
		Quality: ImageQuality,
		N:       ImageCount,
	})
	if err == nil {
		var data []byte
		data, err = decodeImage(resp.B64JSON)
		if err == nil {
			var contentType string
			contentType, err = imageType(data)
			if err == nil {
				return s.finishSuccess(imageSuccess(s.cfg.ImageModel, data, contentType), span.Succeed(), cred)
			}
		}
	}

	f := Classify(err)
	return s.finishFailure(failed(Image, s.cfg.ImageModel, f), span.Fail(string(f.Kind), err), cred)
}

func decodeImage(b64 string) ([]byte, error) {
	if b64 == "" {
		return nil, &DecodeError{Err: errEmptyPayload}
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return data, nil
}

// imageType sniffs the content type of data and rejects anything that is
// not an image.
func imageType(data []byte) (string, error) {
	mtype := mimetype.Detect(data)
	for m := mtype; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "image/") {
			return mtype.String(), nil
		}
	}
	return "", fmt.Errorf("%w: detected %s", errNotAnImage, mtype.String())
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, s.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

func (s *Service) finishSuccess(r *Result, latency time.Duration, cred credential.Credential) *Result {
	r.Latency = latency
	metrics.RecordProbe(string(r.Probe), true, "", latency)
	s.logger.Info("Probe succeeded",
		zap.String("probe", string(r.Probe)),
		zap.String("model", r.Model),
		zap.Stringer("api_key", cred),
		zap.Duration("latency", latency),
	)
	return r
}

func (s *Service) finishFailure(r *Result, latency time.Duration, cred credential.Credential) *Result {
	r.Latency = latency
	metrics.RecordProbe(string(r.Probe), false, string(r.Failure.Kind), latency)
	s.logger.Warn("Probe failed",
		zap.String("probe", string(r.Probe)),
		zap.String("model", r.Model),
		zap.Stringer("api_key", cred),
		zap.String("kind", string(r.Failure.Kind)),
		zap.Int("status_code", r.Failure.StatusCode),
		zap.String("message", r.Failure.Message),
		zap.Duration("latency", latency),
	)
	return r
}
