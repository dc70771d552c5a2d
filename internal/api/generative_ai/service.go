package generativeAI

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/FACorreiaa/go-trip-itinerary-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-itinerary-planner/config"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/types"
)

const (
	defaultModel          = "gemini-2.0-flash"
	defaultEmbeddingModel = "text-embedding-004"
	defaultTimeout        = 15 * time.Second
)

// TextGenerator is the LLM text service consumed by the collector and the intent
// extractor.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Embedder turns text into a vector for the semantic retrieval channel.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

var (
	_ TextGenerator = (*AIClient)(nil)
	_ Embedder      = (*AIClient)(nil)
)

type AIClient struct {
	client           *genai.Client
	model            string
	embeddingModel   string
	temperature      float32
	timeout          time.Duration
	embeddingTimeout time.Duration
	limiter          *rate.Limiter
	logger           *slog.Logger
}

func NewAIClient(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (*AIClient, error) {
	apiKey := os.Getenv("GOOGLE_GEMINI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("GOOGLE_GEMINI_API_KEY environment variable is not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	ai := &AIClient{
		client:           client,
		model:            cfg.Model,
		embeddingModel:   cfg.EmbeddingModel,
		temperature:      cfg.Temperature,
		timeout:          cfg.Timeout,
		embeddingTimeout: cfg.EmbeddingTimeout,
		limiter:          newLimiter(cfg.RequestsPerSecond, cfg.Burst),
		logger:           logger.With(slog.String("component", "AIClient")),
	}
	if ai.model == "" {
		ai.model = defaultModel
	}
	if ai.embeddingModel == "" {
		ai.embeddingModel = defaultEmbeddingModel
	}
	if ai.timeout <= 0 {
		ai.timeout = defaultTimeout
	}
	if ai.embeddingTimeout <= 0 {
		ai.embeddingTimeout = ai.timeout
	}
	return ai, nil
}

func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// Generate sends one prompt and returns the model's text, expected to be JSON.
func (ai *AIClient) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := otel.Tracer("AIClient").Start(ctx, "Generate", trace.WithAttributes(
		attribute.String("llm.model", ai.model),
		attribute.Int("prompt.length", len(prompt)),
	))
	defer span.End()

	if err := ai.limiter.Wait(ctx); err != nil {
		return "", ai.fail(ctx, span, "llm", "generate", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, ai.timeout)
	defer cancel()

	result, err := ai.client.Models.GenerateContent(callCtx, ai.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(ai.temperature),
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", ai.fail(ctx, span, "llm", "generate", classify(callCtx, err))
	}
	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return "", ai.fail(ctx, span, "llm", "generate", errors.New("empty response"))
	}

	span.SetStatus(codes.Ok, "content generated")
	return text, nil
}

// Embed returns the embedding vector for text.
func (ai *AIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, span := otel.Tracer("AIClient").Start(ctx, "Embed", trace.WithAttributes(
		attribute.String("embedding.model", ai.embeddingModel),
	))
	defer span.End()

	if err := ai.limiter.Wait(ctx); err != nil {
		return nil, ai.fail(ctx, span, "embedding", "embed", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, ai.embeddingTimeout)
	defer cancel()

	result, err := ai.client.Models.EmbedContent(callCtx, ai.embeddingModel, genai.Text(text), nil)
	if err != nil {
		return nil, ai.fail(ctx, span, "embedding", "embed", classify(callCtx, err))
	}
	if len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, ai.fail(ctx, span, "embedding", "embed", errors.New("no embedding returned"))
	}

	span.SetAttributes(attribute.Int("embedding.dimension", len(result.Embeddings[0].Values)))
	span.SetStatus(codes.Ok, "embedding generated")
	return result.Embeddings[0].Values, nil
}

func (ai *AIClient) fail(ctx context.Context, span trace.Span, service, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, op+" failed")
	metrics.RecordExternalError(ctx, service)
	ai.logger.WarnContext(ctx, "External call failed",
		slog.String("service", service),
		slog.String("op", op),
		slog.Any("error", err))
	return types.NewExternalServiceError(service, op, err)
}

// classify tags deadline expiry with types.ErrTimeout so callers can tell a timeout
// from an API error.
func classify(callCtx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", types.ErrTimeout, err)
	}
	return err
}
