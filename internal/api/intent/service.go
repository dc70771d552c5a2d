package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-itinerary-planner/app/observability/metrics"
	generativeAI "github.com/FACorreiaa/go-trip-itinerary-planner/internal/api/generative_ai"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/types"
)

type Source string

const (
	SourceLLM   Source = "llm"
	SourceRules Source = "rules"
)

type ExtractionResult struct {
	Intent types.TripIntent `json:"intent"`
	Source Source           `json:"source"`
}

// Service turns free text or collected slots into a TripIntent. It never fails: any
// LLM problem falls back to the rule parser.
type Service interface {
	ExtractIntent(ctx context.Context, text string) ExtractionResult
	ExtractFromSlots(ctx context.Context, slots map[string]string) ExtractionResult
}

var _ Service = (*ServiceImpl)(nil)

var errNoModel = errors.New("no text generator configured")

type ServiceImpl struct {
	llm    generativeAI.TextGenerator
	logger *slog.Logger
}

// NewService accepts a nil generator, in which case only the rule parser is used.
func NewService(llm generativeAI.TextGenerator, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		llm:    llm,
		logger: logger,
	}
}

func (s *ServiceImpl) ExtractIntent(ctx context.Context, text string) ExtractionResult {
	return s.extract(ctx, "ExtractIntent", text, func() types.TripIntent { return ParseRules(text) })
}

func (s *ServiceImpl) ExtractFromSlots(ctx context.Context, slots map[string]string) ExtractionResult {
	text := RenderSlots(slots)
	return s.extract(ctx, "ExtractFromSlots", text, func() types.TripIntent { return ParseSlots(slots) })
}

func (s *ServiceImpl) extract(ctx context.Context, method, text string, fallback func() types.TripIntent) ExtractionResult {
	ctx, span := otel.Tracer("IntentService").Start(ctx, method, trace.WithAttributes(
		attribute.Int("text.length", len(text)),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", method))

	intent, err := s.fromLLM(ctx, text)
	if err == nil {
		span.SetAttributes(attribute.String("intent.source", string(SourceLLM)))
		span.SetStatus(codes.Ok, "intent extracted")
		return ExtractionResult{Intent: intent, Source: SourceLLM}
	}

	reason := fallbackReason(err)
	span.RecordError(err)
	span.SetAttributes(
		attribute.String("intent.source", string(SourceRules)),
		attribute.String("fallback.reason", reason),
	)
	metrics.RecordFallback(ctx, "intent", reason)
	l.WarnContext(ctx, "LLM intent extraction failed, using rule parser",
		slog.String("reason", reason),
		slog.Any("error", err))

	return ExtractionResult{Intent: fallback(), Source: SourceRules}
}

func fallbackReason(err error) string {
	var parseErr *types.ParseError
	switch {
	case errors.Is(err, errNoModel):
		return "no_model"
	case errors.Is(err, types.ErrTimeout):
		return "timeout"
	case errors.As(err, &parseErr):
		return "parse"
	case types.IsValidationError(err):
		return "invalid"
	default:
		return "api_error"
	}
}

type llmBudget struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// llmIntent mirrors the JSON object requested by getIntentPrompt.
type llmIntent struct {
	Days                int        `json:"days"`
	Themes              []string   `json:"themes"`
	AccommodationType   string     `json:"accommodation_type"`
	StartTime           string     `json:"start_time"`
	EndTime             string     `json:"end_time"`
	BudgetRange         *llmBudget `json:"budget_range"`
	SpecialRequirements string     `json:"special_requirements"`
	Destination         string     `json:"destination"`
	LocationPreference  string     `json:"location_preference"`
}

func (s *ServiceImpl) fromLLM(ctx context.Context, text string) (types.TripIntent, error) {
	if s.llm == nil {
		return types.TripIntent{}, errNoModel
	}
	response, err := s.llm.Generate(ctx, getIntentPrompt(text))
	if err != nil {
		return types.TripIntent{}, err
	}

	cleaned := generativeAI.CleanJSONResponse(response)
	if err := validateAgainstSchema([]byte(cleaned)); err != nil {
		return types.TripIntent{}, &types.ParseError{Raw: response, Err: err}
	}
	var raw llmIntent
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return types.TripIntent{}, &types.ParseError{Raw: response, Err: err}
	}

	intent, err := raw.toIntent()
	if err != nil {
		return types.TripIntent{}, err
	}
	if intent.Destination == "" {
		intent.Destination = MatchDestination(text)
	}
	if err := intent.Validate(); err != nil {
		return types.TripIntent{}, err
	}
	return intent, nil
}

func (r llmIntent) toIntent() (types.TripIntent, error) {
	intent := DefaultIntent()
	intent.Days = r.Days

	var themes []string
	for _, t := range r.Themes {
		t = strings.ToLower(strings.TrimSpace(t))
		candidates := []string{t}
		if !types.IsKnownTheme(t) {
			candidates = MatchThemes(t)
		}
		for _, c := range candidates {
			if !slices.Contains(themes, c) {
				themes = append(themes, c)
			}
		}
	}
	if len(themes) > 0 {
		intent.Themes = themes
	}

	if r.StartTime != "" {
		start, err := types.ParseClock(r.StartTime)
		if err != nil {
			return types.TripIntent{}, &types.ValidationError{Field: "start_time", Reason: err.Error()}
		}
		intent.TimeWindow.Start = start
	}
	if r.EndTime != "" {
		end, err := types.ParseClock(r.EndTime)
		if err != nil {
			return types.TripIntent{}, &types.ValidationError{Field: "end_time", Reason: err.Error()}
		}
		intent.TimeWindow.End = end
	}

	if r.AccommodationType != "" {
		intent.AccommodationPref.Type = types.AccommodationType(r.AccommodationType)
	}
	if r.BudgetRange != nil && (r.BudgetRange.Min > 0 || r.BudgetRange.Max > 0) {
		intent.AccommodationPref.BudgetRange = &types.BudgetRange{Min: r.BudgetRange.Min, Max: r.BudgetRange.Max}
	}
	if lp := strings.ToLower(strings.TrimSpace(r.LocationPreference)); lp != "" {
		if lp == types.LocationPreferenceNearAttractions || ParseLocationPreference(lp) == types.LocationPreferenceNearAttractions {
			intent.AccommodationPref.LocationPreference = types.LocationPreferenceNearAttractions
		}
	}
	intent.SpecialRequirements = strings.TrimSpace(r.SpecialRequirements)
	intent.Destination = strings.TrimSpace(r.Destination)

	if intent.TimeWindow.Start >= intent.TimeWindow.End {
		return types.TripIntent{}, &types.ValidationError{
			Field:  "time_window",
			Reason: fmt.Sprintf("start %s must be before end %s", intent.TimeWindow.Start, intent.TimeWindow.End),
		}
	}
	return intent, nil
}
