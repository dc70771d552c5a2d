package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-itinerary-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-itinerary-planner/config"
	generativeAI "github.com/FACorreiaa/go-trip-itinerary-planner/internal/api/generative_ai"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/api/intent"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/api/session"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/types"
)

const defaultMaxHistory = 20

var errEmptyExtraction = errors.New("model returned no slots")

// Service drives requirement collection for a session.
type Service interface {
	// Advance computes one collector step without touching storage. It never fails; a nil
	// question means every required slot is filled.
	Advance(ctx context.Context, state types.ConversationState, utterance string) (types.ConversationState, *string)
	CollectTurn(ctx context.Context, sessionID, utterance string) (*types.TurnReply, error)
	GetState(ctx context.Context, sessionID string) (*types.ConversationState, error)
}

var _ Service = (*ServiceImpl)(nil)

type ServiceImpl struct {
	llm        generativeAI.TextGenerator
	intents    intent.Service
	sessions   session.Repository
	required   []string
	maxHistory int
	now        func() time.Time
	logger     *slog.Logger
}

func NewService(llm generativeAI.TextGenerator, intents intent.Service, sessions session.Repository,
	cfg config.ConversationConfig, logger *slog.Logger) *ServiceImpl {
	required := cfg.RequiredSlots
	if len(required) == 0 {
		required = types.DefaultRequiredSlots
	}
	maxHistory := cfg.MaxHistory
	if maxHistory <= 0 {
		maxHistory = defaultMaxHistory
	}
	return &ServiceImpl{
		llm:        llm,
		intents:    intents,
		sessions:   sessions,
		required:   slices.Clone(required),
		maxHistory: maxHistory,
		now:        time.Now,
		logger:     logger,
	}
}

func (s *ServiceImpl) CollectTurn(ctx context.Context, sessionID, utterance string) (*types.TurnReply, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	ctx, span := otel.Tracer("ConversationService").Start(ctx, "CollectTurn", trace.WithAttributes(
		attribute.String("session.id", sessionID),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "CollectTurn"), slog.String("session_id", sessionID))

	unlock, err := s.sessions.Lock(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lock failed")
		l.ErrorContext(ctx, "Failed to lock session", slog.Any("error", err))
		return nil, fmt.Errorf("failed to lock session: %w", err)
	}
	defer unlock()

	stored, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		l.ErrorContext(ctx, "Failed to load session", slog.Any("error", err))
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	state := types.NewConversationState(sessionID)
	if stored != nil {
		state = *stored
	}

	next, question := s.Advance(ctx, state, utterance)
	next.UpdatedAt = s.now().UTC()
	if err := s.sessions.Save(ctx, next); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		l.ErrorContext(ctx, "Failed to save session", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	done := question == nil
	metrics.Get().ConversationTurnsTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("done", done)))
	span.SetAttributes(attribute.Bool("conversation.done", done), attribute.Int("conversation.turn", next.TurnCount))
	span.SetStatus(codes.Ok, "turn collected")

	reply := &types.TurnReply{SessionID: sessionID, Done: done, Intent: next.Intent}
	if done {
		reply.Reply = completionMessage(next)
	} else {
		reply.Reply = *question
	}
	return reply, nil
}

func (s *ServiceImpl) GetState(ctx context.Context, sessionID string) (*types.ConversationState, error) {
	state, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, types.ErrSessionNotFound
	}
	return state, nil
}

func (s *ServiceImpl) Advance(ctx context.Context, state types.ConversationState, utterance string) (next types.ConversationState, question *string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "Collector step panicked, keeping previous state",
				slog.String("session_id", state.SessionID),
				slog.Any("panic", r))
			next = state.Clone()
			next.TurnCount++
			question = s.questionOrNil(next)
		}
	}()
	return s.advance(ctx, state, utterance)
}

func (s *ServiceImpl) advance(ctx context.Context, state types.ConversationState, utterance string) (types.ConversationState, *string) {
	next := state.Clone()
	if next.CollectedInfo == nil {
		next.CollectedInfo = map[string]string{}
	}
	if next.StateType == types.StateComplete && next.Complete(s.required) {
		return next, nil
	}
	next.StateType = types.StateCollecting
	next.TurnCount++

	utterance = strings.TrimSpace(utterance)
	missing := next.MissingSlots(s.required)
	current := ""
	if len(missing) > 0 {
		current = missing[0]
	}

	if utterance != "" {
		next.ConversationHistory = append(next.ConversationHistory, types.ConversationTurn{
			Role:      types.RoleUser,
			Content:   utterance,
			Timestamp: s.now().UTC(),
		})

		updates, summary := s.extractSlots(ctx, state, utterance, current, missing)
		s.merge(&next, updates)
		if summary != "" {
			next.Summary = summary
		} else {
			next.Summary = summarise(next.CollectedInfo, s.required)
		}
	}

	if next.Complete(s.required) {
		next.StateType = types.StateComplete
		result := s.intents.ExtractFromSlots(ctx, next.CollectedInfo)
		extracted := result.Intent
		next.Intent = &extracted
		next.ConversationHistory = append(next.ConversationHistory, types.ConversationTurn{
			Role:      types.RoleAssistant,
			Content:   completionMessage(next),
			Timestamp: s.now().UTC(),
		})
		next.ConversationHistory = capHistory(next.ConversationHistory, s.maxHistory)
		return next, nil
	}

	q := nextQuestion(next.MissingSlots(s.required)[0], next.CollectedInfo)
	next.ConversationHistory = append(next.ConversationHistory, types.ConversationTurn{
		Role:      types.RoleAssistant,
		Content:   q,
		Timestamp: s.now().UTC(),
	})
	next.ConversationHistory = capHistory(next.ConversationHistory, s.maxHistory)
	return next, &q
}

func (s *ServiceImpl) questionOrNil(state types.ConversationState) *string {
	missing := state.MissingSlots(s.required)
	if len(missing) == 0 && state.StateType == types.StateComplete {
		return nil
	}
	if len(missing) == 0 {
		missing = []string{s.required[len(s.required)-1]}
	}
	q := nextQuestion(missing[0], state.CollectedInfo)
	return &q
}

// merge applies non-empty values. Unknown slot names are ignored.
func (s *ServiceImpl) merge(state *types.ConversationState, updates map[string]string) {
	for slot, value := range updates {
		value = strings.TrimSpace(value)
		if value == "" || !slices.Contains(s.required, slot) {
			continue
		}
		state.CollectedInfo[slot] = value
	}
}

// extractSlots asks the model first and falls back to the rule extractor on any failure.
func (s *ServiceImpl) extractSlots(ctx context.Context, state types.ConversationState, utterance, current string, missing []string) (map[string]string, string) {
	l := s.logger.With(slog.String("method", "extractSlots"), slog.String("session_id", state.SessionID))

	slots, summary, err := s.extractWithModel(ctx, state, utterance, current, missing)
	if err == nil {
		return slots, summary
	}

	reason := "api_error"
	var parseErr *types.ParseError
	switch {
	case s.llm == nil:
		reason = "no_model"
	case errors.Is(err, types.ErrTimeout):
		reason = "timeout"
	case errors.As(err, &parseErr), errors.Is(err, errEmptyExtraction):
		reason = "parse"
	}
	metrics.RecordFallback(ctx, "conversation", reason)
	l.WarnContext(ctx, "Slot extraction via LLM failed, using rules",
		slog.String("reason", reason),
		slog.Any("error", err))

	return extractSlotsByRules(utterance, current), ""
}

type slotExtraction struct {
	Slots   map[string]any `json:"slots"`
	Summary string         `json:"summary"`
}

func (s *ServiceImpl) extractWithModel(ctx context.Context, state types.ConversationState, utterance, current string, missing []string) (map[string]string, string, error) {
	if s.llm == nil {
		return nil, "", errors.New("no text generator configured")
	}
	response, err := s.llm.Generate(ctx, getSlotExtractionPrompt(state, utterance, current, missing, s.required))
	if err != nil {
		return nil, "", err
	}

	var out slotExtraction
	if err := json.Unmarshal([]byte(generativeAI.CleanJSONResponse(response)), &out); err != nil {
		return nil, "", &types.ParseError{Raw: response, Err: err}
	}

	slots := make(map[string]string, len(out.Slots))
	for name, raw := range out.Slots {
		var value string
		switch v := raw.(type) {
		case string:
			value = strings.TrimSpace(v)
		case float64:
			value = fmt.Sprintf("%g", v)
		case []any:
			parts := make([]string, 0, len(v))
			for _, p := range v {
				parts = append(parts, fmt.Sprint(p))
			}
			value = strings.Join(parts, ", ")
		case nil:
		default:
			value = fmt.Sprint(v)
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if value != "" && slices.Contains(s.required, name) {
			slots[name] = value
		}
	}
	if len(slots) == 0 {
		return nil, "", errEmptyExtraction
	}
	return slots, strings.TrimSpace(out.Summary), nil
}

func capHistory(history []types.ConversationTurn, limit int) []types.ConversationTurn {
	if len(history) <= limit {
		return history
	}
	return slices.Clone(history[len(history)-limit:])
}

func summarise(collected map[string]string, required []string) string {
	var parts []string
	for _, slot := range required {
		if v := collected[slot]; v != "" {
			parts = append(parts, slot+"="+v)
		}
	}
	return strings.Join(parts, "; ")
}
