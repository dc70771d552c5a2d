package conversation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-itinerary-planner/config"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/api/intent"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/api/session"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/types"
)

type MockTextGenerator struct {
	mock.Mock
}

func (m *MockTextGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type MockIntentService struct {
	mock.Mock
}

func (m *MockIntentService) ExtractIntent(ctx context.Context, text string) intent.ExtractionResult {
	args := m.Called(ctx, text)
	return args.Get(0).(intent.ExtractionResult)
}

func (m *MockIntentService) ExtractFromSlots(ctx context.Context, slots map[string]string) intent.ExtractionResult {
	args := m.Called(ctx, slots)
	return args.Get(0).(intent.ExtractionResult)
}

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Load(ctx context.Context, sessionID string) (*types.ConversationState, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.ConversationState), args.Error(1)
}

func (m *MockRepository) Save(ctx context.Context, state types.ConversationState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

func (m *MockRepository) Lock(ctx context.Context, sessionID string) (func(), error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func()), args.Error(1)
}

type panickingIntents struct{}

func (panickingIntents) ExtractIntent(context.Context, string) intent.ExtractionResult {
	panic("intent extractor exploded")
}

func (panickingIntents) ExtractFromSlots(context.Context, map[string]string) intent.ExtractionResult {
	panic("intent extractor exploded")
}

func newMemoryRepository() *session.RepositoryImpl {
	return session.NewRepository(session.NewMemoryStore(time.Minute), time.Hour, slog.Default())
}

func setupService(t *testing.T) (*ServiceImpl, *MockTextGenerator) {
	t.Helper()
	llm := new(MockTextGenerator)
	svc := NewService(llm, intent.NewService(nil, slog.Default()), newMemoryRepository(), config.ConversationConfig{}, slog.Default())
	return svc, llm
}

func TestCollectTurn_RuleFallbackConversation(t *testing.T) {
	ctx := context.Background()
	service, llm := setupService(t)
	llm.On("Generate", mock.Anything, mock.AnythingOfType("string")).
		Return("", types.NewExternalServiceError("llm", "generate", errors.New("503 unavailable")))

	reply, err := service.CollectTurn(ctx, "", "")
	require.NoError(t, err)
	require.NotEmpty(t, reply.SessionID)
	assert.False(t, reply.Done)
	assert.Equal(t, "Where would you like to go?", reply.Reply)
	id := reply.SessionID

	turns := []struct {
		utterance string
		contains  string
	}{
		{"我想去宜蘭", "Yilan"},
		{"3", "3 days in Yilan"},
		{"溫泉和美食", "budget"},
		{"3000", "relaxed pace"},
		{"yes", "travelling alone"},
	}
	for _, turn := range turns {
		reply, err = service.CollectTurn(ctx, id, turn.utterance)
		require.NoError(t, err)
		assert.False(t, reply.Done, "after %q", turn.utterance)
		assert.Contains(t, reply.Reply, turn.contains)
		assert.Nil(t, reply.Intent)
	}

	reply, err = service.CollectTurn(ctx, id, "2")
	require.NoError(t, err)
	assert.True(t, reply.Done)
	assert.Equal(t, "Thanks! I have everything I need to plan your 3-day trip to Yilan.", reply.Reply)
	require.NotNil(t, reply.Intent)
	assert.Equal(t, 3, reply.Intent.Days)
	assert.Equal(t, "Yilan", reply.Intent.Destination)
	assert.Equal(t, []string{types.ThemeFood, types.ThemeRelaxation}, reply.Intent.Themes)
	assert.Equal(t, types.TimeWindow{Start: types.Clock(10, 0), End: types.Clock(17, 0)}, reply.Intent.TimeWindow)
	require.NotNil(t, reply.Intent.AccommodationPref.BudgetRange)
	assert.Equal(t, 3000.0, reply.Intent.AccommodationPref.BudgetRange.Max)

	state, err := service.GetState(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.StateComplete, state.StateType)
	assert.Equal(t, 7, state.TurnCount)
	assert.Equal(t, map[string]string{
		types.SlotDestination: "Yilan",
		types.SlotDuration:    "3 days",
		types.SlotInterests:   "food, relaxation",
		types.SlotBudget:      "up to 3000",
		types.SlotTravelStyle: "relaxed",
		types.SlotGroupSize:   "2",
	}, state.CollectedInfo)
	assert.Contains(t, state.Summary, "destination=Yilan")

	// A completed session stays complete and keeps its intent.
	again, err := service.CollectTurn(ctx, id, "anything else?")
	require.NoError(t, err)
	assert.True(t, again.Done)
	assert.Equal(t, reply.Intent, again.Intent)
}

func TestCollectTurn_LLMSlots(t *testing.T) {
	ctx := context.Background()
	service, llm := setupService(t)
	llm.On("Generate", mock.Anything, mock.AnythingOfType("string")).Return("```json\n"+`{
		"slots": {"destination": "Hualien", "duration": "4 days", "group_size": 2, "interests": ["nature", "food"], "mood": "happy"},
		"summary": "Four days in Hualien for two"
	}`+"\n```", nil).Once()

	reply, err := service.CollectTurn(ctx, "s-llm", "Hualien for four days with my partner, nature and food")
	require.NoError(t, err)
	assert.False(t, reply.Done)
	assert.Contains(t, reply.Reply, "budget")

	state, err := service.GetState(ctx, "s-llm")
	require.NoError(t, err)
	assert.Equal(t, "Hualien", state.CollectedInfo[types.SlotDestination])
	assert.Equal(t, "4 days", state.CollectedInfo[types.SlotDuration])
	assert.Equal(t, "2", state.CollectedInfo[types.SlotGroupSize])
	assert.Equal(t, "nature, food", state.CollectedInfo[types.SlotInterests])
	assert.NotContains(t, state.CollectedInfo, "mood")
	assert.Equal(t, "Four days in Hualien for two", state.Summary)
	llm.AssertExpectations(t)
}

func TestCollectTurn_ModelOutputFallsBack(t *testing.T) {
	ctx := context.Background()
	outputs := []string{
		"I am not JSON",
		`{"slots": {}}`,
		`{"slots": {"destination": null}}`,
		`{"slots": {"foo": "x", "mood": "happy"}}`,
	}
	for _, out := range outputs {
		t.Run(out, func(t *testing.T) {
			service, llm := setupService(t)
			llm.On("Generate", mock.Anything, mock.Anything).Return(out, nil)

			_, err := service.CollectTurn(ctx, "s1", "我想去花蓮")
			require.NoError(t, err)

			state, err := service.GetState(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, "Hualien", state.CollectedInfo[types.SlotDestination])
		})
	}
}

func TestAdvance_NeverDoneWithMissingSlots(t *testing.T) {
	ctx := context.Background()
	service := NewService(nil, intent.NewService(nil, slog.Default()), newMemoryRepository(), config.ConversationConfig{}, slog.Default())

	partial := types.NewConversationState("p")
	partial.CollectedInfo[types.SlotDestination] = "Taipei"
	partial.CollectedInfo[types.SlotDuration] = "2 days"

	inconsistent := types.NewConversationState("c")
	inconsistent.StateType = types.StateComplete

	nilMap := types.ConversationState{SessionID: "n"}

	states := []types.ConversationState{types.NewConversationState("fresh"), partial, inconsistent, nilMap}
	utterances := []string{"", "   ", "?", "yes", "no", "12345", "都可以", strings.Repeat("很長的句子", 30), "3 days in Taipei, hiking, budget 2000-3000"}

	for _, state := range states {
		for _, u := range utterances {
			next, question := service.Advance(ctx, state, u)
			if question == nil {
				assert.True(t, next.Complete(types.DefaultRequiredSlots), "state %s, utterance %q", state.SessionID, u)
				assert.Equal(t, types.StateComplete, next.StateType)
				assert.NotNil(t, next.Intent)
			} else {
				assert.NotEmpty(t, *question)
				assert.False(t, next.Complete(types.DefaultRequiredSlots))
			}
			assert.Equal(t, state.TurnCount+1, next.TurnCount)
		}
	}
}

func TestAdvance_DoesNotMutateInput(t *testing.T) {
	ctx := context.Background()
	service := NewService(nil, intent.NewService(nil, slog.Default()), newMemoryRepository(), config.ConversationConfig{}, slog.Default())

	state := types.NewConversationState("s")
	next, _ := service.Advance(ctx, state, "我想去宜蘭")

	assert.Empty(t, state.CollectedInfo)
	assert.Empty(t, state.ConversationHistory)
	assert.Equal(t, 0, state.TurnCount)
	assert.Equal(t, "Yilan", next.CollectedInfo[types.SlotDestination])
}

func TestAdvance_ExtractsIntentOnceOnCompletion(t *testing.T) {
	ctx := context.Background()
	intents := new(MockIntentService)
	service := NewService(nil, intents, newMemoryRepository(), config.ConversationConfig{}, slog.Default())
	want := types.TripIntent{Days: 2, Destination: "Taipei", Themes: []string{types.ThemeFood}}
	intents.On("ExtractFromSlots", mock.Anything, mock.Anything).
		Return(intent.ExtractionResult{Intent: want, Source: intent.SourceRules}).Once()

	state := types.NewConversationState("s")
	state.CollectedInfo = map[string]string{
		types.SlotDestination: "Taipei",
		types.SlotDuration:    "2 days",
		types.SlotInterests:   "food",
		types.SlotBudget:      "flexible",
		types.SlotTravelStyle: "balanced",
	}

	next, question := service.Advance(ctx, state, "just me")
	require.Nil(t, question)
	require.NotNil(t, next.Intent)
	assert.Equal(t, want, *next.Intent)

	again, question := service.Advance(ctx, next, "thanks")
	assert.Nil(t, question)
	assert.Equal(t, want, *again.Intent)

	intents.AssertNumberOfCalls(t, "ExtractFromSlots", 1)
}

func TestAdvance_RecoversFromPanic(t *testing.T) {
	ctx := context.Background()
	service := NewService(nil, panickingIntents{}, newMemoryRepository(), config.ConversationConfig{}, slog.Default())

	state := types.NewConversationState("s")
	state.CollectedInfo = map[string]string{
		types.SlotDestination: "Taipei",
		types.SlotDuration:    "2 days",
		types.SlotInterests:   "food",
		types.SlotBudget:      "flexible",
		types.SlotTravelStyle: "balanced",
	}

	next, question := service.Advance(ctx, state, "2")
	require.NotNil(t, question)
	assert.Equal(t, nextQuestion(types.SlotGroupSize, state.CollectedInfo), *question)
	assert.Empty(t, next.CollectedInfo[types.SlotGroupSize])
	assert.Equal(t, 1, next.TurnCount)
	assert.Nil(t, next.Intent)
}

func TestAdvance_CapsHistory(t *testing.T) {
	ctx := context.Background()
	service := NewService(nil, intent.NewService(nil, slog.Default()), newMemoryRepository(),
		config.ConversationConfig{MaxHistory: 4}, slog.Default())

	state := types.NewConversationState("s")
	for range 3 {
		state, _ = service.Advance(ctx, state, "yes")
	}
	require.Len(t, state.ConversationHistory, 4)
	last := state.ConversationHistory[len(state.ConversationHistory)-1]
	assert.Equal(t, types.RoleAssistant, last.Role)
	assert.Equal(t, "Where would you like to go?", last.Content)
}

func TestCollectTurn_SerialisesSameSession(t *testing.T) {
	ctx := context.Background()
	service := NewService(nil, intent.NewService(nil, slog.Default()), newMemoryRepository(), config.ConversationConfig{}, slog.Default())

	const turns = 12
	var wg sync.WaitGroup
	for range turns {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.CollectTurn(ctx, "shared", "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	state, err := service.GetState(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, turns, state.TurnCount)
}

func TestCollectTurn_StoreErrors(t *testing.T) {
	ctx := context.Background()
	storeErr := types.NewExternalServiceError("session", "save", errors.New("connection refused"))

	t.Run("save failure is returned", func(t *testing.T) {
		repo := new(MockRepository)
		service := NewService(nil, intent.NewService(nil, slog.Default()), repo, config.ConversationConfig{}, slog.Default())
		repo.On("Lock", mock.Anything, "s1").Return(func() {}, nil)
		repo.On("Load", mock.Anything, "s1").Return(nil, nil)
		repo.On("Save", mock.Anything, mock.AnythingOfType("types.ConversationState")).Return(storeErr)

		reply, err := service.CollectTurn(ctx, "s1", "hello")
		assert.Nil(t, reply)
		require.Error(t, err)
		assert.True(t, types.IsExternalServiceError(err))
		repo.AssertExpectations(t)
	})

	t.Run("lock failure skips the turn", func(t *testing.T) {
		repo := new(MockRepository)
		service := NewService(nil, intent.NewService(nil, slog.Default()), repo, config.ConversationConfig{}, slog.Default())
		repo.On("Lock", mock.Anything, "s1").Return(nil, session.ErrLockNotAcquired)

		_, err := service.CollectTurn(ctx, "s1", "hello")
		require.ErrorIs(t, err, session.ErrLockNotAcquired)
		repo.AssertNotCalled(t, "Load", mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestGetState_NotFound(t *testing.T) {
	service, _ := setupService(t)
	_, err := service.GetState(context.Background(), "missing")
	assert.ErrorIs(t, err, types.ErrSessionNotFound)
}
