package session

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/types"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockStore) Lock(ctx context.Context, key string) (func(), error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func()), args.Error(1)
}

func TestRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(NewMemoryStore(time.Minute), time.Hour, slog.Default())

	got, err := repo.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)

	state := types.NewConversationState("s1")
	state.CollectedInfo[types.SlotDestination] = "宜蘭"
	state.TurnCount = 1
	require.NoError(t, repo.Save(ctx, state))

	got, err = repo.Load(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "宜蘭", got.CollectedInfo[types.SlotDestination])
	assert.Equal(t, types.StateCollecting, got.StateType)
	assert.Equal(t, 1, got.TurnCount)
}

func TestRepository_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("store failure is an external service error", func(t *testing.T) {
		store := new(MockStore)
		store.On("Get", mock.Anything, "conversation:s1").Return(nil, errors.New("connection refused"))
		repo := NewRepository(store, time.Hour, slog.Default())

		_, err := repo.Load(ctx, "s1")
		require.Error(t, err)
		assert.True(t, types.IsExternalServiceError(err))
	})

	t.Run("corrupt payload is reported", func(t *testing.T) {
		store := new(MockStore)
		store.On("Get", mock.Anything, "conversation:s1").Return([]byte("{not json"), nil)
		repo := NewRepository(store, time.Hour, slog.Default())

		_, err := repo.Load(ctx, "s1")
		require.Error(t, err)
		assert.False(t, types.IsExternalServiceError(err))
	})

	t.Run("save uses prefixed key and ttl", func(t *testing.T) {
		store := new(MockStore)
		store.On("SetWithTTL", mock.Anything, "conversation:s9", mock.AnythingOfType("[]uint8"), 2*time.Hour).Return(nil)
		repo := NewRepository(store, 2*time.Hour, slog.Default())

		require.NoError(t, repo.Save(ctx, types.NewConversationState("s9")))
		store.AssertExpectations(t)
	})

	t.Run("save failure is an external service error", func(t *testing.T) {
		store := new(MockStore)
		store.On("SetWithTTL", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("OOM"))
		repo := NewRepository(store, time.Hour, slog.Default())

		err := repo.Save(ctx, types.NewConversationState("s1"))
		assert.True(t, types.IsExternalServiceError(err))
	})

	t.Run("lock failure is an external service error", func(t *testing.T) {
		store := new(MockStore)
		store.On("Lock", mock.Anything, "conversation:s1").Return(nil, ErrLockNotAcquired)
		repo := NewRepository(store, time.Hour, slog.Default())

		_, err := repo.Lock(ctx, "s1")
		assert.ErrorIs(t, err, ErrLockNotAcquired)
	})
}
