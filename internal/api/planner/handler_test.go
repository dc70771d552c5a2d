package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/types"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) PlanTrip(ctx context.Context, intent types.TripIntent) (*types.Itinerary, error) {
	args := m.Called(ctx, intent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Itinerary), args.Error(1)
}

func (m *MockService) PlanSession(ctx context.Context, sessionID string) (*types.Itinerary, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Itinerary), args.Error(1)
}

func setupHandler(t *testing.T) (http.Handler, *MockService) {
	t.Helper()
	service := new(MockService)
	h := NewHandler(service, slog.Default())
	r := chi.NewRouter()
	r.Post("/plan", h.PlanTrip)
	r.Post("/chat/{sessionID}/plan", h.PlanSession)
	return r, service
}

func sampleItinerary() *types.Itinerary {
	return &types.Itinerary{
		ID: uuid.MustParse("5b0f6e0e-1f3a-4d7b-9c53-4b2f0d7a9e11"),
		Days: []types.DayPlan{{
			Day: 1,
			Visits: []types.Visit{{
				PlaceID:   "p1",
				Name:      "Lanyang Museum",
				Arrival:   types.Clock(9, 0),
				Departure: types.Clock(10, 30),
			}},
		}},
	}
}

func TestHandler_PlanTrip(t *testing.T) {
	router, service := setupHandler(t)
	service.On("PlanTrip", mock.Anything, mock.MatchedBy(func(i types.TripIntent) bool {
		return i.Days == 1 && i.TimeWindow.Start == types.Clock(9, 0) && i.TimeWindow.End == types.Clock(17, 30)
	})).Return(sampleItinerary(), nil)

	body := `{"days": 1, "themes": ["culture"], "time_window": {"start": "09:00", "end": "17:30"}, "destination": "Yilan"}`
	req := httptest.NewRequest(http.MethodPost, "/plan", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "5b0f6e0e-1f3a-4d7b-9c53-4b2f0d7a9e11", got["id"])
	days := got["days"].([]any)
	visit := days[0].(map[string]any)["visits"].([]any)[0].(map[string]any)
	assert.Equal(t, "09:00", visit["arrival"])
	assert.Equal(t, "10:30", visit["departure"])
}

func TestHandler_PlanTrip_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantError  string
	}{
		{name: "malformed body", body: `{"days": `, wantStatus: http.StatusBadRequest, wantError: "badly-formed"},
		{name: "malformed clock", body: `{"days": 1, "time_window": {"start": "9am", "end": "17:00"}}`, wantStatus: http.StatusBadRequest},
		{name: "validation", body: `{"days": 0}`, err: &types.ValidationError{Field: "days", Reason: "must be at least 1, got 0"}, wantStatus: http.StatusBadRequest, wantError: "invalid days"},
		{name: "upstream", body: `{"days": 2}`, err: types.NewExternalServiceError("catalog", "retrieve", errors.New("dial tcp: refused")), wantStatus: http.StatusBadGateway, wantError: "upstream"},
		{name: "internal", body: `{"days": 2}`, err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantError: "Failed to plan trip"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, service := setupHandler(t)
			if tt.err != nil {
				service.On("PlanTrip", mock.Anything, mock.Anything).Return(nil, tt.err)
			}

			req := httptest.NewRequest(http.MethodPost, "/plan", bytes.NewBufferString(tt.body))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantError != "" {
				assert.Contains(t, rr.Body.String(), tt.wantError)
			}
			assert.NotContains(t, rr.Body.String(), "dial tcp")
			if tt.err == nil {
				service.AssertNotCalled(t, "PlanTrip", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestHandler_PlanSession(t *testing.T) {
	tests := []struct {
		name       string
		itinerary  *types.Itinerary
		err        error
		wantStatus int
	}{
		{name: "planned", itinerary: sampleItinerary(), wantStatus: http.StatusOK},
		{name: "unknown session", err: types.ErrSessionNotFound, wantStatus: http.StatusNotFound},
		{name: "still collecting", err: types.ErrSessionIncomplete, wantStatus: http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, service := setupHandler(t)
			if tt.itinerary != nil {
				service.On("PlanSession", mock.Anything, "abc").Return(tt.itinerary, nil)
			} else {
				service.On("PlanSession", mock.Anything, "abc").Return(nil, tt.err)
			}

			req := httptest.NewRequest(http.MethodPost, "/chat/abc/plan", nil)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			service.AssertExpectations(t)
		})
	}
}
