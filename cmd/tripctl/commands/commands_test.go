package commands

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-itinerary-planner/config"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/api/session"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/container"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/types"
)

func TestRunChat_RuleBasedConversation(t *testing.T) {
	c := container.Build(&config.Config{}, container.Collaborators{
		Sessions: session.NewMemoryStore(time.Minute),
	}, slog.New(slog.DiscardHandler))

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	cmd.SetIn(strings.NewReader("我想去宜蘭\n\n3\n溫泉和美食\n3000\nyes\n2\n"))
	cmd.SetOut(&out)

	require.NoError(t, runChat(cmd, c.ConversationService, nil))

	got := out.String()
	assert.Contains(t, got, "Where would you like to go?")
	assert.Contains(t, got, "Thanks! I have everything I need to plan your 3-day trip to Yilan.")
	assert.Contains(t, got, `"days": 3`)
	assert.Contains(t, got, `"destination": "Yilan"`)
}

func TestRunChat_ExitAndEOF(t *testing.T) {
	c := container.Build(&config.Config{}, container.Collaborators{
		Sessions: session.NewMemoryStore(time.Minute),
	}, slog.New(slog.DiscardHandler))

	for _, input := range []string{"exit\n", "Taipei\n"} {
		var out bytes.Buffer
		cmd := &cobra.Command{}
		cmd.SetContext(context.Background())
		cmd.SetIn(strings.NewReader(input))
		cmd.SetOut(&out)

		require.NoError(t, runChat(cmd, c.ConversationService, nil))
		assert.NotContains(t, out.String(), "Thanks!")
	}
}

func TestRenderItinerary(t *testing.T) {
	it := &types.Itinerary{
		ID:      uuid.MustParse("0d3b5c0e-7c55-4d8f-a6a2-2d4f39f6c001"),
		Partial: true,
		Days: []types.DayPlan{
			{
				Day:  1,
				Date: time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC),
				Visits: []types.Visit{
					{PlaceID: "p1", Name: "Lanyang Museum", Arrival: types.Clock(9, 0), Departure: types.Clock(10, 30)},
					{PlaceID: "p2", Name: "Jiaoxi Hot Spring Park", Arrival: types.Clock(10, 55), Departure: types.Clock(12, 25), TravelMinutes: 25},
				},
				Accommodation: &types.AccommodationCandidate{Name: "Lanyang Hotel", Type: types.AccommodationHotel, Rating: 4.2},
			},
			{Day: 2, Visits: []types.Visit{}},
		},
		Warnings: []string{"semantic retrieval unavailable: timeout"},
	}

	var out bytes.Buffer
	renderItinerary(&out, it)

	want := `Itinerary 0d3b5c0e-7c55-4d8f-a6a2-2d4f39f6c001
(partial: scheduling stopped early)
Day 1 Mon 2025-06-02
  09:00-10:30  Lanyang Museum
  10:55-12:25  Jiaoxi Hot Spring Park  [25 min travel]
  Night: Lanyang Hotel (hotel, 4.2)
Day 2
  (free day)
Warnings:
  - semantic retrieval unavailable: timeout
`
	assert.Equal(t, want, out.String())
}

func TestReadIntent(t *testing.T) {
	dir := t.TempDir()
	bare := filepath.Join(dir, "bare.json")
	require.NoError(t, os.WriteFile(bare, []byte(`{"days": 2, "destination": "Hualien"}`), 0o600))

	got, err := readIntent(nil, bare)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Days)
	assert.Equal(t, "Hualien", got.Destination)

	got, err = readIntent(strings.NewReader(`{"intent": {"days": 4, "destination": "Yilan"}, "source": "rules"}`), "-")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Days)

	_, err = readIntent(strings.NewReader(`not json`), "-")
	assert.Error(t, err)

	_, err = readIntent(nil, filepath.Join(dir, "missing.json"))
	assert.ErrorContains(t, err, "failed to read intent")
}
