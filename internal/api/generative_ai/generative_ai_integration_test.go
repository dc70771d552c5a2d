//go:build integration

package generativeAI

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-itinerary-planner/config"
)

func integrationConfig() config.LLMConfig {
	return config.LLMConfig{
		Model:             "gemini-2.0-flash",
		EmbeddingModel:    "text-embedding-004",
		Temperature:       0.1,
		Timeout:           30 * time.Second,
		EmbeddingTimeout:  10 * time.Second,
		RequestsPerSecond: 2,
		Burst:             1,
	}
}

func TestMain(m *testing.M) {
	if os.Getenv("GOOGLE_GEMINI_API_KEY") == "" {
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func TestAIClient_Generate_Integration(t *testing.T) {
	ctx := context.Background()
	client, err := NewAIClient(ctx, integrationConfig(), slog.Default())
	require.NoError(t, err)

	t.Run("returns JSON for a JSON prompt", func(t *testing.T) {
		prompt := `Return a JSON object {"days": <number>} for the request "我想去宜蘭三天".`
		response, err := client.Generate(ctx, prompt)
		require.NoError(t, err)

		var out map[string]any
		require.NoError(t, json.Unmarshal([]byte(CleanJSONResponse(response)), &out))
		assert.Contains(t, out, "days")
	})

	t.Run("times out with a tiny deadline", func(t *testing.T) {
		cfg := integrationConfig()
		cfg.Timeout = time.Millisecond
		slow, err := NewAIClient(ctx, cfg, slog.Default())
		require.NoError(t, err)

		_, err = slow.Generate(ctx, "List 3 attractions in Yilan as JSON.")
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "timed out") || strings.Contains(err.Error(), "deadline"))
	})
}

func TestAIClient_Embed_Integration(t *testing.T) {
	ctx := context.Background()
	client, err := NewAIClient(ctx, integrationConfig(), slog.Default())
	require.NoError(t, err)

	vec, err := client.Embed(ctx, "hot springs and night markets")
	require.NoError(t, err)
	assert.Len(t, vec, 768)
}
