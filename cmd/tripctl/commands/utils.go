package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	appLogger "github.com/FACorreiaa/go-trip-itinerary-planner/app/logger"
	"github.com/FACorreiaa/go-trip-itinerary-planner/config"
	generativeAI "github.com/FACorreiaa/go-trip-itinerary-planner/internal/api/generative_ai"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/types"
)

var (
	Mode  string
	Quiet bool
)

// setup loads configuration and builds a logger writing to stderr, so stdout stays
// clean for JSON output.
func setup() (config.Config, *slog.Logger, error) {
	cfg, err := config.InitConfig()
	if err != nil {
		return config.Config{}, nil, err
	}
	mode := cfg.Mode
	if Mode != "" {
		mode = Mode
	}
	var logger *slog.Logger
	if Quiet {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	} else {
		logger = appLogger.NewWithWriter(mode, os.Stderr)
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// optionalLLM returns the Gemini client, or nil when no API key is configured.
func optionalLLM(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) generativeAI.TextGenerator {
	ai, err := generativeAI.NewAIClient(ctx, cfg, logger)
	if err != nil {
		logger.Info("LLM unavailable, using rule-based parsing", slog.Any("error", err))
		return nil
	}
	return ai
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// renderItinerary prints an itinerary as a day-by-day schedule.
func renderItinerary(w io.Writer, it *types.Itinerary) {
	fmt.Fprintf(w, "Itinerary %s\n", it.ID)
	if it.Partial {
		fmt.Fprintln(w, "(partial: scheduling stopped early)")
	}
	for _, d := range it.Days {
		header := fmt.Sprintf("Day %d", d.Day)
		if !d.Date.IsZero() {
			header += " " + d.Date.Format("Mon 2006-01-02")
		}
		fmt.Fprintln(w, header)
		if len(d.Visits) == 0 {
			fmt.Fprintln(w, "  (free day)")
		}
		for _, v := range d.Visits {
			travel := ""
			if v.TravelMinutes > 0 {
				travel = fmt.Sprintf("  [%d min travel]", v.TravelMinutes)
			}
			fmt.Fprintf(w, "  %s-%s  %s%s\n", v.Arrival, v.Departure, v.Name, travel)
		}
		if d.Accommodation != nil {
			fmt.Fprintf(w, "  Night: %s (%s, %.1f)\n", d.Accommodation.Name, d.Accommodation.Type, d.Accommodation.Rating)
		}
	}
	if len(it.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warning := range it.Warnings {
			fmt.Fprintf(w, "  - %s\n", strings.TrimSpace(warning))
		}
	}
}
